package utils

import (
	"fmt"
	"time"
)

// epochMillisCutoff separates epoch seconds from epoch milliseconds.
// Values above it can only be millisecond stamps for any plausible date.
const epochMillisCutoff = int64(1e11)

// ToTime normalizes the timestamp shapes clients send: RFC3339 strings,
// epoch seconds or milliseconds, and native time.Time. Every inbound
// timestamp goes through here; an unrecognized shape is an error, not
// "just now".
func ToTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil timestamp")
		}
		return *v, nil
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, nil
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp string %q", v)
	case int64:
		return fromEpoch(v), nil
	case int:
		return fromEpoch(int64(v)), nil
	case float64:
		return fromEpoch(int64(v)), nil
	default:
		return time.Time{}, fmt.Errorf("unrecognized timestamp type %T", value)
	}
}

func fromEpoch(v int64) time.Time {
	if v > epochMillisCutoff {
		return time.UnixMilli(v)
	}
	return time.Unix(v, 0)
}
