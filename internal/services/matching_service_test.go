package services

import (
	"testing"
	"time"

	"minitalk/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateCandidate(t *testing.T) {
	now := time.Now()
	staleAfter := 5 * time.Minute

	tests := []struct {
		name         string
		user         *models.User
		wantEligible bool
		wantEvict    bool
	}{
		{
			name:         "missing user record evicts the ticket",
			user:         nil,
			wantEligible: false,
			wantEvict:    true,
		},
		{
			name: "stale presence evicts the ticket",
			user: &models.User{
				ID:         "u1",
				LastActive: now.Add(-10 * time.Minute),
			},
			wantEligible: false,
			wantEvict:    true,
		},
		{
			name: "zero last-active counts as stale",
			user: &models.User{
				ID: "u2",
			},
			wantEligible: false,
			wantEvict:    true,
		},
		{
			name: "banned user is skipped but keeps the ticket",
			user: &models.User{
				ID:         "u3",
				Status:     "banned",
				LastActive: now.Add(-time.Minute),
			},
			wantEligible: false,
			wantEvict:    false,
		},
		{
			name: "suspended user is skipped but keeps the ticket",
			user: &models.User{
				ID:         "u4",
				Status:     "suspended",
				LastActive: now.Add(-time.Minute),
			},
			wantEligible: false,
			wantEvict:    false,
		},
		{
			name: "fresh active user is eligible",
			user: &models.User{
				ID:         "u5",
				LastActive: now.Add(-30 * time.Second),
			},
			wantEligible: true,
			wantEvict:    false,
		},
		{
			name: "exactly at the threshold is still fresh",
			user: &models.User{
				ID:         "u6",
				LastActive: now.Add(-staleAfter),
			},
			wantEligible: true,
			wantEvict:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eligible, evict := EvaluateCandidate(tt.user, now, staleAfter)
			assert.Equal(t, tt.wantEligible, eligible)
			assert.Equal(t, tt.wantEvict, evict)
		})
	}
}
