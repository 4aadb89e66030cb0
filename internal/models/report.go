package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ReportStatusPending   = "pending"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

// Report is a complaint filed by one user against another, reviewed
// through the admin console.
type Report struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReporterID     string             `bson:"reporter_id" json:"reporter_id"`
	ReportedUserID string             `bson:"reported_user_id" json:"reported_user_id"`
	ChatID         primitive.ObjectID `bson:"chat_id,omitempty" json:"chat_id,omitempty"`
	Reason         string             `bson:"reason" json:"reason"`
	Details        string             `bson:"details,omitempty" json:"details,omitempty"`
	Status         string             `bson:"status" json:"status"`
	AdminNotes     string             `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	ReviewedBy     string             `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time         `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}
