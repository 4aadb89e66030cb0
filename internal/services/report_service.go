package services

import (
	"context"
	"fmt"
	"time"

	"minitalk/internal/models"
	"minitalk/pkg/database"
	"minitalk/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReportService struct {
	collection *mongo.Collection
}

func NewReportService(db *mongo.Database) *ReportService {
	return &ReportService{collection: db.Collection(database.CollReports)}
}

// FileReport records a complaint. Duplicate pending reports from the
// same reporter against the same user collapse into one.
func (s *ReportService) FileReport(ctx context.Context, reporterID, reportedUserID string, chatID primitive.ObjectID, reason, details string) (*models.Report, error) {
	if reporterID == reportedUserID {
		return nil, fmt.Errorf("cannot report yourself")
	}

	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var existing models.Report
	err := s.collection.FindOne(opCtx, bson.M{
		"reporter_id":      reporterID,
		"reported_user_id": reportedUserID,
		"status":           models.ReportStatusPending,
	}).Decode(&existing)
	if err == nil {
		return &existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to check existing reports: %w", err)
	}

	now := time.Now()
	report := &models.Report{
		ReporterID:     reporterID,
		ReportedUserID: reportedUserID,
		ChatID:         chatID,
		Reason:         reason,
		Details:        details,
		Status:         models.ReportStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	result, err := s.collection.InsertOne(opCtx, report)
	if err != nil {
		return nil, fmt.Errorf("failed to file report: %w", err)
	}
	report.ID = result.InsertedID.(primitive.ObjectID)

	logger.LogUserAction(reporterID, "report_filed", map[string]interface{}{
		"reported_user_id": reportedUserID,
		"reason":           reason,
	})

	return report, nil
}

// ListReports returns reports filtered by status, newest first.
func (s *ReportService) ListReports(ctx context.Context, status string, page, limit int64) ([]models.Report, int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := s.collection.CountDocuments(opCtx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := s.collection.Find(opCtx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	defer cursor.Close(opCtx)

	var reports []models.Report
	if err = cursor.All(opCtx, &reports); err != nil {
		return nil, 0, fmt.Errorf("failed to decode reports: %w", err)
	}

	return reports, total, nil
}

// ReviewReport closes out a report as resolved or dismissed.
func (s *ReportService) ReviewReport(ctx context.Context, reportID primitive.ObjectID, status, notes, adminID string) error {
	if status != models.ReportStatusResolved && status != models.ReportStatusDismissed {
		return fmt.Errorf("invalid report status: %s", status)
	}

	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	result, err := s.collection.UpdateOne(opCtx, bson.M{"_id": reportID}, bson.M{
		"$set": bson.M{
			"status":      status,
			"admin_notes": notes,
			"reviewed_by": adminID,
			"reviewed_at": now,
			"updated_at":  now,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to review report: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("report not found")
	}

	logger.LogAdminAction(adminID, "report_reviewed", reportID.Hex(), map[string]interface{}{
		"status": status,
	})

	return nil
}
