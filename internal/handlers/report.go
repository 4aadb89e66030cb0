package handlers

import (
	"net/http"

	"minitalk/internal/middleware"
	"minitalk/internal/services"
	"minitalk/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// FileReport lets a user report their current or past chat partner.
func (h *ReportHandler) FileReport(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req struct {
		ReportedUserID string `json:"reported_user_id" binding:"required"`
		ChatID         string `json:"chat_id"`
		Reason         string `json:"reason" binding:"required"`
		Details        string `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "reported_user_id and reason are required")
		return
	}

	chatID := primitive.NilObjectID
	if req.ChatID != "" {
		parsed, err := primitive.ObjectIDFromHex(req.ChatID)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid chat id")
			return
		}
		chatID = parsed
	}

	report, err := h.reportService.FileReport(c.Request.Context(), userID, req.ReportedUserID, chatID, req.Reason, req.Details)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to file report")
		return
	}

	utils.SuccessResponseWithMessage(c, "Report filed", gin.H{
		"report_id": report.ID.Hex(),
	})
}
