package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"annadan-api/apperr"
	"annadan-api/lifecycle"
	"annadan-api/middleware"
	"annadan-api/models"
	"annadan-api/store"

	"github.com/gin-gonic/gin"
)

const defaultFeedbackLimit = 20

type feedbackRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Rating   *int   `json:"rating"`
	Category string `json:"category"`
}

// SubmitFeedback accepts feedback from anyone; signed-in callers are linked to it
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(c, "Message is required")
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		badRequest(c, "Rating must be between 1 and 5")
		return
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = "general"
	}
	fb := &models.Feedback{
		UserID:   optional(middleware.GetUserID(c)),
		Name:     optional(req.Name),
		Email:    optional(req.Email),
		Subject:  optional(req.Subject),
		Message:  req.Message,
		Rating:   req.Rating,
		Category: category,
		Status:   "open",
	}
	if err := h.store.CreateFeedback(c.Request.Context(), fb); err != nil {
		h.respondError(c, apperr.Internal(err))
		return
	}
	h.logger.Info("feedback submitted", slog.String("feedback_id", fb.ID), slog.String("category", fb.Category))

	c.JSON(http.StatusCreated, gin.H{
		"message": "Feedback submitted successfully",
		"feedback": gin.H{
			"id":     fb.ID,
			"status": fb.Status,
		},
	})
}

// ListFeedback is mounted behind the admin middleware
func (h *Handler) ListFeedback(c *gin.Context) {
	limit, offset := queryInt(c, "limit"), queryInt(c, "offset")
	if limit == 0 {
		limit = defaultFeedbackLimit
	}
	items, err := h.store.ListFeedback(c.Request.Context(), store.FeedbackFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.respondError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"feedback":   items,
		"pagination": lifecycle.Pagination{Limit: limit, Offset: offset, HasMore: len(items) == limit},
	})
}
