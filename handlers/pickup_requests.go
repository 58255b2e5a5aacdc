package handlers

import (
	"net/http"
	"strings"

	"annadan-api/lifecycle"
	"annadan-api/middleware"
	"annadan-api/models"
	"annadan-api/store"

	"github.com/gin-gonic/gin"
)

// statusAliases maps the vocabulary older clients send onto request statuses
var statusAliases = map[string]models.RequestStatus{
	"confirmed": models.RequestApproved,
	"declined":  models.RequestRejected,
}

func normalizeRequestStatus(raw string) models.RequestStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := statusAliases[s]; ok {
		return alias
	}
	return models.RequestStatus(s)
}

type createPickupRequest struct {
	DonationID string  `json:"donationId"`
	Message    *string `json:"message"`
	PickupTime string  `json:"pickupTime"`
}

func (h *Handler) CreatePickupRequest(c *gin.Context) {
	var req createPickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	in := lifecycle.PickupInput{DonationID: strings.TrimSpace(req.DonationID)}
	if req.Message != nil {
		in.Message = optional(*req.Message)
	}
	if req.PickupTime != "" {
		t, ok := parseTime(req.PickupTime)
		if !ok {
			badRequest(c, "Invalid pickup time")
			return
		}
		in.PickupTime = &t
	}

	created, err := h.engine.CreatePickupRequest(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":       "Pickup request created successfully",
		"pickupRequest": created.View(),
	})
}

func (h *Handler) ListPickupRequests(c *gin.Context) {
	requests, page, err := h.engine.ListPickupRequestsForUser(c.Request.Context(), middleware.GetUserID(c), lifecycle.RequestQuery{
		Direction: store.RequestDirection(c.Query("type")),
		Status:    models.RequestStatus(c.Query("status")),
		Limit:     queryInt(c, "limit"),
		Offset:    queryInt(c, "offset"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	views := make([]models.PickupRequestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, r.View())
	}
	c.JSON(http.StatusOK, gin.H{
		"requests":   views,
		"pagination": page,
	})
}

func (h *Handler) GetPickupRequest(c *gin.Context) {
	req, err := h.engine.GetPickupRequest(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pickupRequest": req.View()})
}

type updatePickupRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdatePickupRequest(c *gin.Context) {
	var body updatePickupRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Status is required")
		return
	}

	updated, err := h.engine.UpdatePickupRequestStatus(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), normalizeRequestStatus(body.Status))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Pickup request updated successfully",
		"pickupRequest": updated.View(),
	})
}

func (h *Handler) CancelPickupRequest(c *gin.Context) {
	if err := h.engine.CancelPickupRequest(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pickup request cancelled successfully"})
}
