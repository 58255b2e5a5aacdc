package handlers

import (
	"net/http"

	"annadan-api/models"
	"annadan-api/statemachine"

	"github.com/gin-gonic/gin"
)

const serviceName = "Annadan Food Donation API"

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": "1.0.0",
	})
}

func Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the " + serviceName,
		"docs":    "/api/state-machine",
		"health":  "/health",
	})
}

// GetStateMachineInfo documents the pickup request and donation lifecycles
func GetStateMachineInfo(c *gin.Context) {
	requests := make([]gin.H, 0)
	for _, t := range statemachine.GetRequestTransitions() {
		to := string(t.To)
		if to == "" {
			to = "cancelled (deleted)"
		}
		requests = append(requests, gin.H{"from": t.From, "to": to, "actor": t.Actor})
	}

	c.JSON(http.StatusOK, gin.H{
		"pickup_request": gin.H{
			"state_machine":   requests,
			"terminal_states": []models.RequestStatus{models.RequestRejected, models.RequestCompleted},
			"status_aliases":  statusAliases,
		},
		"donation": gin.H{
			"state_machine":   statemachine.GetDonationTransitions(),
			"terminal_states": []models.DonationStatus{models.DonationPickedUp},
		},
		"description": "Food donation and pickup request lifecycle",
	})
}
