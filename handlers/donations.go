package handlers

import (
	"net/http"
	"strings"

	"annadan-api/apperr"
	"annadan-api/lifecycle"
	"annadan-api/middleware"
	"annadan-api/models"

	"github.com/gin-gonic/gin"
)

// CreateDonation lists surplus food from a multipart form with an optional foodImage
func (h *Handler) CreateDonation(c *gin.Context) {
	title := c.PostForm("foodName")
	if title == "" {
		title = c.PostForm("title")
	}
	in := lifecycle.DonationInput{
		Title:          title,
		Description:    c.PostForm("description"),
		FoodType:       models.FoodType(strings.ToLower(strings.TrimSpace(c.PostForm("foodType")))),
		Quantity:       c.PostForm("quantity"),
		PickupLocation: c.PostForm("pickupLocation"),
		Contact: models.DonorContact{
			Name:  c.PostForm("contactName"),
			Phone: c.PostForm("contactPhone"),
			Email: c.PostForm("contactEmail"),
		},
		Notes: c.PostForm("additionalNotes"),
	}
	if raw := c.PostForm("expiryDate"); raw != "" {
		expiry, ok := parseTime(raw)
		if !ok {
			badRequest(c, "Invalid expiry date")
			return
		}
		in.ExpiryDate = expiry
	}

	img, closeImg := formImage(c, "foodImage")
	defer closeImg()
	in.Image = img

	donation, err := h.engine.CreateDonation(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Donation created successfully",
		"donation": donation.View(),
	})
}

// ListDonations serves the public feed, or the caller's own donations with donor=me
func (h *Handler) ListDonations(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		donations []models.Donation
		page      lifecycle.Pagination
		err       error
	)
	if c.Query("donor") == "me" {
		callerID := middleware.GetUserID(c)
		if callerID == "" {
			h.respondError(c, apperr.Unauthenticated(middleware.AuthError(c).Error()))
			return
		}
		donations, page, err = h.engine.ListOwnDonations(ctx, callerID, queryInt(c, "limit"), queryInt(c, "offset"))
	} else {
		donations, page, err = h.engine.ListDonations(ctx, lifecycle.DonationQuery{
			FoodType: c.Query("foodType"),
			Location: c.Query("location"),
			Limit:    queryInt(c, "limit"),
			Offset:   queryInt(c, "offset"),
		})
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	views := make([]models.DonationView, 0, len(donations))
	for _, d := range donations {
		views = append(views, d.View())
	}
	c.JSON(http.StatusOK, gin.H{
		"donations":  views,
		"pagination": page,
	})
}

func (h *Handler) GetDonation(c *gin.Context) {
	donation, err := h.engine.GetDonation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donation": donation.View()})
}
