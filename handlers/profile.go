package handlers

import (
	"errors"
	"net/http"
	"strings"

	"annadan-api/apperr"
	"annadan-api/middleware"
	"annadan-api/models"
	"annadan-api/storage"
	"annadan-api/store"

	"github.com/gin-gonic/gin"
)

func profileUser(u *models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"phone":      u.Phone,
		"address":    u.Address,
		"city":       u.City,
		"state":      u.State,
		"zip_code":   u.ZipCode,
		"avatar_url": u.AvatarURL,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

// GetProfile returns the caller with donation and recipe counts
func (h *Handler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	user, err := h.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(c, apperr.NotFound("User not found"))
		return
	}
	if err != nil {
		h.respondError(c, apperr.Internal(err))
		return
	}

	total, err := h.store.CountDonationsByDonor(ctx, userID, "")
	if err != nil {
		h.respondError(c, apperr.Internal(err))
		return
	}
	active, err := h.store.CountDonationsByDonor(ctx, userID, models.DonationAvailable)
	if err != nil {
		h.respondError(c, apperr.Internal(err))
		return
	}
	recipeCount, err := h.store.CountRecipesByUser(ctx, userID)
	if err != nil {
		h.respondError(c, apperr.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": profileUser(user),
		"stats": gin.H{
			"totalDonations":  total,
			"activeDonations": active,
			"totalRecipes":    recipeCount,
		},
	})
}

type profileUpdate struct {
	Name    string `json:"name" form:"name"`
	Phone   string `json:"phone" form:"phone"`
	Address string `json:"address" form:"address"`
	City    string `json:"city" form:"city"`
	State   string `json:"state" form:"state"`
	ZipCode string `json:"zipCode" form:"zipCode"`
}

// UpdateProfile accepts JSON or a multipart form with an optional profileImage.
// Optional fields left empty are cleared.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var body profileUpdate
	multipartForm := strings.HasPrefix(c.ContentType(), "multipart/form-data")
	var err error
	if multipartForm {
		err = c.ShouldBind(&body)
	} else {
		err = c.ShouldBindJSON(&body)
	}
	if err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		badRequest(c, "Name is required")
		return
	}

	ctx := c.Request.Context()
	updates := map[string]any{
		"name":     strings.TrimSpace(body.Name),
		"phone":    strings.TrimSpace(body.Phone),
		"address":  strings.TrimSpace(body.Address),
		"city":     strings.TrimSpace(body.City),
		"state":    strings.TrimSpace(body.State),
		"zip_code": strings.TrimSpace(body.ZipCode),
	}
	if multipartForm {
		img, closeImg := formImage(c, "profileImage")
		defer closeImg()
		if url := h.engine.UploadImage(ctx, img, storage.KindAvatar); url != nil {
			updates["avatar_url"] = *url
		}
	}

	user, err := h.store.UpdateUser(ctx, middleware.GetUserID(c), updates)
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(c, apperr.NotFound("User not found"))
		return
	}
	if err != nil {
		h.respondError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    profileUser(user),
	})
}
