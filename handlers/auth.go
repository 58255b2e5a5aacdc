package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"annadan-api/apperr"
	"annadan-api/auth"
	"annadan-api/models"
	"annadan-api/storage"
	"annadan-api/store"

	"github.com/gin-gonic/gin"
)

func authUser(u *models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"avatar_url": u.AvatarURL,
	}
}

// Signup creates a verified account from a multipart form
func (h *Handler) Signup(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	email := strings.ToLower(strings.TrimSpace(c.PostForm("email")))
	password := c.PostForm("password")
	if name == "" || email == "" || password == "" {
		badRequest(c, "Name, email, and password are required")
		return
	}

	ctx := c.Request.Context()
	_, err := h.store.GetUserByEmail(ctx, email)
	if err == nil {
		h.respondError(c, errEmailTaken)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		h.respondError(c, apperr.Internal(err))
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		h.respondError(c, apperr.Internal(err))
		return
	}

	img, closeImg := formImage(c, "profileImage")
	defer closeImg()

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		AvatarURL:    h.engine.UploadImage(ctx, img, storage.KindAvatar),
		// no email verification flow exists yet
		IsVerified: true,
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			h.respondError(c, errEmailTaken)
			return
		}
		h.respondError(c, apperr.Internal(err))
		return
	}

	token, err := h.tokens.GenerateToken(user)
	if err != nil {
		h.respondError(c, apperr.Internal(err))
		return
	}
	h.logger.Info("user signed up", slog.String("user_id", user.ID))

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    authUser(user),
		"token":   token,
	})
}

var errEmailTaken = apperr.Conflict("User with this email already exists")

// Signin authenticates with email and password query parameters
func (h *Handler) Signin(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	password := c.Query("password")
	if email == "" || password == "" {
		badRequest(c, "Email and password are required")
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.respondError(c, apperr.Internal(err))
		return
	}
	if err != nil || !auth.VerifyPassword(password, user.PasswordHash) {
		h.respondError(c, apperr.Unauthenticated("Invalid email or password"))
		return
	}
	if !user.IsVerified {
		h.respondError(c, apperr.Forbidden("Please verify your email before signing in"))
		return
	}

	token, err := h.tokens.GenerateToken(user)
	if err != nil {
		h.respondError(c, apperr.Internal(err))
		return
	}
	if err := h.store.TouchLastLogin(ctx, user.ID, h.now().UTC()); err != nil {
		h.logger.Warn("update last login failed", slog.String("user_id", user.ID), slog.String("error", err.Error()))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sign in successful",
		"user":    authUser(user),
		"token":   token,
	})
}
