// Package handlers adapts HTTP requests to the lifecycle engine and the
// supporting services. Every failure is rendered as {"error": message}.
package handlers

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"annadan-api/apperr"
	"annadan-api/auth"
	"annadan-api/lifecycle"
	"annadan-api/recipes"
	"annadan-api/store"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	engine  *lifecycle.Engine
	store   *store.Store
	tokens  *auth.TokenManager
	recipes *recipes.Service
	logger  *slog.Logger
	now     func() time.Time
}

func New(engine *lifecycle.Engine, s *store.Store, tokens *auth.TokenManager, rs *recipes.Service, logger *slog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		store:   s,
		tokens:  tokens,
		recipes: rs,
		logger:  logger,
		now:     time.Now,
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindDependency {
		h.logger.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
	}
	c.JSON(apperr.HTTPStatus(kind), gin.H{"error": apperr.Message(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// queryInt reads a non-negative integer query parameter, 0 when absent or malformed
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// formImage returns the uploaded file under field, or nil when none was sent.
// The caller must invoke the returned close func.
func formImage(c *gin.Context, field string) (*lifecycle.Image, func()) {
	header, err := c.FormFile(field)
	if err != nil || header.Size == 0 {
		return nil, func() {}
	}
	f, err := header.Open()
	if err != nil {
		return nil, func() {}
	}
	return &lifecycle.Image{Filename: uploadName(header), Reader: f}, func() { _ = f.Close() }
}

func uploadName(header *multipart.FileHeader) string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + header.Filename
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339 and the formats HTML date inputs send. Values
// without a zone are read as UTC.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
