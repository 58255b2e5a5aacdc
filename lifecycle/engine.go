// Package lifecycle is the only place donation and pickup request statuses
// change. Every operation validates the caller's intent against the stored
// state and returns an *apperr.Error on failure.
package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"annadan-api/apperr"
	"annadan-api/metrics"
	"annadan-api/storage"
	"annadan-api/store"
)

const (
	defaultDonationLimit = 20
	defaultRequestLimit  = 10
	maxLimit             = 100

	// recorded in the audit trail when a pending request is withdrawn
	statusCancelled = "cancelled"
)

type Engine struct {
	repo              store.Repository
	images            storage.Uploader
	logger            *slog.Logger
	metrics           *metrics.Metrics
	now               func() time.Time
	exclusiveApproval bool
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithExclusiveApproval makes approval fail once the donation is no longer available.
func WithExclusiveApproval(on bool) Option {
	return func(e *Engine) { e.exclusiveApproval = on }
}

func NewEngine(repo store.Repository, images storage.Uploader, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		images: images,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.images == nil {
		e.images = storage.Disabled{}
	}
	return e
}

// Image is an optional upload attached to a create or update call
type Image struct {
	Filename string
	Reader   io.Reader
}

type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

func normalizePage(limit, offset, def int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// UploadImage stores an image best-effort. A failure is logged and yields nil.
func (e *Engine) UploadImage(ctx context.Context, img *Image, kind storage.ImageKind) *string {
	if img == nil || img.Reader == nil {
		return nil
	}
	url, err := e.images.UploadImage(ctx, img.Reader, img.Filename, kind)
	if err != nil {
		if !errors.Is(err, storage.ErrDisabled) {
			e.metrics.ImageUploadFailed()
		}
		e.logger.Warn("image upload failed, continuing without image",
			slog.String("kind", string(kind)),
			slog.String("filename", img.Filename),
			slog.String("error", err.Error()))
		return nil
	}
	return &url
}

func (e *Engine) internal(op string, err error) error {
	e.logger.Error(op+" failed", slog.String("error", err.Error()))
	return apperr.Internal(err)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
