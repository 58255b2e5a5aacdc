package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:       http.StatusBadRequest,
		KindUnauthenticated:  http.StatusUnauthorized,
		KindForbidden:        http.StatusForbidden,
		KindNotFound:         http.StatusNotFound,
		KindConflict:         http.StatusConflict,
		KindInvalidState:     http.StatusBadRequest,
		KindInvalidOperation: http.StatusBadRequest,
		KindRateLimited:      http.StatusTooManyRequests,
		KindDependency:       http.StatusServiceUnavailable,
		KindInternal:         http.StatusInternalServerError,
		Kind("bogus"):        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), kind)
	}
}

func TestKindOfAndIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("Donation not found"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, NotFound("")))
	assert.False(t, errors.Is(err, Conflict("")))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestMessageHidesInternalCause(t *testing.T) {
	assert.Equal(t, "Internal server error", Message(Internal(errors.New("db password wrong"))))
	assert.Equal(t, "Internal server error", Message(errors.New("raw")))
	assert.Equal(t, "Donation is not available", Message(InvalidState("Donation is not available")))
	assert.Equal(t, "AI down", Message(Dependency("AI down", errors.New("quota"))))
}
