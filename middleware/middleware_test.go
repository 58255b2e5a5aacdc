package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"annadan-api/auth"
	"annadan-api/metrics"
	"annadan-api/models"
	"annadan-api/ratelimit"
	"annadan-api/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testUser = &models.User{ID: "user-1", Email: "a@test.com", Role: models.RoleUser}

func newTokens(expiry time.Duration) *auth.TokenManager {
	return auth.NewTokenManager("test-secret", expiry, "annadan", "annadan-users")
}

func whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": string(GetRole(c))})
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	tokens := newTokens(time.Hour)
	r := gin.New()
	r.GET("/me", AuthRequired(tokens), whoAmI)

	w := do(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Authentication required"}`, w.Body.String())

	w = do(r, http.MethodGet, "/me", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, w.Body.String())

	expired, err := newTokens(-time.Hour).GenerateToken(testUser)
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/me", expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Token expired"}`, w.Body.String())

	other, err := auth.NewTokenManager("other-secret", time.Hour, "annadan", "annadan-users").GenerateToken(testUser)
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/me", other)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	valid, err := tokens.GenerateToken(testUser)
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/me", valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user-1","role":"user"}`, w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	tokens := newTokens(time.Hour)
	r := gin.New()
	r.GET("/me", OptionalAuth(tokens), whoAmI)

	w := do(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"","role":""}`, w.Body.String())

	valid, err := tokens.GenerateToken(testUser)
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/me", valid)
	assert.JSONEq(t, `{"user_id":"user-1","role":"user"}`, w.Body.String())

	w = do(r, http.MethodGet, "/me", "garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"","role":""}`, w.Body.String())
}

func TestAuthErrorKeepsTokenFailure(t *testing.T) {
	expired, err := newTokens(-time.Hour).GenerateToken(testUser)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/why", OptionalAuth(newTokens(time.Hour)), func(c *gin.Context) {
		c.String(http.StatusOK, AuthError(c).Error())
	})

	assert.Equal(t, "Token expired", do(r, http.MethodGet, "/why", expired).Body.String())
	assert.Equal(t, "Authentication required", do(r, http.MethodGet, "/why", "").Body.String())
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	if id == "broken" {
		return nil, errors.New("db down")
	}
	u, ok := f[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func TestAdminRequiredReadsRoleFromStore(t *testing.T) {
	tokens := newTokens(time.Hour)
	users := fakeUsers{
		"admin-1": {ID: "admin-1", Role: models.RoleAdmin},
		// token still says admin, the table says otherwise
		"demoted": {ID: "demoted", Role: models.RoleUser},
	}
	r := gin.New()
	r.GET("/admin", AuthRequired(tokens), AdminRequired(users), whoAmI)

	token := func(id string, role models.UserRole) string {
		tok, err := tokens.GenerateToken(&models.User{ID: id, Role: role})
		require.NoError(t, err)
		return tok
	}

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/admin", token("admin-1", models.RoleAdmin)).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/admin", token("demoted", models.RoleAdmin)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/admin", token("ghost", models.RoleAdmin)).Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/admin", token("broken", models.RoleAdmin)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/admin", "").Code)
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	tokens := newTokens(time.Hour)
	limiter := ratelimit.New(rdb, nil, "test", 0.001, 2)
	r := gin.New()
	r.POST("/recipes", AuthRequired(tokens), RateLimit(limiter, nil), whoAmI)

	alice, err := tokens.GenerateToken(&models.User{ID: "alice"})
	require.NoError(t, err)
	bob, err := tokens.GenerateToken(&models.User{ID: "bob"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/recipes", alice).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/recipes", alice).Code)
	w := do(r, http.MethodPost, "/recipes", alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/recipes", bob).Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	r := gin.New()
	r.GET("/x", RateLimit(ratelimit.New(rdb, nil, "test", 1, 1), nil), whoAmI)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/x", whoAmI)

	w := do(r, http.MethodOptions, "/x", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerRecordsMetrics(t *testing.T) {
	m := metrics.New(nil)
	r := gin.New()
	r.Use(RequestLogger(nil, m))
	r.GET("/items/:id", whoAmI)

	do(r, http.MethodGet, "/items/1", "")
	do(r, http.MethodGet, "/items/2", "")
	do(r, http.MethodGet, "/nowhere", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/items/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}
