package routes

import (
	"log/slog"
	"net/http"

	"annadan-api/auth"
	"annadan-api/handlers"
	"annadan-api/middleware"
	"annadan-api/ratelimit"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Handler       *handlers.Handler
	Tokens        *auth.TokenManager
	Users         middleware.UserLookup
	RecipeLimiter *ratelimit.Limiter
	Logger        *slog.Logger
	// Metrics serves /metrics when set
	Metrics http.Handler
}

func SetupRoutes(r *gin.Engine, d Deps) {
	h := d.Handler

	r.GET("/", handlers.Welcome)
	r.GET("/health", handlers.Health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.POST("/auth", h.Signup)
		public.GET("/auth", h.Signin)
		public.GET("/state-machine", handlers.GetStateMachineInfo)
		public.GET("/donations/:id", h.GetDonation)
	}

	// ── Optionally authenticated routes ────────────────────────────
	optional := r.Group("/api")
	optional.Use(middleware.OptionalAuth(d.Tokens))
	{
		// donor=me needs a caller, the public feed does not
		optional.GET("/donations", h.ListDonations)
		optional.POST("/feedback", h.SubmitFeedback)
	}

	// ── Authenticated routes ───────────────────────────────────────
	authed := r.Group("/api")
	authed.Use(middleware.AuthRequired(d.Tokens))
	{
		authed.POST("/donations", h.CreateDonation)

		authed.POST("/pickup-requests", h.CreatePickupRequest)
		authed.GET("/pickup-requests", h.ListPickupRequests)
		authed.GET("/pickup-requests/:id", h.GetPickupRequest)
		authed.PUT("/pickup-requests/:id", h.UpdatePickupRequest)
		authed.DELETE("/pickup-requests/:id", h.CancelPickupRequest)

		authed.GET("/profile", h.GetProfile)
		authed.PUT("/profile", h.UpdateProfile)

		authed.POST("/recipes", middleware.RateLimit(d.RecipeLimiter, d.Logger), h.GenerateRecipe)
		authed.GET("/recipes", h.ListRecipes)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api")
	admin.Use(middleware.AuthRequired(d.Tokens), middleware.AdminRequired(d.Users))
	{
		admin.GET("/feedback", h.ListFeedback)
	}
}
