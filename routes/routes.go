package routes

import (
	"fmt"

	"store-ratings-api/auth"
	"store-ratings-api/handlers"
	"store-ratings-api/metrics"
	"store-ratings-api/middleware"
	"store-ratings-api/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps is everything the router needs.
type Deps struct {
	Handler     *handlers.Handler
	Issuer      *auth.Issuer
	AuthLimiter *middleware.RateLimiter
	Metrics     *metrics.Metrics
	Log         logrus.FieldLogger
	CORSOrigin  string

	// TrustedProxies decides which peers may set the client IP through
	// X-Forwarded-For. Nil trusts none, so the socket address is used.
	TrustedProxies []string
}

// NewEngine builds a gin engine with the global middleware stack and every route.
func NewEngine(d Deps) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(
		middleware.RequestLogger(d.Log),
		middleware.Metrics(d.Metrics),
		middleware.Recovery(d.Log),
		middleware.CORS(d.CORSOrigin),
	)
	SetupRoutes(r, d)
	return r, nil
}

func SetupRoutes(r *gin.Engine, d Deps) {
	h := d.Handler

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	r.NoRoute(middleware.NotFound)

	// ── Auth routes (rate limited) ─────────────────────────────────
	authGroup := r.Group("/api/auth")
	if d.AuthLimiter != nil {
		authGroup.Use(d.AuthLimiter.Handler())
	}
	{
		// An admin token lets register assign OWNER or ADMIN.
		authGroup.POST("/register", middleware.OptionalAuth(d.Issuer), h.Register)
		authGroup.POST("/login", h.Login)
	}

	// ── Public routes (token optional) ─────────────────────────────
	public := r.Group("/api")
	public.Use(middleware.OptionalAuth(d.Issuer))
	{
		public.GET("/stores", h.ListStores)
		public.GET("/stores/top", h.TopStores)
		public.GET("/stores/:id", h.GetStore)
		public.GET("/ratings/:storeId", h.ListRatings)
	}

	// ── Authenticated routes ───────────────────────────────────────
	authed := r.Group("/api")
	authed.Use(middleware.AuthRequired(d.Issuer))
	{
		authed.GET("/me", h.GetProfile)
		authed.PATCH("/me/password", h.ChangePassword)

		// Ownership is checked per store in the handler.
		authed.PATCH("/stores/:id", h.UpdateStore)
		authed.DELETE("/stores/:id", h.DeleteStore)

		authed.POST("/ratings/:storeId", h.RateStore)
	}

	// ── Store owner routes ─────────────────────────────────────────
	owner := r.Group("/api/stores")
	owner.Use(middleware.AuthRequired(d.Issuer), middleware.RoleRequired(models.RoleOwner, models.RoleAdmin))
	{
		owner.POST("", h.CreateStore)
		owner.GET("/mine/ratings", h.MyStoreRatings)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(d.Issuer), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/users", h.AdminListUsers)
		admin.POST("/users", h.AdminCreateUser)
		admin.GET("/users/:id", h.AdminGetUser)
		admin.GET("/stats", h.AdminStats)
		admin.POST("/stores/:id/toggle", h.AdminToggleStore)
	}
}
