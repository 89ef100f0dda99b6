package routes

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"store-ratings-api/auth"
	"store-ratings-api/config"
	"store-ratings-api/handlers"
	"store-ratings-api/metrics"
	"store-ratings-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newEngine(t *testing.T, limiter *middleware.RateLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := config.OpenDB(":memory:", nil)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	m := metrics.New()
	issuer := auth.NewIssuer("routes-secret", time.Hour)
	r, err := NewEngine(Deps{
		Handler:     handlers.New(db, issuer, m, log, bcrypt.MinCost),
		Issuer:      issuer,
		AuthLimiter: limiter,
		Metrics:     m,
		Log:         log,
		CORSOrigin:  "https://ratings.example.com",
	})
	require.NoError(t, err)
	return r
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	r := newEngine(t, middleware.NewRateLimiter(0.001, 2))

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"nobody@example.com","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusUnauthorized, login())
	assert.Equal(t, http.StatusUnauthorized, login())
	assert.Equal(t, http.StatusTooManyRequests, login())

	// other routes do not share the auth bucket
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stores", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitIgnoresForwardedFor(t *testing.T) {
	r := newEngine(t, middleware.NewRateLimiter(0.001, 2))

	codes := map[int]int{}
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"nobody@example.com","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes[rec.Code]++
	}
	assert.Equal(t, map[int]int{http.StatusUnauthorized: 2, http.StatusTooManyRequests: 18}, codes)
}

func TestTrustedProxyForwardsClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)
	r, err := NewEngine(Deps{
		Handler:        &handlers.Handler{},
		Metrics:        metrics.New(),
		Log:            log,
		TrustedProxies: []string{"192.0.2.0/24"},
	})
	require.NoError(t, err)

	var seen string
	r.GET("/ip", func(c *gin.Context) { seen = c.ClientIP() })
	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "192.0.2.10:4321"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.7", seen)

	_, err = NewEngine(Deps{Metrics: metrics.New(), Log: log, TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
}

func TestGroupsApplyGuards(t *testing.T) {
	r := newEngine(t, nil)

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/stores", http.StatusOK},
		{http.MethodGet, "/api/stores/top", http.StatusOK},
		{http.MethodGet, "/api/me", http.StatusUnauthorized},
		{http.MethodPost, "/api/stores", http.StatusUnauthorized},
		{http.MethodGet, "/api/stores/mine/ratings", http.StatusUnauthorized},
		{http.MethodPatch, "/api/stores/00000000-0000-4000-8000-000000000000", http.StatusUnauthorized},
		{http.MethodPost, "/api/ratings/00000000-0000-4000-8000-000000000000", http.StatusUnauthorized},
		{http.MethodGet, "/api/admin/stats", http.StatusUnauthorized},
		{http.MethodGet, "/health", http.StatusOK},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newEngine(t, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/stores", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://ratings.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}
