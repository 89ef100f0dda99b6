package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"store-ratings-api/apperror"
	"store-ratings-api/auth"
	"store-ratings-api/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newRouter(issuer *auth.Issuer) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(quietLogger()))
	r.NoRoute(NotFound)

	ok := func(c *gin.Context) {
		id, _ := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID})
	}
	r.GET("/open", OptionalAuth(issuer), ok)
	r.GET("/me", AuthRequired(issuer), ok)
	r.POST("/stores", AuthRequired(issuer), RoleRequired(models.RoleOwner, models.RoleAdmin), ok)
	r.GET("/guard-only", RoleRequired(models.RoleAdmin), ok)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, method, path, token string) (*httptest.ResponseRecorder, apperror.Body) {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var body apperror.Body
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestAuthRequired_MissingVsInvalid(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	r := newRouter(issuer)

	rec, body := do(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgMissingToken, body.Message)
	assert.Equal(t, apperror.KindUnauthorized, body.Error)

	foreign, _, err := auth.NewIssuer("another-secret", time.Hour).Issue("u1", models.RoleAdmin)
	require.NoError(t, err)
	rec, body = do(r, http.MethodGet, "/me", foreign)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgInvalidToken, body.Message)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired_Valid(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	token, _, err := issuer.Issue("u1", models.RoleUser)
	require.NoError(t, err)

	rec, _ := do(newRouter(issuer), http.MethodGet, "/me", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"u1"}`, rec.Body.String())
}

func TestRoleRequired(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	r := newRouter(issuer)

	userToken, _, _ := issuer.Issue("u1", models.RoleUser)
	rec, body := do(r, http.MethodPost, "/stores", userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperror.KindForbidden, body.Error)

	ownerToken, _, _ := issuer.Issue("u2", models.RoleOwner)
	rec, _ = do(r, http.MethodPost, "/stores", ownerToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(r, http.MethodGet, "/guard-only", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	r := newRouter(issuer)

	rec, _ := do(r, http.MethodGet, "/open", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":""}`, rec.Body.String())

	rec, _ = do(r, http.MethodGet, "/open", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotFoundAndRecovery(t *testing.T) {
	r := newRouter(auth.NewIssuer("secret", time.Hour))

	rec, body := do(r, http.MethodGet, "/nowhere?x=1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperror.Body{Status: 404, Error: apperror.KindNotFound, Path: "/nowhere?x=1"}, body)

	rec, body = do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperror.KindInternal, body.Error)
	assert.Equal(t, apperror.InternalMessage, body.Message)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.POST("/login", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		rec, _ := do(r, http.MethodPost, "/login", "")
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiter("10.0.0.1")
	rl.limiter("10.0.0.2")
	require.Equal(t, 2, rl.Len())

	now = now.Add(DefaultLimiterIdle / 2)
	rl.limiter("10.0.0.2")
	assert.Zero(t, rl.Cleanup(), "nothing is idle yet")

	now = now.Add(DefaultLimiterIdle/2 + time.Second)
	assert.Equal(t, 1, rl.Cleanup())
	assert.Equal(t, 1, rl.Len())

	now = now.Add(DefaultLimiterIdle)
	assert.Equal(t, 1, rl.Cleanup())
	assert.Zero(t, rl.Len())
}

func TestRateLimiter_StartCleanupStopsWithContext(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.idle = 0
	rl.limiter("10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl.StartCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return rl.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS("*"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec, _ := do(r, http.MethodOptions, "/x", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
