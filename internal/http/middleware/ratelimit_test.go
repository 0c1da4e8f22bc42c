package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tamv/internal/service"

	"github.com/gin-gonic/gin"
)

func TestLocalLimiterBurstThenRefill(t *testing.T) {
	l := newLocalLimiter(1, 2)
	now := time.Now()
	if !l.allow("a", now) || !l.allow("a", now) {
		t.Fatalf("burst of 2 should pass")
	}
	if l.allow("a", now) {
		t.Fatalf("third request in the same instant should be blocked")
	}
	if !l.allow("b", now) {
		t.Fatalf("other callers have their own bucket")
	}
	if !l.allow("a", now.Add(1100*time.Millisecond)) {
		t.Fatalf("token should refill after a second")
	}
}

func TestLocalLimiterSweepsIdle(t *testing.T) {
	l := newLocalLimiter(1, 1)
	now := time.Now()
	l.allow("old", now)
	l.sweep(now.Add(time.Hour))
	if len(l.visitors) != 0 {
		t.Fatalf("expected idle visitor removed, have %d", len(l.visitors))
	}
}

func TestRateLimitFallsBackToLocal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	redisClient = nil

	r := gin.New()
	r.GET("/x", RateLimit("test", 100, time.Minute, 0.001, 1), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request: %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", w.Code)
	}
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("middleware-secret")

	r := gin.New()
	r.GET("/me", JWT(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}

	token, err := service.GenerateJWT("user-42", time.Minute)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "user-42" {
		t.Fatalf("valid token: %d %q", w.Code, w.Body.String())
	}
}

func TestRequestIDEchoesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc" {
		t.Fatalf("expected echoed id, got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected generated id")
	}
}
