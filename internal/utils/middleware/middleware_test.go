package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/videolens/server/internal/infra/auth"
	"github.com/videolens/server/internal/utils/logger"
	"github.com/videolens/server/internal/utils/metrics"
	"github.com/videolens/server/internal/utils/requestctx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newBufferLogger(level string) (*logger.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return logger.New(&logger.Config{Level: level, Format: "json", Output: buf}), buf
}

func TestRequestID(t *testing.T) {
	t.Run("generates new request ID when not provided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID(nil))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		headerID := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, headerID)
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID(nil))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, requestctx.RequestID(c.Request.Context()))
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "existing-request-id-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "existing-request-id-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "existing-request-id-123", w.Body.String())
	})

	t.Run("attaches a request scoped logger", func(t *testing.T) {
		log, buf := newBufferLogger("info")

		router := gin.New()
		router.Use(RequestID(log))
		router.GET("/test", func(c *gin.Context) {
			logger.FromContext(c.Request.Context()).Info("inside handler")
			c.Status(http.StatusNoContent)
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Contains(t, buf.String(), "inside handler")
		assert.Contains(t, buf.String(), "req-42")
	})
}

func TestGetRequestID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetRequestID(c))

	c.Set(RequestIDKey, "test-id")
	assert.Equal(t, "test-id", GetRequestID(c))
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"logs successful requests as info", http.StatusOK, "INFO"},
		{"logs 4xx requests as warnings", http.StatusNotFound, "WARN"},
		{"logs 5xx requests as errors", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := newBufferLogger("info")

			router := gin.New()
			router.Use(RequestID(nil))
			router.Use(Logging(log))
			router.GET("/plans/:id", func(c *gin.Context) {
				c.String(tt.status, "body")
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/plans/pro", nil))

			assert.Equal(t, tt.status, w.Code)
			out := buf.String()
			assert.Contains(t, out, "HTTP Request")
			assert.Contains(t, out, tt.level)
			assert.Contains(t, out, "/plans/pro")
			assert.Contains(t, out, "/plans/:id")
			assert.Contains(t, out, w.Header().Get(RequestIDHeader))
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		log, buf := newBufferLogger("error")

		router := gin.New()
		router.Use(Recovery(log))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		w := httptest.NewRecorder()
		require.NotPanics(t, func() {
			router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "internal_error")
		assert.Contains(t, buf.String(), "panic recovered")
		assert.Contains(t, buf.String(), "test panic")
	})

	t.Run("uses default logger when nil", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(nil))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		w := httptest.NewRecorder()
		require.NotPanics(t, func() {
			router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS(CORSConfig{AllowOrigins: []string{"https://app.videolens.io"}}))
	router.GET("/plans", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("OPTIONS", "/plans", nil)
	req.Header.Set("Origin", "https://app.videolens.io")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.videolens.io", w.Header().Get("Access-Control-Allow-Origin"))

	cfg := DefaultCORSConfig()
	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
	assert.False(t, cfg.AllowCredentials)
}

func TestAuth(t *testing.T) {
	validator, err := auth.NewValidator(auth.Config{Secret: "test-secret"})
	require.NoError(t, err)

	userID := uuid.New()
	token, err := validator.IssueToken(userID, "user@example.com", time.Hour)
	require.NoError(t, err)

	newRouter := func(optional bool) *gin.Engine {
		router := gin.New()
		router.Use(Auth(validator, optional))
		router.GET("/me", func(c *gin.Context) {
			c.String(http.StatusOK, GetUserID(c).String())
		})
		return router
	}

	t.Run("accepts a valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set(AuthorizationHeader, BearerPrefix+token)
		w := httptest.NewRecorder()
		newRouter(false).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID.String(), w.Body.String())
	})

	t.Run("rejects missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(false).ServeHTTP(w, httptest.NewRequest("GET", "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "unauthorized")
	})

	t.Run("rejects invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set(AuthorizationHeader, BearerPrefix+"not-a-token")
		w := httptest.NewRecorder()
		newRouter(false).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("optional auth lets anonymous requests through", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(true).ServeHTTP(w, httptest.NewRequest("GET", "/me", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uuid.Nil.String(), w.Body.String())
	})
}

func TestMetrics(t *testing.T) {
	m := metrics.NewWithRegistry("test", prometheus.NewRegistry())

	router := gin.New()
	router.Use(Metrics(m))
	router.GET("/plans/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/plans/pro", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/missing", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/plans/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsInFlight))
}

func TestIdempotency(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls atomic.Int32
	router := gin.New()
	router.Use(Idempotency(client, IdempotencyConfig{TTL: time.Minute}))
	router.POST("/checkout", func(c *gin.Context) {
		n := calls.Add(1)
		c.JSON(http.StatusCreated, gin.H{"call": n})
	})

	post := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/checkout", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("replays the stored response", func(t *testing.T) {
		first := post("key-1", `{"plan":"pro"}`)
		second := post("key-1", `{"plan":"pro"}`)

		assert.Equal(t, http.StatusCreated, first.Code)
		assert.Equal(t, http.StatusCreated, second.Code)
		assert.JSONEq(t, first.Body.String(), second.Body.String())
		assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("different body is a new request", func(t *testing.T) {
		w := post("key-1", `{"plan":"max"}`)
		assert.JSONEq(t, `{"call":2}`, w.Body.String())
	})

	t.Run("no key passes through", func(t *testing.T) {
		post("", `{"plan":"pro"}`)
		w := post("", `{"plan":"pro"}`)
		assert.JSONEq(t, `{"call":4}`, w.Body.String())
	})

	t.Run("in-flight key conflicts", func(t *testing.T) {
		var lockKey string
		inner := gin.New()
		inner.POST("/checkout", func(c *gin.Context) {
			lockKey = idempotencyCacheKey(c, "key-2") + ":lock"
		})
		inner.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/checkout", strings.NewReader(`{"plan":"student"}`)))
		require.NoError(t, mr.Set(lockKey, "1"))

		w := post("key-2", `{"plan":"student"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

type fakeLimiter struct {
	remaining int
	err       error
	keys      []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, int, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, 0, l.err
	}
	if l.remaining <= 0 {
		return false, 0, nil
	}
	l.remaining--
	return true, l.remaining, nil
}

func TestRateLimitByUser(t *testing.T) {
	newRouter := func(limiter Limiter) *gin.Engine {
		router := gin.New()
		router.Use(RateLimitByUser(limiter, RateLimitConfig{Limit: 2, Window: time.Minute}))
		router.POST("/checkout", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("blocks once the window is spent", func(t *testing.T) {
		limiter := &fakeLimiter{remaining: 1}
		router := newRouter(limiter)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/checkout", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get(RateLimitLimit))
		assert.Equal(t, "0", w.Header().Get(RateLimitRemaining))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/checkout", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get(RetryAfter))
		assert.True(t, strings.HasPrefix(limiter.keys[0], "/checkout:ip:"))
	})

	t.Run("limiter errors fail open", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(&fakeLimiter{err: errors.New("redis down")}).ServeHTTP(w, httptest.NewRequest("POST", "/checkout", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
