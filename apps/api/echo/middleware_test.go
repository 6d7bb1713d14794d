package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_allow(t *testing.T) {
	now := time.Date(2022, 3, 1, 10, 0, 5, 0, time.UTC)
	rl := newRateLimiter(2)
	rl.nowFunc = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "clients are counted separately")

	now = now.Add(50 * time.Second) // same minute
	assert.False(t, rl.allow("10.0.0.1"))

	now = now.Add(10 * time.Second) // next minute
	assert.True(t, rl.allow("10.0.0.1"))
}

func TestRateLimiter_middleware(t *testing.T) {
	serve := func(app *echo.Echo, ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		return rec.Code
	}
	newApp := func(max int) *echo.Echo {
		app := echo.New()
		app.Use(newRateLimiter(max).middleware)
		app.GET("/", func(ctx echo.Context) error { return ctx.NoContent(http.StatusOK) })
		return app
	}

	t.Run("limited", func(t *testing.T) {
		app := newApp(3)
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, serve(app, "10.0.0.1"))
		}
		assert.Equal(t, http.StatusTooManyRequests, serve(app, "10.0.0.1"))
		assert.Equal(t, http.StatusOK, serve(app, "10.0.0.2"))
	})

	t.Run("disabled", func(t *testing.T) {
		app := newApp(0)
		for i := 0; i < 10; i++ {
			assert.Equal(t, http.StatusOK, serve(app, "10.0.0.1"))
		}
	})
}
