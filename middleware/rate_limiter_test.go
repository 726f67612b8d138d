package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablekart/merchant_backend/models"
)

func newLimitedApp(rl *RateLimiter) *echo.Echo {
	e := echo.New()
	e.Use(rl.RateLimit())
	ok := func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.Response{Success: true})
	}
	e.GET("/api/user/info", ok)
	e.POST("/api/auth/login", ok)
	return e
}

func limitedRequest(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestEndpointLimitAppliesRegardlessOfFirstPath(t *testing.T) {
	e := newLimitedApp(NewRateLimiter())

	// Warm the limiter state on a generously limited endpoint first.
	rec := limitedRequest(e, http.MethodGet, "/api/user/info")
	require.Equal(t, http.StatusOK, rec.Code)

	// Login bursts at 5, and that budget must hold even though this IP
	// was first seen elsewhere.
	for i := 0; i < 5; i++ {
		rec = limitedRequest(e, http.MethodPost, "/api/auth/login")
		require.Equal(t, http.StatusOK, rec.Code, "login request %d", i+1)
	}

	rec = limitedRequest(e, http.MethodPost, "/api/auth/login")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Too many requests", resp.Message)
	assert.NotEmpty(t, resp.RetryAfter)
}

func TestBlockedIPRejectsEveryEndpoint(t *testing.T) {
	e := newLimitedApp(NewRateLimiter())

	for i := 0; i < 6; i++ {
		limitedRequest(e, http.MethodPost, "/api/auth/login")
	}

	// Exhausting login blocks the IP outright, other paths included.
	rec := limitedRequest(e, http.MethodGet, "/api/user/info")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "IP address blocked due to too many requests", resp.Message)
	assert.NotEmpty(t, resp.RetryAfter)
}
