package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filebox/pkg/health"
)

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	health.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	t.Run("all checks pass", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{
			"database": func(ctx context.Context) error { return nil },
			"queue":    func(ctx context.Context) error { return nil },
		})

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("failing check reports unavailable", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{
			"database": func(ctx context.Context) error { return nil },
			"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
		})

		req := httptest.NewRequest(http.MethodGet, "/ready?format=json", nil)
		rec := httptest.NewRecorder()
		h(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp health.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, health.StatusUnhealthy, resp.Status)
		assert.Equal(t, health.StatusHealthy, resp.Checks["database"].Status)
		assert.Equal(t, health.StatusUnhealthy, resp.Checks["redis"].Status)
		assert.Contains(t, resp.Checks["redis"].Error, "connection refused")
	})

	t.Run("slow check times out", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{
			"slow": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}, health.WithTimeout(50*time.Millisecond))

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		h(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp health.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Checks["slow"].Error, "timeout")
	})

	t.Run("no checks means ready", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		health.ReadinessHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
