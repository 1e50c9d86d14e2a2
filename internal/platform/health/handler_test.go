package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, ReadinessResponse) {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body ReadinessResponse
	if path == "/health/ready" {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	}
	return w, body
}

func TestReadiness(t *testing.T) {
	t.Run("all up", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("redis", func(context.Context) error { return nil })
		h.RegisterCheck("postgres", func(context.Context) error { return nil })

		w, body := serve(t, h, "/health/ready")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", body.Status)
		require.Len(t, body.Checks, 2)
		assert.Equal(t, "postgres", body.Checks[0].Name)
	})

	t.Run("one down", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("postgres", func(context.Context) error { return nil })
		h.RegisterCheck("kafka", func(context.Context) error { return errors.New("no reachable broker") })

		w, body := serve(t, h, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "down", body.Checks[0].Status)
		assert.Equal(t, "no reachable broker", body.Checks[0].Error)
	})

	t.Run("slow check is cut off", func(t *testing.T) {
		h := New("test").WithTimeout(10 * time.Millisecond)
		h.RegisterCheck("redis", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		resp := h.Check(context.Background())
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, context.DeadlineExceeded.Error(), resp.Checks[0].Error)
	})

	t.Run("no checks is ready", func(t *testing.T) {
		w, _ := serve(t, New("test"), "/health/ready")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestLivenessAndStatus(t *testing.T) {
	w, _ := serve(t, New("production"), "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = serve(t, New("production"), "/health")
	var status StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "production", status.Environment)
	assert.Equal(t, "healthy", status.Status)
}
