package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"idmcore/pkg/requestcontext"
)

func serve(h http.Handler) {
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestWithClockPinsTime(t *testing.T) {
	warsaw := time.FixedZone("CET", 3600)
	fixed := time.Date(2026, 3, 1, 13, 0, 0, 123456789, warsaw)

	var first, second time.Time
	serve(WithClock(func() time.Time { return fixed })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first = requestcontext.Now(r.Context())
		time.Sleep(5 * time.Millisecond)
		second = requestcontext.Now(r.Context())
	})))

	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC), first)
	assert.Equal(t, first, second)
}

func TestMiddlewareUsesWallClock(t *testing.T) {
	var captured time.Time
	before := time.Now().Truncate(Precision)
	serve(Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = requestcontext.Now(r.Context())
	})))

	assert.False(t, captured.Before(before))
	assert.False(t, captured.After(time.Now()))
	assert.Equal(t, time.UTC, captured.Location())
}
