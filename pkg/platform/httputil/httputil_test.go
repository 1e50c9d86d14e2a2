package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "idmcore/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		descrShown bool
	}{
		{name: "expired reset session", err: dErrors.New(dErrors.CodeExpired, "reset session expired"), status: http.StatusUnauthorized, code: "expired", descrShown: true},
		{name: "step mismatch", err: dErrors.New(dErrors.CodeSecurityViolation, "invalid reset step"), status: http.StatusForbidden, code: "security_violation", descrShown: true},
		{name: "locked out", err: dErrors.New(dErrors.CodeTooManyAttempts, "invalid username or answer"), status: http.StatusTooManyRequests, code: "too_many_attempts", descrShown: true},
		{name: "internal hides message", err: dErrors.Wrap(errors.New("db down"), dErrors.CodeInternal, "there is no scheduled rule x"), status: http.StatusInternalServerError, code: "internal_error"},
		{name: "broken definition", err: dErrors.New(dErrors.CodeConfiguration, "unknown credential otp"), status: http.StatusUnprocessableEntity, code: "configuration_error", descrShown: true},
		{name: "plain error", err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			body := errorBody(t, w)
			assert.Equal(t, tt.code, body["error"])
			_, shown := body["error_description"]
			assert.Equal(t, tt.descrShown, shown)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(dErrors.CodeValidation))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(dErrors.Code("made_up")))
}
