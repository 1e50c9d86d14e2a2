package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idmcore/pkg/domain-errors"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type answerRequest struct {
	Answer string `json:"answer"`
	steps  []string
}

func (r *answerRequest) Sanitize() {
	r.steps = append(r.steps, "sanitize")
	r.Answer = strings.TrimSpace(r.Answer)
}

func (r *answerRequest) Normalize() {
	r.steps = append(r.steps, "normalize")
	r.Answer = strings.ToLower(r.Answer)
}

func (r *answerRequest) Validate() error {
	r.steps = append(r.steps, "validate")
	if r.Answer == "" {
		return errors.New("answer is required")
	}
	return nil
}

type ruleRequest struct {
	Cron string `json:"cron"`
}

func (r *ruleRequest) Validate() error {
	if r.Cron == "" {
		return dErrors.New(dErrors.CodeConflict, "rule exists")
	}
	return nil
}

func decode[T any](body string) (*T, bool, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req, ok := DecodeAndPrepare[T](w, r, discard, context.Background(), "req-1")
	return req, ok, w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("hooks run in order", func(t *testing.T) {
		req, ok, _ := decode[answerRequest](`{"answer":"  Blue "}`)
		require.True(t, ok)
		assert.Equal(t, "blue", req.Answer)
		assert.Equal(t, []string{"sanitize", "normalize", "validate"}, req.steps)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, ok, w := decode[answerRequest](`{"answer":`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", errorBody(t, w)["error"])
	})

	t.Run("body problems", func(t *testing.T) {
		tests := []struct {
			body string
			want string
		}{
			{``, "request body is empty"},
			{`{"answer":"a"} {"answer":"b"}`, "request body must hold a single JSON value"},
			{`{"answer":42}`, "answer must be a string"},
		}
		for _, tt := range tests {
			_, ok, w := decode[answerRequest](tt.body)
			assert.False(t, ok, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, tt.body)
			assert.Equal(t, tt.want, errorBody(t, w)["error_description"], tt.body)
		}

		_, _, w := decode[answerRequest](`{"answer" "x"}`)
		assert.Contains(t, errorBody(t, w)["error_description"], "invalid request body at offset")
	})

	t.Run("plain validation error becomes validation_error", func(t *testing.T) {
		_, ok, w := decode[answerRequest](`{"answer":"   "}`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := errorBody(t, w)
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "answer is required", body["error_description"])
	})

	t.Run("domain error keeps its code", func(t *testing.T) {
		_, ok, w := decode[ruleRequest](`{}`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("type without hooks", func(t *testing.T) {
		req, ok, _ := decode[struct {
			Name string `json:"name"`
		}](`{"name":"alice"}`)
		require.True(t, ok)
		assert.Equal(t, "alice", req.Name)
	})
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"answer":"`+strings.Repeat("x", 64)+`"}`))
	r.Body = http.MaxBytesReader(w, r.Body, 16)

	_, ok := DecodeJSON[answerRequest](w, r, discard, context.Background(), "req-1")
	assert.False(t, ok)
	assert.Equal(t, "request body too large", errorBody(t, w)["error_description"])
}
