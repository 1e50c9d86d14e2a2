package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"idmcore/internal/credential"
	"idmcore/internal/credential/handler/mocks"
	id "idmcore/pkg/domain"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Verifier

func setup(t *testing.T) (*mocks.MockVerifier, chi.Router) {
	verifier := mocks.NewMockVerifier(gomock.NewController(t))
	r := chi.NewRouter()
	New("/otp/verify", verifier, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return verifier, r
}

func post(r chi.Router, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/otp/verify", strings.NewReader(body)))
	return w
}

func TestVerify(t *testing.T) {
	entityID := id.EntityID(uuid.New())

	t.Run("success", func(t *testing.T) {
		verifier, r := setup(t)
		verifier.EXPECT().Verify(gomock.Any(), "alice", "123456").
			Return(credential.AuthenticationResult{Status: credential.StatusSuccess, EntityID: entityID}, nil)

		w := post(r, `{"username":" alice ","secret":"123456"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), entityID.String())
	})

	t.Run("deny is unauthorized", func(t *testing.T) {
		verifier, r := setup(t)
		verifier.EXPECT().Verify(gomock.Any(), "alice", "000000").Return(credential.Deny(), nil)

		w := post(r, `{"username":"alice","secret":"000000"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid credentials")
	})

	t.Run("missing secret", func(t *testing.T) {
		_, r := setup(t)
		w := post(r, `{"username":"alice"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, r := setup(t)
		w := post(r, `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
