package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"idmcore/internal/credential/handler/mocks"
	"idmcore/internal/credential/otp"
	dErrors "idmcore/pkg/domain-errors"
)

//go:generate mockgen -source=definition.go -destination=mocks/definition.go -package=mocks DefinitionStore

func setupDefinition(t *testing.T) (*mocks.MockDefinitionStore, chi.Router) {
	store := mocks.NewMockDefinitionStore(gomock.NewController(t))
	r := chi.NewRouter()
	NewDefinition(store, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return store, r
}

func put(r chi.Router, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/admin/credentials/otp/definition", strings.NewReader(body)))
	return w
}

func TestUpdateDefinition(t *testing.T) {
	want := otp.Definition{
		Issuer:            "idm",
		Params:            otp.Params{CodeLength: 8, Period: 30, Algorithm: otp.SHA256},
		AllowedDriftSteps: 2,
	}

	t.Run("reports outdated credentials", func(t *testing.T) {
		store, r := setupDefinition(t)
		store.EXPECT().UpdateDefinition(gomock.Any(), want).Return(3, nil)
		store.EXPECT().Definition().Return(want)

		w := put(r, `{"issuer":" idm ","codeLength":8,"period":30,"algorithm":"sha256","allowedTimeDriftSteps":2}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"outdatedCredentials":3`)
		assert.Contains(t, w.Body.String(), `"algorithm":"SHA256"`)
	})

	t.Run("unknown algorithm never reaches the verificator", func(t *testing.T) {
		_, r := setupDefinition(t)
		w := put(r, `{"codeLength":6,"period":30,"algorithm":"MD5"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("configuration error", func(t *testing.T) {
		store, r := setupDefinition(t)
		store.EXPECT().UpdateDefinition(gomock.Any(), gomock.Any()).
			Return(0, dErrors.New(dErrors.CodeConfiguration, "otp definition change needs an entity lister"))

		w := put(r, `{"codeLength":6,"period":60,"algorithm":"SHA1"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestGetDefinition(t *testing.T) {
	store, r := setupDefinition(t)
	store.EXPECT().Definition().Return(otp.Definition{Issuer: "idm", Params: otp.DefaultParams()})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/credentials/otp/definition", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"codeLength":6`)
}
