package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"idmcore/internal/credential/otp"
	"idmcore/pkg/platform/httputil"
	"idmcore/pkg/requestcontext"
	"idmcore/pkg/validation"
)

// DefinitionStore reads and replaces the OTP credential definition.
type DefinitionStore interface {
	Definition() otp.Definition
	UpdateDefinition(ctx context.Context, updated otp.Definition) (int, error)
}

// DefinitionHandler lets administrators change the OTP definition.
type DefinitionHandler struct {
	logger      *slog.Logger
	definitions DefinitionStore
}

func NewDefinition(definitions DefinitionStore, logger *slog.Logger) *DefinitionHandler {
	return &DefinitionHandler{logger: logger, definitions: definitions}
}

func (h *DefinitionHandler) Register(r chi.Router) {
	r.Get("/admin/credentials/otp/definition", h.handleGet)
	r.Put("/admin/credentials/otp/definition", h.handleUpdate)
}

type DefinitionRequest struct {
	Issuer            string `json:"issuer" validate:"max=128"`
	CodeLength        int    `json:"codeLength" validate:"min=6,max=8"`
	Period            int    `json:"period" validate:"min=1,max=300"`
	Algorithm         string `json:"algorithm" validate:"oneof=SHA1 SHA256 SHA512"`
	AllowedDriftSteps int    `json:"allowedTimeDriftSteps" validate:"min=0,max=10"`
}

func (r *DefinitionRequest) Sanitize() {
	r.Issuer = strings.TrimSpace(r.Issuer)
	r.Algorithm = strings.ToUpper(strings.TrimSpace(r.Algorithm))
}

func (r *DefinitionRequest) Validate() error {
	return validation.Validate(r)
}

func (r *DefinitionRequest) definition() otp.Definition {
	return otp.Definition{
		Issuer: r.Issuer,
		Params: otp.Params{
			CodeLength: r.CodeLength,
			Period:     r.Period,
			Algorithm:  otp.HashAlgorithm(r.Algorithm),
		},
		AllowedDriftSteps: r.AllowedDriftSteps,
	}
}

type DefinitionResponse struct {
	Definition          otp.Definition `json:"definition"`
	OutdatedCredentials int            `json:"outdatedCredentials"`
}

func (h *DefinitionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, DefinitionResponse{Definition: h.definitions.Definition()})
}

func (h *DefinitionHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[DefinitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outdated, err := h.definitions.UpdateDefinition(ctx, req.definition())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to update otp definition", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DefinitionResponse{
		Definition:          h.definitions.Definition(),
		OutdatedCredentials: outdated,
	})
}
