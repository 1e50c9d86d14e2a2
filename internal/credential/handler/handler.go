// Package handler exposes local credential verification over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"idmcore/internal/credential"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/platform/httputil"
	"idmcore/pkg/requestcontext"
	"idmcore/pkg/validation"
)

// Verifier checks one credential for a username.
type Verifier interface {
	Verify(ctx context.Context, username, secret string) (credential.AuthenticationResult, error)
}

type Handler struct {
	logger   *slog.Logger
	verifier Verifier
	path     string
}

// New serves verifier at path, e.g. "/otp/verify".
func New(path string, verifier Verifier, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, verifier: verifier, path: path}
}

func (h *Handler) Register(r chi.Router) {
	r.Post(h.path, h.handleVerify)
}

type VerifyRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Secret   string `json:"secret" validate:"required,max=1024"`
}

func (r *VerifyRequest) Sanitize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Secret = strings.TrimSpace(r.Secret)
}

func (r *VerifyRequest) Validate() error {
	return validation.Validate(r)
}

type VerifyResponse struct {
	EntityID           string `json:"entityId"`
	OutdatedCredential string `json:"outdatedCredential,omitempty"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.verifier.Verify(ctx, req.Username, req.Secret)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential verification failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	if !result.Succeeded() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{
		EntityID:           result.EntityID.String(),
		OutdatedCredential: result.OutdatedCredential,
	})
}
