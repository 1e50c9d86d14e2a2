package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/platform/httputil"
	"idmcore/pkg/requestcontext"
)

const (
	HeaderAdminToken   = "X-Admin-Token"
	HeaderAdminActorID = "X-Admin-Actor-ID"
)

// RequireAdminToken guards admin routes with a shared token. An empty
// expected token locks the routes entirely.
//
// X-Admin-Actor-ID, when sent, must be the acting admin's entity id. It is
// carried in the context for audit attribution and as the author of admin
// comments.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	expected := []byte(expectedToken)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := []byte(r.Header.Get(HeaderAdminToken))
			if len(expected) == 0 || subtle.ConstantTimeCompare(token, expected) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			if actor := strings.TrimSpace(r.Header.Get(HeaderAdminActorID)); actor != "" {
				if _, err := uuid.Parse(actor); err != nil {
					httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "admin actor must be an entity id"))
					return
				}
				ctx = requestcontext.WithAdminActorID(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
