package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idmcore/internal/credreset/models"
	"idmcore/internal/credreset/service"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/platform/httputil"
	"idmcore/pkg/requestcontext"
)

// HeaderResetSession carries the token issued by /credreset/start.
const HeaderResetSession = "X-Reset-Session"

// Service defines the credential reset operations exposed over HTTP.
type Service interface {
	Start(ctx context.Context) (*service.Progress, error)
	SubmitIdentity(ctx context.Context, token, username, captcha string) (*service.Progress, error)
	AnswerQuestion(ctx context.Context, token, answer string) (*service.Progress, error)
	ChooseChannel(ctx context.Context, token string, channel models.Channel) (*service.Progress, error)
	SendEmailCode(ctx context.Context, token string) error
	VerifyEmailCode(ctx context.Context, token, code string) (*service.Progress, error)
	SendMobileCode(ctx context.Context, token string) error
	VerifyMobileCode(ctx context.Context, token, code string) (*service.Progress, error)
	SubmitNewCredential(ctx context.Context, token, secret string) error
	Cancel(ctx context.Context, token string) error
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/credreset", func(r chi.Router) {
		r.Post("/start", h.handleStart)
		r.Group(func(r chi.Router) {
			r.Use(requireToken)
			r.Post("/identity", h.handleIdentity)
			r.Post("/answer", h.handleAnswer)
			r.Post("/choose", h.handleChoose)
			r.Post("/email/send", h.handleSend(func(ctx context.Context, token string) error {
				return h.service.SendEmailCode(ctx, token)
			}))
			r.Post("/email/verify", h.handleVerify(h.service.VerifyEmailCode))
			r.Post("/mobile/send", h.handleSend(func(ctx context.Context, token string) error {
				return h.service.SendMobileCode(ctx, token)
			}))
			r.Post("/mobile/verify", h.handleVerify(h.service.VerifyMobileCode))
			r.Post("/final", h.handleFinal)
			r.Post("/cancel", h.handleCancel)
		})
	})
}

func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderResetSession) == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing reset session"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func token(r *http.Request) string {
	return r.Header.Get(HeaderResetSession)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.Start(r.Context())
	if err != nil {
		h.fail(w, r, "start", err)
		return
	}
	w.Header().Set(HeaderResetSession, progress.Token)
	httputil.WriteJSON(w, http.StatusCreated, toProgress(progress))
}

func (h *Handler) handleIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[IdentityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	progress, err := h.service.SubmitIdentity(ctx, token(r), req.Username, req.Captcha)
	h.writeProgress(w, r, "identity", progress, err)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AnswerRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	progress, err := h.service.AnswerQuestion(ctx, token(r), req.Answer)
	h.writeProgress(w, r, "answer", progress, err)
}

func (h *Handler) handleChoose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ChooseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	progress, err := h.service.ChooseChannel(ctx, token(r), models.Channel(req.Channel))
	h.writeProgress(w, r, "choose", progress, err)
}

func (h *Handler) handleSend(send func(ctx context.Context, token string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := send(r.Context(), token(r)); err != nil {
			h.fail(w, r, "send code", err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

type verifyFunc func(ctx context.Context, token, code string) (*service.Progress, error)

func (h *Handler) handleVerify(verify verifyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, ok := httputil.DecodeAndPrepare[CodeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return
		}
		progress, err := verify(ctx, token(r), req.Code)
		h.writeProgress(w, r, "verify code", progress, err)
	}
}

func (h *Handler) handleFinal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CredentialRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.SubmitNewCredential(ctx, token(r), req.Secret); err != nil {
		h.fail(w, r, "final", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), token(r)); err != nil {
		h.fail(w, r, "cancel", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeProgress(w http.ResponseWriter, r *http.Request, action string, progress *service.Progress, err error) {
	if err != nil {
		h.fail(w, r, action, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProgress(progress))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	ctx := r.Context()
	h.logger.InfoContext(ctx, "credential reset request failed",
		"request_id", requestcontext.RequestID(ctx),
		"action", action,
		"code", string(dErrors.CodeOf(err)),
	)
	httputil.WriteError(w, err)
}
