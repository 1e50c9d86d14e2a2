package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idmcore/internal/enquiry/models"
	"idmcore/internal/forms"
	id "idmcore/pkg/domain"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/platform/httputil"
	"idmcore/pkg/requestcontext"
)

// Service defines the enquiry operations exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, input forms.BaseRegistrationInput, entityID id.EntityID) (id.ResponseID, error)
	Get(ctx context.Context, responseID id.ResponseID) (*models.Response, error)
	Accept(ctx context.Context, responseID id.ResponseID, publicComment, internalComment *models.AdminComment) error
	Reject(ctx context.Context, responseID id.ResponseID, publicComment, internalComment *models.AdminComment) error
	Drop(ctx context.Context, responseID id.ResponseID) error
	AutoProcess(ctx context.Context, responseID id.ResponseID) (bool, error)
	HasPending(ctx context.Context, entityID id.EntityID, formID string) (bool, error)
	RemovePending(ctx context.Context, entityID id.EntityID, formID string) (int, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the admin enquiry routes. The caller guards them.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/enquiries", h.handleSubmit)
	r.Get("/admin/enquiries/{id}", h.handleGet)
	r.Post("/admin/enquiries/{id}/accept", h.handleAccept)
	r.Post("/admin/enquiries/{id}/reject", h.handleReject)
	r.Post("/admin/enquiries/{id}/auto", h.handleAutoProcess)
	r.Delete("/admin/enquiries/{id}", h.handleDrop)
	r.Get("/admin/entities/{entityId}/enquiries/{formId}/pending", h.handleHasPending)
	r.Delete("/admin/entities/{entityId}/enquiries/{formId}/pending", h.handleRemovePending)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	entityID, err := id.ParseEntityID(req.EntityID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid entity id"))
		return
	}

	responseID, err := h.service.Submit(ctx, req.Input, entityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to submit enquiry response",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.service.Get(ctx, responseID)
	if err != nil {
		// Auto-processing may have dropped it.
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"id": responseID.String()})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(resp))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	responseID, ok := h.responseID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Get(ctx, responseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(resp))
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "accept", h.service.Accept)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject", h.service.Reject)
}

type decideFunc func(ctx context.Context, responseID id.ResponseID, publicComment, internalComment *models.AdminComment) error

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, action string, fn decideFunc) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	responseID, ok := h.responseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	author := adminAuthor(ctx)
	now := requestcontext.Now(ctx)
	if err := fn(ctx, responseID, req.public(author, now), req.internal(author, now)); err != nil {
		h.logger.WarnContext(ctx, "enquiry decision failed",
			"request_id", requestID,
			"response_id", responseID.String(),
			"action", action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.writeCurrent(w, ctx, responseID)
}

func (h *Handler) handleAutoProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	responseID, ok := h.responseID(w, r)
	if !ok {
		return
	}
	accepted, err := h.service.AutoProcess(ctx, responseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AutoProcessResponse{Accepted: accepted})
}

func (h *Handler) handleDrop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	responseID, ok := h.responseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Drop(ctx, responseID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHasPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, ok := h.entityID(w, r)
	if !ok {
		return
	}
	pending, err := h.service.HasPending(ctx, entityID, chi.URLParam(r, "formId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PendingResponse{Pending: pending})
}

func (h *Handler) handleRemovePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, ok := h.entityID(w, r)
	if !ok {
		return
	}
	removed, err := h.service.RemovePending(ctx, entityID, chi.URLParam(r, "formId"))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to remove pending responses",
			"request_id", requestcontext.RequestID(ctx),
			"entity_id", entityID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RemovedResponse{Removed: removed})
}

func (h *Handler) writeCurrent(w http.ResponseWriter, ctx context.Context, responseID id.ResponseID) {
	resp, err := h.service.Get(ctx, responseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(resp))
}

func (h *Handler) responseID(w http.ResponseWriter, r *http.Request) (id.ResponseID, bool) {
	responseID, err := id.ParseResponseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid response id"))
		return id.ResponseID{}, false
	}
	return responseID, true
}

func (h *Handler) entityID(w http.ResponseWriter, r *http.Request) (id.EntityID, bool) {
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityId"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid entity id"))
		return id.EntityID{}, false
	}
	return entityID, true
}

// adminAuthor is the entity id of the acting admin, when the actor header
// carries one.
func adminAuthor(ctx context.Context) id.EntityID {
	author, err := id.ParseEntityID(requestcontext.AdminActorID(ctx))
	if err != nil {
		return id.EntityID{}
	}
	return author
}
