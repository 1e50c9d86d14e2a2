package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idmcore/internal/bulk/models"
	id "idmcore/pkg/domain"
	"idmcore/pkg/platform/httputil"
	"idmcore/pkg/requestcontext"
)

// Scheduler defines the bulk rule operations exposed over HTTP.
type Scheduler interface {
	ScheduleImmediateJob(ctx context.Context, rule models.Rule) (string, error)
	ScheduleJob(ctx context.Context, rule models.Rule) error
	UpdateJob(ctx context.Context, rule models.Rule) error
	UndeployJob(ctx context.Context, ruleID id.RuleID) error
	ScheduledRulesWithTS() []models.ScheduledRule
}

type Handler struct {
	logger    *slog.Logger
	scheduler Scheduler
}

func New(scheduler Scheduler, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, scheduler: scheduler}
}

// Register mounts the admin bulk routes. The caller guards them.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/bulk/rules", h.handleList)
	r.Post("/admin/bulk/rules", h.handleCreate)
	r.Put("/admin/bulk/rules/{id}", h.handleUpdate)
	r.Delete("/admin/bulk/rules/{id}", h.handleUndeploy)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	rules := h.scheduler.ScheduledRulesWithTS()
	out := make([]RuleView, len(rules))
	for i, rule := range rules {
		out[i] = toView(rule)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"rules": out})
}

// handleCreate schedules the rule, or runs it once now when it has no cron
// expression.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RuleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	rule := req.toRule(req.ID)

	if rule.CronExpression == "" {
		key, err := h.scheduler.ScheduleImmediateJob(ctx, rule)
		if err != nil {
			h.fail(ctx, w, "run", err)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"key": key})
		return
	}
	if err := h.scheduler.ScheduleJob(ctx, rule); err != nil {
		h.fail(ctx, w, "schedule", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"id": rule.ID.String()})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleID, err := id.ParseRuleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RuleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.scheduler.UpdateJob(ctx, req.toRule(ruleID.String())); err != nil {
		h.fail(ctx, w, "update", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUndeploy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleID, err := id.ParseRuleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.scheduler.UndeployJob(ctx, ruleID); err != nil {
		h.fail(ctx, w, "undeploy", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	h.logger.WarnContext(ctx, "bulk rule request failed",
		"request_id", requestcontext.RequestID(ctx),
		"action", action,
		"error", err,
	)
	httputil.WriteError(w, err)
}
