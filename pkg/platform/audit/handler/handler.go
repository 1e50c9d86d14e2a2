package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	id "idmcore/pkg/domain"
	dErrors "idmcore/pkg/domain-errors"
	audit "idmcore/pkg/platform/audit"
	"idmcore/pkg/platform/httputil"
	"idmcore/pkg/requestcontext"
)

// Lister reads persisted audit events.
type Lister interface {
	List(ctx context.Context, q audit.Query) ([]audit.Event, error)
}

type Handler struct {
	events Lister
	logger *slog.Logger
}

func New(events Lister, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{events: events, logger: logger}
}

// Register mounts GET /admin/audit/events. The caller guards it.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/audit/events", h.handleList)
}

type EventView struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Subject   string            `json:"subject"`
	EntityID  *id.EntityID      `json:"entity_id,omitempty"`
	Decision  string            `json:"decision,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

func toView(e audit.Event) EventView {
	v := EventView{
		Timestamp: e.Timestamp,
		Action:    e.Action,
		Subject:   e.Subject,
		Decision:  e.Decision,
		Reason:    e.Reason,
		ClientIP:  e.ClientIP,
		UserAgent: e.UserAgent,
		RequestID: e.RequestID,
		Details:   e.Details,
	}
	if !e.EntityID.IsNil() {
		entityID := e.EntityID
		v.EntityID = &entityID
	}
	return v
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.events.List(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list audit events"))
		return
	}
	out := make([]EventView, len(events))
	for i, e := range events {
		out[i] = toView(e)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": out})
}

func parseQuery(values url.Values) (audit.Query, error) {
	q := audit.Query{
		Subject: values.Get("subject"),
		Action:  values.Get("action"),
	}
	if raw := values.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Query{}, dErrors.New(dErrors.CodeInvalidInput, "since must be an RFC 3339 timestamp")
		}
		q.Since = since
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return audit.Query{}, dErrors.Newf(dErrors.CodeInvalidInput, "limit must be between 1 and %d", audit.MaxQueryLimit)
		}
		q.Limit = limit
	}
	return q, nil
}
