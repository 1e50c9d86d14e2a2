package audit

import (
	"context"
	"fmt"
	"log/slog"

	id "idmcore/pkg/domain"
	"idmcore/pkg/requestcontext"
)

// Emitter accepts events for persistence. *publisher.Publisher implements it.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger writes each audit event to the text log and hands it to an Emitter.
// Either collaborator may be nil.
type Logger struct {
	text    *slog.Logger
	emitter Emitter
}

func NewLogger(text *slog.Logger, emitter Emitter) *Logger {
	return &Logger{text: text, emitter: emitter}
}

// Log records event with slog-style key/value attributes. The keys subject,
// entity_id, decision and reason fill the matching Event fields; any other
// key lands in Event.Details. Request id and client metadata come from ctx.
//
//	auditor.Log(ctx, audit.EventEnquiryAccepted, "subject", responseID.String(), "entity_id", entityID.String())
func (l *Logger) Log(ctx context.Context, event AuditEvent, attributes ...any) {
	if l == nil {
		return
	}
	e := newEvent(ctx, event, attributes)

	if l.text != nil {
		args := make([]any, 0, len(attributes)+6)
		args = append(args, attributes...)
		if e.RequestID != "" {
			args = append(args, "request_id", e.RequestID)
		}
		args = append(args, "event", e.Action, "log_type", "audit")
		l.text.InfoContext(ctx, e.Action, args...)
	}

	if l.emitter == nil {
		return
	}
	if err := l.emitter.Emit(ctx, e); err != nil && l.text != nil {
		l.text.ErrorContext(ctx, "failed to emit audit event", "error", err, "event", e.Action)
	}
}

func newEvent(ctx context.Context, event AuditEvent, attributes []any) Event {
	e := Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    string(event),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}
	for key, value := range pairs(attributes) {
		switch key {
		case "subject":
			e.Subject = value
		case "entity_id":
			// Events about unknown users carry no entity.
			if entityID, err := id.ParseEntityID(value); err == nil {
				e.EntityID = entityID
			}
		case "decision":
			e.Decision = value
		case "reason":
			e.Reason = value
		default:
			if e.Details == nil {
				e.Details = make(map[string]string)
			}
			e.Details[key] = value
		}
	}
	return e
}

// pairs walks a key/value list the way slog reads one: slog.Attr values
// stand alone, a trailing key without a value is dropped.
func pairs(attributes []any) func(yield func(string, string) bool) {
	return func(yield func(string, string) bool) {
		for i := 0; i < len(attributes); i++ {
			if attr, ok := attributes[i].(slog.Attr); ok {
				if !yield(attr.Key, attr.Value.String()) {
					return
				}
				continue
			}
			key, ok := attributes[i].(string)
			if !ok || i+1 >= len(attributes) {
				continue
			}
			i++
			if !yield(key, stringify(attributes[i])) {
				return
			}
		}
	}
}

func stringify(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
