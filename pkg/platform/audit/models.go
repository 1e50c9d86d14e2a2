package audit

import (
	"context"
	"time"

	id "idmcore/pkg/domain"
)

// Event is one audited action. Subject names what the action was about:
// a response id, a username, a rule run key.
type Event struct {
	Timestamp time.Time
	Action    string
	Subject   string
	EntityID  id.EntityID
	Decision  string
	Reason    string
	ClientIP  string
	UserAgent string
	RequestID string
	// Details carries the attributes that have no column of their own.
	Details map[string]string
}

type AuditEvent string

const (
	EventEnquiryAccepted    AuditEvent = "enquiry_accepted"
	EventEnquiryRejected    AuditEvent = "enquiry_rejected"
	EventEnquiryDropped     AuditEvent = "enquiry_dropped"
	EventEnquiryAutoDecided AuditEvent = "enquiry_auto_decided"
	EventResetStarted       AuditEvent = "credential_reset_started"
	EventResetFailed        AuditEvent = "credential_reset_failed"
	EventResetCompleted     AuditEvent = "credential_reset_completed"
	EventResetViolation     AuditEvent = "credential_reset_violation"
	EventOTPDenied          AuditEvent = "otp_denied"
	EventCredentialOutdated AuditEvent = "credential_outdated"
	EventBulkRun            AuditEvent = "bulk_rule_run"
)

// MaxQueryLimit caps how many events a single List call returns.
const MaxQueryLimit = 500

// Query selects events. Zero fields match everything.
type Query struct {
	Subject string
	Action  string
	Since   time.Time
	// Limit keeps the newest Limit matches. Zero or anything above
	// MaxQueryLimit means MaxQueryLimit.
	Limit int
}

// Matches reports whether e satisfies every set field of q.
func (q Query) Matches(e Event) bool {
	if q.Subject != "" && e.Subject != q.Subject {
		return false
	}
	if q.Action != "" && e.Action != q.Action {
		return false
	}
	return q.Since.IsZero() || !e.Timestamp.Before(q.Since)
}

// EffectiveLimit returns the limit a store should apply.
func (q Query) EffectiveLimit() int {
	if q.Limit <= 0 || q.Limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return q.Limit
}

// Store persists audit events. List returns matches oldest first.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, q Query) ([]Event, error)
}
