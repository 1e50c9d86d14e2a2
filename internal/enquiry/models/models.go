// Package models holds enquiry responses and their administrative lifecycle.
package models

import (
	"slices"
	"time"

	"idmcore/internal/forms"
	id "idmcore/pkg/domain"
)

// Status of a response. Only pending responses may change.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// AutoProcessComment is recorded when a profile decides a response.
const AutoProcessComment = "System: automatically processed"

// AdminComment is a note attached by an administrator. A nil author means
// the system wrote it.
type AdminComment struct {
	Contents       string      `json:"contents"`
	AuthorEntityID id.EntityID `json:"authorEntityId"`
	PublicComment  bool        `json:"publicComment"`
	Date           time.Time   `json:"date"`
}

// SystemComment builds the internal comment left by automatic processing.
func SystemComment(now time.Time) AdminComment {
	return AdminComment{Contents: AutoProcessComment, Date: now}
}

// Response is a user's submitted answer to an enquiry form.
type Response struct {
	ID            id.ResponseID               `json:"id"`
	FormID        string                      `json:"formId"`
	EntityID      id.EntityID                 `json:"entityId"`
	Status        Status                      `json:"status"`
	Request       forms.BaseRegistrationInput `json:"request"`
	AdminComments []AdminComment              `json:"adminComments"`
	SubmittedAt   time.Time                   `json:"submittedAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

func (r *Response) IsPending() bool {
	return r.Status == StatusPending
}

// Decide moves a pending response to a terminal status, appending comments.
// Nil comments are skipped.
func (r *Response) Decide(status Status, now time.Time, comments ...*AdminComment) {
	r.Status = status
	r.UpdatedAt = now
	for _, c := range comments {
		if c == nil {
			continue
		}
		if c.Date.IsZero() {
			c.Date = now
		}
		r.AdminComments = append(r.AdminComments, *c)
	}
}

func (r *Response) Clone() *Response {
	out := *r
	out.AdminComments = slices.Clone(r.AdminComments)
	return &out
}
