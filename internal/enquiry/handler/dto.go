package handler

import (
	"strings"
	"time"

	"idmcore/internal/enquiry/models"
	"idmcore/internal/forms"
	id "idmcore/pkg/domain"
	"idmcore/pkg/validation"
)

type SubmitRequest struct {
	EntityID string                      `json:"entityId" validate:"required,uuid"`
	Input    forms.BaseRegistrationInput `json:"input"`
}

func (r *SubmitRequest) Validate() error {
	return validation.Validate(r)
}

// DecisionRequest carries the optional comments of an accept or reject.
type DecisionRequest struct {
	PublicComment   string `json:"publicComment,omitempty" validate:"max=4096"`
	InternalComment string `json:"internalComment,omitempty" validate:"max=4096"`
}

func (r *DecisionRequest) Sanitize() {
	r.PublicComment = strings.TrimSpace(r.PublicComment)
	r.InternalComment = strings.TrimSpace(r.InternalComment)
}

func (r *DecisionRequest) Validate() error {
	return validation.Validate(r)
}

func (r *DecisionRequest) public(author id.EntityID, now time.Time) *models.AdminComment {
	return comment(r.PublicComment, author, true, now)
}

func (r *DecisionRequest) internal(author id.EntityID, now time.Time) *models.AdminComment {
	return comment(r.InternalComment, author, false, now)
}

func comment(contents string, author id.EntityID, public bool, now time.Time) *models.AdminComment {
	if contents == "" {
		return nil
	}
	return &models.AdminComment{Contents: contents, AuthorEntityID: author, PublicComment: public, Date: now}
}

type AutoProcessResponse struct {
	Accepted bool `json:"accepted"`
}

type PendingResponse struct {
	Pending bool `json:"pending"`
}

type RemovedResponse struct {
	Removed int `json:"removed"`
}

type ResponseView struct {
	ID            string                `json:"id"`
	FormID        string                `json:"formId"`
	EntityID      string                `json:"entityId"`
	Status        models.Status         `json:"status"`
	AdminComments []models.AdminComment `json:"adminComments"`
	SubmittedAt   time.Time             `json:"submittedAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

func toResponse(resp *models.Response) ResponseView {
	comments := resp.AdminComments
	if comments == nil {
		comments = []models.AdminComment{}
	}
	return ResponseView{
		ID:            resp.ID.String(),
		FormID:        resp.FormID,
		EntityID:      resp.EntityID.String(),
		Status:        resp.Status,
		AdminComments: comments,
		SubmittedAt:   resp.SubmittedAt,
		UpdatedAt:     resp.UpdatedAt,
	}
}
