package handler

import (
	"strings"

	"idmcore/internal/credreset/service"
	"idmcore/pkg/validation"
)

type IdentityRequest struct {
	Username string `json:"username" validate:"required,max=256"`
	Captcha  string `json:"captcha"`
}

func (r *IdentityRequest) Sanitize() {
	r.Username = strings.TrimSpace(r.Username)
}

func (r *IdentityRequest) Validate() error {
	return validation.Validate(r)
}

type AnswerRequest struct {
	Answer string `json:"answer" validate:"required,max=1024"`
}

func (r *AnswerRequest) Validate() error {
	return validation.Validate(r)
}

type ChooseRequest struct {
	Channel string `json:"channel" validate:"required,oneof=email mobile"`
}

func (r *ChooseRequest) Validate() error {
	return validation.Validate(r)
}

type CodeRequest struct {
	Code string `json:"code" validate:"required,max=16"`
}

func (r *CodeRequest) Sanitize() {
	r.Code = strings.TrimSpace(r.Code)
}

func (r *CodeRequest) Validate() error {
	return validation.Validate(r)
}

type CredentialRequest struct {
	Secret string `json:"secret" validate:"required,max=1024"`
}

func (r *CredentialRequest) Validate() error {
	return validation.Validate(r)
}

type ProgressResponse struct {
	Step     string `json:"step"`
	Question string `json:"question,omitempty"`
}

func toProgress(p *service.Progress) ProgressResponse {
	return ProgressResponse{Step: p.Step.String(), Question: p.Question}
}
