// Package forms defines enquiry forms and the submissions made against them.
package forms

import (
	"idmcore/internal/identity/models"
	"idmcore/internal/translation"
)

// ConfirmationMode controls whether a submitted identity or attribute must be
// confirmed by its owner after acceptance.
type ConfirmationMode string

const (
	ConfirmationOnAccept ConfirmationMode = "onAccept"
	ConfirmationNever    ConfirmationMode = "never"
)

// EnquiryType decides how an entity is asked to fill a form.
type EnquiryType string

const (
	EnquiryRequestedMandatory EnquiryType = "requestedMandatory"
	EnquiryRequestedOptional  EnquiryType = "requestedOptional"
	// EnquirySticky forms keep at most one pending response per entity. A new
	// submission replaces the pending one.
	EnquirySticky EnquiryType = "sticky"
)

type IdentityParam struct {
	IdentityType string           `json:"identityType" validate:"required"`
	Optional     bool             `json:"optional"`
	Confirmation ConfirmationMode `json:"confirmation,omitempty"`
}

type AttributeParam struct {
	Name         string           `json:"name" validate:"required"`
	Group        string           `json:"group"`
	Optional     bool             `json:"optional"`
	Confirmation ConfirmationMode `json:"confirmation,omitempty"`
}

type CredentialParam struct {
	CredentialName string `json:"credentialName" validate:"required"`
}

type Agreement struct {
	Text      string `json:"text"`
	Mandatory bool   `json:"mandatory"`
}

// Notifications names message templates. An empty template disables that message.
type Notifications struct {
	AcceptedTemplate string `json:"acceptedTemplate,omitempty"`
	RejectedTemplate string `json:"rejectedTemplate,omitempty"`
}

// EnquiryForm is an administrator-defined questionnaire shown to existing entities.
type EnquiryForm struct {
	ID               string              `json:"id" validate:"required,notblank"`
	Type             EnquiryType         `json:"type,omitempty" validate:"omitempty,oneof=requestedMandatory requestedOptional sticky"`
	IdentityParams   []IdentityParam     `json:"identityParams" validate:"dive"`
	AttributeParams  []AttributeParam    `json:"attributeParams" validate:"dive"`
	CredentialParams []CredentialParam   `json:"credentialParams" validate:"dive"`
	Agreements       []Agreement         `json:"agreements"`
	Notifications    Notifications       `json:"notifications"`
	Profile          translation.Profile `json:"translationProfile"`
}

func (f *EnquiryForm) IsSticky() bool {
	return f.Type == EnquirySticky
}

// RequiresConfirmation reports whether an identity of typeID needs a
// confirmation request after acceptance.
func (f *EnquiryForm) RequiresConfirmation(typeID string) bool {
	for _, p := range f.IdentityParams {
		if p.IdentityType == typeID {
			return p.Confirmation == ConfirmationOnAccept
		}
	}
	return false
}

// AttributeRequiresConfirmation is RequiresConfirmation for attributes.
func (f *EnquiryForm) AttributeRequiresConfirmation(name, group string) bool {
	for _, p := range f.AttributeParams {
		if p.Name == name && normalizeGroup(p.Group) == normalizeGroup(group) {
			return p.Confirmation == ConfirmationOnAccept
		}
	}
	return false
}

// BaseRegistrationInput is what a user submits for a form.
type BaseRegistrationInput struct {
	FormID          string                        `json:"formId" validate:"required,notblank"`
	Identities      []models.IdentityParam        `json:"identities"`
	Attributes      []models.Attribute            `json:"attributes"`
	Credentials     []translation.CredentialParam `json:"credentials" validate:"dive"`
	GroupSelections []string                      `json:"groupSelections"`
	Agreements      []bool                        `json:"agreements"`
	Comments        string                        `json:"comments,omitempty"`
	UserLocale      string                        `json:"userLocale,omitempty"`
}

// TranslationRequest exposes the input to translation rules.
func (in BaseRegistrationInput) TranslationRequest() translation.Request {
	return translation.Request{
		Identities:  in.Identities,
		Attributes:  in.Attributes,
		Groups:      in.GroupSelections,
		Credentials: in.Credentials,
		Agreements:  in.Agreements,
	}
}

// Email returns the first email identity of the submission, if any.
func (in BaseRegistrationInput) Email() string {
	for _, ident := range in.Identities {
		if ident.TypeID == models.IdentityTypeEmail {
			return ident.Value
		}
	}
	return ""
}

func normalizeGroup(g string) string {
	if g == "" {
		return models.RootGroup
	}
	return g
}
