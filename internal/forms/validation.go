package forms

import (
	"slices"

	"idmcore/internal/identity/models"
	"idmcore/internal/translation"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/validation"
)

// ValidateInput checks the structure of a submission.
func ValidateInput(in BaseRegistrationInput) error {
	return validation.Validate(in)
}

// ValidateTranslated checks a translated submission against the form's
// mandatory identities, attributes, credentials and agreements.
func (f *EnquiryForm) ValidateTranslated(tr *translation.TranslatedRequest, agreements []bool) error {
	identities := tr.Identities()
	for _, p := range f.IdentityParams {
		if p.Optional {
			continue
		}
		if !slices.ContainsFunc(identities, func(i models.IdentityParam) bool { return i.TypeID == p.IdentityType }) {
			return dErrors.Newf(dErrors.CodeValidation, "identity %s is required", p.IdentityType)
		}
	}

	attributes := tr.Attributes()
	for _, p := range f.AttributeParams {
		if p.Optional {
			continue
		}
		group := normalizeGroup(p.Group)
		present := slices.ContainsFunc(attributes, func(a models.Attribute) bool {
			return a.Name == p.Name && a.GroupPath == group && len(a.Values) > 0
		})
		if !present {
			return dErrors.Newf(dErrors.CodeValidation, "attribute %s in %s is required", p.Name, group)
		}
	}

	credentials := tr.Credentials()
	for _, p := range f.CredentialParams {
		if !slices.ContainsFunc(credentials, func(c translation.CredentialParam) bool { return c.CredentialID == p.CredentialName }) {
			return dErrors.Newf(dErrors.CodeValidation, "credential %s is required", p.CredentialName)
		}
	}

	for i, a := range f.Agreements {
		if !a.Mandatory {
			continue
		}
		if i >= len(agreements) || !agreements[i] {
			return dErrors.Newf(dErrors.CodeValidation, "agreement %d must be accepted", i)
		}
	}
	return nil
}
