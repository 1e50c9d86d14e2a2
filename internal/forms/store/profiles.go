package store

import (
	"context"

	"idmcore/internal/forms"
	"idmcore/internal/translation"
)

type formFinder interface {
	FindByID(ctx context.Context, formID string) (*forms.EnquiryForm, error)
}

// ProfileSource is satisfied by translation.SystemProfiles.
type ProfileSource interface {
	Get(name string) (translation.Profile, bool)
}

// SystemProfileResolver lets a form reference a system profile by name. A
// form whose profile has no rules of its own gets the system profile with
// that name, when one exists.
type SystemProfileResolver struct {
	forms    formFinder
	profiles ProfileSource
}

func NewSystemProfileResolver(inner formFinder, profiles ProfileSource) *SystemProfileResolver {
	return &SystemProfileResolver{forms: inner, profiles: profiles}
}

func (r *SystemProfileResolver) FindByID(ctx context.Context, formID string) (*forms.EnquiryForm, error) {
	form, err := r.forms.FindByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if len(form.Profile.Rules) == 0 && form.Profile.Name != "" {
		if p, ok := r.profiles.Get(form.Profile.Name); ok {
			form.Profile = p
		}
	}
	return form, nil
}
