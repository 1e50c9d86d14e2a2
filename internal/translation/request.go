package translation

import (
	"fmt"
	"maps"
	"slices"

	"idmcore/internal/identity/models"
)

// AutomaticAction is the decision a profile may take on a submission.
type AutomaticAction string

const (
	AutoNone   AutomaticAction = "none"
	AutoAccept AutomaticAction = "accept"
	AutoReject AutomaticAction = "reject"
	AutoDrop   AutomaticAction = "drop"
)

// ParseAutomaticAction validates an action name from profile configuration.
func ParseAutomaticAction(raw string) (AutomaticAction, error) {
	switch a := AutomaticAction(raw); a {
	case AutoNone, AutoAccept, AutoReject, AutoDrop:
		return a, nil
	}
	return "", fmt.Errorf("unknown automatic action %q", raw)
}

// SubmitStatus distinguishes a fresh submission from a later re-evaluation.
type SubmitStatus string

const (
	StatusSubmitted    SubmitStatus = "submitted"
	StatusNotSubmitted SubmitStatus = "notSubmitted"
)

// CredentialParam is a credential value carried by a submission.
type CredentialParam struct {
	CredentialID string `json:"credentialId" validate:"required"`
	Secrets      string `json:"secrets" validate:"required"`
}

// Request is the read-only view of a submission that rules are evaluated against.
type Request struct {
	Identities  []models.IdentityParam
	Attributes  []models.Attribute
	Groups      []string
	Credentials []CredentialParam
	Agreements  []bool
}

// TranslatedRequest is the canonical result of one profile evaluation.
// It is immutable once Translate returns; accessors hand out copies.
type TranslatedRequest struct {
	identities       []models.IdentityParam
	attributes       []models.Attribute
	groups           []string
	attributeClasses map[string][]string
	credentials      []CredentialParam
	autoAction       AutomaticAction
}

func (t *TranslatedRequest) Identities() []models.IdentityParam {
	return slices.Clone(t.identities)
}

func (t *TranslatedRequest) Attributes() []models.Attribute {
	out := make([]models.Attribute, len(t.attributes))
	for i, a := range t.attributes {
		out[i] = a.Clone()
	}
	return out
}

// Groups returns requested groups sorted so that parents precede children.
func (t *TranslatedRequest) Groups() []string {
	return slices.Clone(t.groups)
}

func (t *TranslatedRequest) AttributeClasses() map[string][]string {
	out := make(map[string][]string, len(t.attributeClasses))
	for g, classes := range t.attributeClasses {
		out[g] = slices.Clone(classes)
	}
	return out
}

func (t *TranslatedRequest) Credentials() []CredentialParam {
	return slices.Clone(t.credentials)
}

func (t *TranslatedRequest) AutoAction() AutomaticAction {
	return t.autoAction
}

// RoutedAttributes splits attributes by target group. Root group attributes
// are returned separately since they must be applied before any group join.
func (t *TranslatedRequest) RoutedAttributes() (root []models.Attribute, byGroup map[string][]models.Attribute) {
	byGroup = make(map[string][]models.Attribute)
	for _, a := range t.attributes {
		if a.GroupPath == "" || a.GroupPath == models.RootGroup {
			root = append(root, a.Clone())
			continue
		}
		byGroup[a.GroupPath] = append(byGroup[a.GroupPath], a.Clone())
	}
	return root, byGroup
}

// Equal reports whether two translations carry the same effects.
func (t *TranslatedRequest) Equal(o *TranslatedRequest) bool {
	return slices.Equal(t.identities, o.identities) &&
		slices.EqualFunc(t.attributes, o.attributes, func(a, b models.Attribute) bool {
			return a.Name == b.Name && a.GroupPath == b.GroupPath && a.Confirmed == b.Confirmed && slices.Equal(a.Values, b.Values)
		}) &&
		slices.Equal(t.groups, o.groups) &&
		maps.EqualFunc(t.attributeClasses, o.attributeClasses, func(a, b []string) bool { return slices.Equal(a, b) }) &&
		slices.Equal(t.credentials, o.credentials) &&
		t.autoAction == o.autoAction
}

// Builder accumulates effects while a profile runs. Actions receive it; it is
// discarded once Build freezes the result.
type Builder struct {
	tr        *TranslatedRequest
	decisions int
}

func newBuilder(req Request) *Builder {
	b := &Builder{tr: &TranslatedRequest{
		attributeClasses: make(map[string][]string),
		autoAction:       AutoNone,
	}}
	for _, ident := range req.Identities {
		b.AddIdentity(ident)
	}
	for _, attr := range req.Attributes {
		b.AddAttribute(attr)
	}
	for _, g := range req.Groups {
		b.AddGroup(g)
	}
	for _, c := range req.Credentials {
		b.AddCredential(c)
	}
	return b
}

// AddIdentity adds an identity unless one with the same type and value is present.
func (b *Builder) AddIdentity(ident models.IdentityParam) {
	if slices.ContainsFunc(b.tr.identities, func(i models.IdentityParam) bool { return i.Key() == ident.Key() }) {
		return
	}
	b.tr.identities = append(b.tr.identities, ident)
}

// AddAttribute replaces an attribute with the same name and group or appends it.
func (b *Builder) AddAttribute(attr models.Attribute) {
	if attr.GroupPath == "" {
		attr.GroupPath = models.RootGroup
	}
	attr = attr.Clone()
	idx := slices.IndexFunc(b.tr.attributes, func(a models.Attribute) bool {
		return a.Name == attr.Name && a.GroupPath == attr.GroupPath
	})
	if idx >= 0 {
		b.tr.attributes[idx] = attr
		return
	}
	b.tr.attributes = append(b.tr.attributes, attr)
}

// AddGroup adds path; the group set stays sorted so that parents precede children.
func (b *Builder) AddGroup(path string) {
	if path == "" || path == models.RootGroup {
		return
	}
	idx, found := slices.BinarySearch(b.tr.groups, path)
	if found {
		return
	}
	b.tr.groups = slices.Insert(b.tr.groups, idx, path)
}

func (b *Builder) SetAttributeClasses(group string, classes []string) {
	b.tr.attributeClasses[group] = slices.Clone(classes)
}

func (b *Builder) AddCredential(c CredentialParam) {
	b.tr.credentials = append(b.tr.credentials, c)
}

// RemoveAttributes drops every attribute matching pred.
func (b *Builder) RemoveAttributes(pred func(models.Attribute) bool) {
	b.tr.attributes = slices.DeleteFunc(b.tr.attributes, pred)
}

// RemoveGroups drops every requested group matching pred.
func (b *Builder) RemoveGroups(pred func(string) bool) {
	b.tr.groups = slices.DeleteFunc(b.tr.groups, pred)
}

// SetAutoAction records a decision. It returns the previous decision and
// whether an earlier rule had already decided.
func (b *Builder) SetAutoAction(a AutomaticAction) (previous AutomaticAction, overridden bool) {
	previous = b.tr.autoAction
	overridden = b.decisions > 0
	b.decisions++
	b.tr.autoAction = a
	return previous, overridden
}

func (b *Builder) build() *TranslatedRequest {
	out := b.tr
	b.tr = nil
	return out
}
