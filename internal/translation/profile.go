// Package translation evaluates translation profiles: ordered condition/action
// rules that turn a submitted registration or enquiry into a canonical
// TranslatedRequest and an automatic processing decision.
package translation

import (
	"fmt"
	"strings"
)

// ProfileType tells which kind of submission a profile translates.
type ProfileType string

const (
	ProfileTypeRegistration ProfileType = "registration"
	ProfileTypeEnquiry      ProfileType = "enquiry"
	ProfileTypeBulk         ProfileType = "bulk"
)

// ProfileMode marks system profiles that operators may not edit.
type ProfileMode string

const (
	ProfileModeDefault  ProfileMode = "default"
	ProfileModeReadOnly ProfileMode = "readOnly"
)

// ActionInvocation names an action and its positional parameters.
type ActionInvocation struct {
	Name       string   `json:"name" yaml:"name"`
	Parameters []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

func (a ActionInvocation) String() string {
	return fmt.Sprintf("%s(%s)", a.Name, strings.Join(a.Parameters, ", "))
}

// Rule couples a boolean condition with the action run when it holds.
type Rule struct {
	Condition string           `json:"condition" yaml:"condition"`
	Action    ActionInvocation `json:"action" yaml:"action"`
}

// Profile is an ordered rule list. Rules evaluate in list order.
type Profile struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Type        ProfileType `json:"type" yaml:"type"`
	Mode        ProfileMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	Rules       []Rule      `json:"rules" yaml:"rules"`
}

func (p Profile) String() string {
	return fmt.Sprintf("%s[%s, %d rules]", p.Name, p.Type, len(p.Rules))
}
