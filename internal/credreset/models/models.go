// Package models holds the credential reset session and the reset policy.
package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	id "idmcore/pkg/domain"
)

// Step is the position of a session in the reset flow. Every handler expects
// exactly one step.
type Step int

const (
	StepInitiated        Step = 0
	StepIdentityVerified Step = 1 // also: security question pending
	StepChannelChoice    Step = 2
	StepEmailCode        Step = 3
	StepMobileCode       Step = 4
	StepFinal            Step = 5
)

func (s Step) String() string {
	switch s {
	case StepInitiated:
		return "initiated"
	case StepIdentityVerified:
		return "identityVerified"
	case StepChannelChoice:
		return "channelChoice"
	case StepEmailCode:
		return "emailCode"
	case StepMobileCode:
		return "mobileCode"
	case StepFinal:
		return "final"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelMobile Channel = "mobile"
)

// Fact is something the session has proven.
type Fact string

const (
	FactIdentity Fact = "identity"
	FactCaptcha  Fact = "captcha"
	FactQuestion Fact = "question"
	FactEmail    Fact = "email"
	FactMobile   Fact = "mobile"
)

// PendingCode is a confirmation code sent over a channel. Only its hash is kept.
type PendingCode struct {
	Channel   Channel   `json:"channel"`
	Hash      string    `json:"hash"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ClientInfo describes the browser that started the reset, for audit.
type ClientInfo struct {
	IPPrefix string `json:"ipPrefix,omitempty"`
	Browser  string `json:"browser,omitempty"`
	OS       string `json:"os,omitempty"`
	Mobile   bool   `json:"mobile,omitempty"`
	Bot      bool   `json:"bot,omitempty"`
}

// Session is the ephemeral state of one reset flow.
type Session struct {
	ID            id.ResetSessionID `json:"id"`
	Step          Step              `json:"step"`
	Username      string            `json:"username,omitempty"`
	EntityID      id.EntityID       `json:"entityId"`
	Question      int               `json:"question"`
	VerifiedFacts []Fact            `json:"verifiedFacts,omitempty"`
	Code          *PendingCode      `json:"code,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	ClientInfo    ClientInfo        `json:"clientInfo"`
}

// Verified records fact once.
func (s *Session) Verified(fact Fact) {
	if !slices.Contains(s.VerifiedFacts, fact) {
		s.VerifiedFacts = append(s.VerifiedFacts, fact)
	}
}

func (s *Session) HasVerified(fact Fact) bool {
	return slices.Contains(s.VerifiedFacts, fact)
}

func (s *Session) Clone() *Session {
	out := *s
	out.VerifiedFacts = slices.Clone(s.VerifiedFacts)
	if s.Code != nil {
		code := *s.Code
		out.Code = &code
	}
	return &out
}

type ConfirmationMode string

const (
	ConfirmationRequireNone          ConfirmationMode = "RequireNone"
	ConfirmationRequireEmail         ConfirmationMode = "RequireEmail"
	ConfirmationRequireMobile        ConfirmationMode = "RequireMobile"
	ConfirmationRequireEmailOrMobile ConfirmationMode = "RequireEmailOrMobile"
)

const (
	defaultCodeLength          = 6
	defaultCodeValiditySeconds = 600
)

// Settings is the PasswordCredentialResetSettings document.
type Settings struct {
	Enabled                   bool             `json:"enabled"`
	RequireSecurityQuestion   bool             `json:"requireSecurityQuestion"`
	RequireEmailConfirmation  bool             `json:"requireEmailConfirmation"`
	RequireMobileConfirmation bool             `json:"requireMobileConfirmation"`
	ConfirmationMode          ConfirmationMode `json:"confirmationMode"`
	Questions                 []string         `json:"questions"`
	CodeLength                int              `json:"codeLength,omitempty"`
	CodeValiditySeconds       int              `json:"codeValiditySeconds,omitempty"`
	EmailCodeTemplate         string           `json:"emailCodeTemplate,omitempty"`
	MobileCodeTemplate        string           `json:"mobileCodeTemplate,omitempty"`
}

// ParseSettings decodes and checks a settings document, filling defaults.
func ParseSettings(raw string) (Settings, error) {
	var s Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Settings{}, fmt.Errorf("parse credential reset settings: %w", err)
	}
	if s.ConfirmationMode == "" {
		s.ConfirmationMode = ConfirmationRequireNone
	}
	switch s.ConfirmationMode {
	case ConfirmationRequireNone, ConfirmationRequireEmail, ConfirmationRequireMobile, ConfirmationRequireEmailOrMobile:
	default:
		return Settings{}, fmt.Errorf("unknown confirmation mode %q", s.ConfirmationMode)
	}
	if s.RequireSecurityQuestion && len(s.Questions) == 0 {
		return Settings{}, fmt.Errorf("security question required but no questions configured")
	}
	if s.CodeLength == 0 {
		s.CodeLength = defaultCodeLength
	}
	if s.CodeLength < 4 || s.CodeLength > 10 {
		return Settings{}, fmt.Errorf("code length %d out of range", s.CodeLength)
	}
	if s.CodeValiditySeconds <= 0 {
		s.CodeValiditySeconds = defaultCodeValiditySeconds
	}
	if s.EmailCodeTemplate == "" {
		s.EmailCodeTemplate = "credreset.emailCode"
	}
	if s.MobileCodeTemplate == "" {
		s.MobileCodeTemplate = "credreset.mobileCode"
	}
	return s, nil
}

func (s Settings) CodeValidity() time.Duration {
	return time.Duration(s.CodeValiditySeconds) * time.Second
}

// AfterIdentity is the step that follows a verified username and captcha.
// A username alone never reaches StepFinal: without a question or a
// required channel the user has to confirm over a channel of their choice.
func (s Settings) AfterIdentity() Step {
	switch {
	case s.RequireSecurityQuestion:
		return StepIdentityVerified
	case s.RequireEmailConfirmation:
		return StepEmailCode
	case s.RequireMobileConfirmation:
		return StepMobileCode
	default:
		return StepChannelChoice
	}
}

// AfterQuestion is the step that follows a correct security answer.
func (s Settings) AfterQuestion() Step {
	switch {
	case s.RequireEmailConfirmation:
		return StepEmailCode
	case s.RequireMobileConfirmation:
		return StepMobileCode
	case s.ConfirmationMode == ConfirmationRequireEmailOrMobile:
		return StepChannelChoice
	default:
		return StepFinal
	}
}

// AfterEmailCode is the step that follows a confirmed email code.
func (s Settings) AfterEmailCode() Step {
	if s.RequireMobileConfirmation {
		return StepMobileCode
	}
	return StepFinal
}

// AfterChoice maps a chosen channel to its code step.
func AfterChoice(c Channel) (Step, bool) {
	switch c {
	case ChannelEmail:
		return StepEmailCode, true
	case ChannelMobile:
		return StepMobileCode, true
	}
	return 0, false
}
