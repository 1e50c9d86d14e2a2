// Package service drives the credential reset flow: a fixed sequence of
// steps, each of which must be reached from the step before it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"idmcore/internal/credreset/metrics"
	"idmcore/internal/credreset/models"
	"idmcore/internal/credreset/store"
	idmodels "idmcore/internal/identity/models"
	"idmcore/internal/notification"
	id "idmcore/pkg/domain"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/platform/audit"
	"idmcore/pkg/platform/sentinel"
	"idmcore/pkg/requestcontext"
)

// GenericFailure is the only message a client sees when any check fails.
const GenericFailure = "invalid username or answer"

// EntityStore resolves the entity being reset.
type EntityStore interface {
	ResolveIdentity(ctx context.Context, typeIDs []string, value string) (*idmodels.Entity, error)
	FindByID(ctx context.Context, entityID id.EntityID) (*idmodels.Entity, error)
}

// PasswordCredential is the password verificator surface the flow uses.
type PasswordCredential interface {
	SecurityQuestion(entity *idmodels.Entity) (int, bool)
	CheckAnswer(entity *idmodels.Entity, answer string) bool
	Replace(ctx context.Context, entity *idmodels.Entity, raw string) error
}

// CaptchaVerifier checks the captcha response submitted with the username.
type CaptchaVerifier interface {
	Verify(ctx context.Context, response string) bool
}

// Signer turns session ids into client tokens and back.
type Signer interface {
	Issue(ctx context.Context, sessionID id.ResetSessionID) (string, error)
	Parse(ctx context.Context, token string) (id.ResetSessionID, error)
}

type Config struct {
	Settings      models.Settings
	SessionTTL    time.Duration
	MaxAttempts   int
	AttemptWindow time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(a *audit.Logger) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithSender(sender notification.Sender) Option {
	return func(s *Service) {
		s.sender = sender
	}
}

// Progress tells the client where the flow stands.
type Progress struct {
	Token    string
	Step     models.Step
	Question string
}

type Service struct {
	cfg      Config
	sessions store.SessionStore
	attempts store.AttemptStore
	signer   Signer
	entities EntityStore
	password PasswordCredential
	captcha  CaptchaVerifier
	sender   notification.Sender
	auditor  *audit.Logger
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(cfg Config, sessions store.SessionStore, attempts store.AttemptStore, signer Signer,
	entities EntityStore, password PasswordCredential, captcha CaptchaVerifier, opts ...Option) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 15 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = time.Hour
	}
	s := &Service{
		cfg:      cfg,
		sessions: sessions,
		attempts: attempts,
		signer:   signer,
		entities: entities,
		password: password,
		captcha:  captcha,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.sender == nil {
		s.sender = notification.NewLogSender(s.logger)
	}
	return s
}

// failure is a check that destroys the session.
type failure struct {
	username string
	reason   string
	locked   bool
}

func (f *failure) Error() string { return "credential reset failed: " + f.reason }

// Start opens a session at StepInitiated and returns its token.
func (s *Service) Start(ctx context.Context) (*Progress, error) {
	if !s.cfg.Settings.Enabled {
		return nil, dErrors.New(dErrors.CodeForbidden, "credential reset is disabled")
	}
	session := &models.Session{
		ID:         id.ResetSessionID(uuid.New()),
		Step:       models.StepInitiated,
		CreatedAt:  requestcontext.Now(ctx),
		ClientInfo: clientInfo(ctx),
	}
	if err := s.sessions.Create(ctx, session, s.cfg.SessionTTL); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start credential reset")
	}
	token, err := s.signer.Issue(ctx, session.ID)
	if err != nil {
		_ = s.sessions.Delete(ctx, session.ID) //nolint:errcheck // best effort, the session expires anyway
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start credential reset")
	}
	s.metrics.IncAdvance(session.Step.String())
	s.auditor.Log(ctx, audit.EventResetStarted,
		"subject", session.ID.String(),
		"browser", session.ClientInfo.Browser,
		"ip_prefix", session.ClientInfo.IPPrefix,
	)
	return &Progress{Token: token, Step: session.Step}, nil
}

// SubmitIdentity binds the username to the session. A bad captcha keeps the
// session so the user can retry.
func (s *Service) SubmitIdentity(ctx context.Context, token, username, captcha string) (*Progress, error) {
	username = strings.TrimSpace(username)
	return s.advance(ctx, token, models.StepInitiated, func(session *models.Session) error {
		if !s.captcha.Verify(ctx, captcha) {
			return dErrors.New(dErrors.CodeValidation, "captcha is invalid")
		}
		if username == "" {
			return &failure{reason: "empty username"}
		}
		count, err := s.attempts.Count(ctx, attemptKey(username))
		if err != nil {
			return fmt.Errorf("count reset attempts: %w", err)
		}
		if count >= s.cfg.MaxAttempts {
			return &failure{username: username, reason: "locked", locked: true}
		}
		entity, err := s.entities.ResolveIdentity(ctx, usernameTypes, username)
		if errors.Is(err, sentinel.ErrNotFound) {
			return &failure{username: username, reason: "unknown username"}
		}
		if err != nil {
			return fmt.Errorf("resolve reset username: %w", err)
		}
		if s.cfg.Settings.RequireSecurityQuestion {
			question, ok := s.password.SecurityQuestion(entity)
			if !ok || question >= len(s.cfg.Settings.Questions) {
				return &failure{username: username, reason: "no security answer"}
			}
			session.Question = question
		}
		session.Username = username
		session.EntityID = entity.ID
		session.Verified(models.FactIdentity)
		session.Verified(models.FactCaptcha)
		session.Step = s.cfg.Settings.AfterIdentity()
		return nil
	})
}

// AnswerQuestion checks the security answer.
func (s *Service) AnswerQuestion(ctx context.Context, token, answer string) (*Progress, error) {
	return s.advance(ctx, token, models.StepIdentityVerified, func(session *models.Session) error {
		entity, err := s.entity(ctx, session)
		if err != nil {
			return err
		}
		if !s.password.CheckAnswer(entity, answer) {
			return &failure{username: session.Username, reason: "wrong answer"}
		}
		session.Verified(models.FactQuestion)
		session.Step = s.cfg.Settings.AfterQuestion()
		return nil
	})
}

// ChooseChannel picks the confirmation channel when either is allowed.
func (s *Service) ChooseChannel(ctx context.Context, token string, channel models.Channel) (*Progress, error) {
	return s.advance(ctx, token, models.StepChannelChoice, func(session *models.Session) error {
		next, ok := models.AfterChoice(channel)
		if !ok {
			return dErrors.New(dErrors.CodeValidation, "channel must be email or mobile")
		}
		session.Step = next
		return nil
	})
}

// Cancel drops the session. Unknown sessions are ignored.
func (s *Service) Cancel(ctx context.Context, token string) error {
	sessionID, err := s.signer.Parse(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel credential reset")
	}
	s.metrics.IncOutcome("cancelled")
	return nil
}

// SubmitNewCredential replaces the password and ends the flow. A password
// the policy refuses keeps the session at StepFinal.
func (s *Service) SubmitNewCredential(ctx context.Context, token, secret string) error {
	var entityID id.EntityID
	session, err := s.advanceSession(ctx, token, models.StepFinal, func(session *models.Session) error {
		entity, err := s.entity(ctx, session)
		if err != nil {
			return err
		}
		if err := s.password.Replace(ctx, entity, secret); err != nil {
			return err
		}
		entityID = entity.ID
		return nil
	})
	if err != nil {
		return err
	}
	s.destroy(ctx, session.ID)
	if err := s.attempts.Clear(ctx, attemptKey(session.Username)); err != nil {
		s.logger.WarnContext(ctx, "failed to clear reset attempts", "error", err)
	}
	s.metrics.IncOutcome("completed")
	s.auditor.Log(ctx, audit.EventResetCompleted,
		"subject", session.ID.String(),
		"entity_id", entityID.String(),
	)
	return nil
}

// advance runs fn against the session at expected and maps every failure to
// what the client may see.
func (s *Service) advance(ctx context.Context, token string, expected models.Step, fn func(*models.Session) error) (*Progress, error) {
	session, err := s.advanceSession(ctx, token, expected, fn)
	if err != nil {
		return nil, err
	}
	progress := &Progress{Token: token, Step: session.Step}
	if session.Step == models.StepIdentityVerified {
		progress.Question = s.cfg.Settings.Questions[session.Question]
	}
	return progress, nil
}

func (s *Service) advanceSession(ctx context.Context, token string, expected models.Step, fn func(*models.Session) error) (*models.Session, error) {
	sessionID, err := s.signer.Parse(ctx, token)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.Advance(ctx, sessionID, expected, fn)
	if err != nil {
		return nil, s.handleError(ctx, sessionID, expected, err)
	}
	s.metrics.IncAdvance(session.Step.String())
	return session, nil
}

func (s *Service) handleError(ctx context.Context, sessionID id.ResetSessionID, expected models.Step, err error) error {
	var f *failure
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeExpired, "reset session expired")
	case errors.Is(err, sentinel.ErrStaleStep):
		s.destroy(ctx, sessionID)
		s.metrics.IncOutcome("violation")
		s.auditor.Log(ctx, audit.EventResetViolation,
			"subject", sessionID.String(),
			"reason", fmt.Sprintf("request for step %s out of order", expected),
		)
		return dErrors.New(dErrors.CodeSecurityViolation, GenericFailure)
	case errors.As(err, &f):
		return s.fail(ctx, sessionID, f)
	case dErrors.HasCode(err, dErrors.CodeValidation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "credential reset failed")
	}
}

// fail destroys the session and counts the attempt against the username.
func (s *Service) fail(ctx context.Context, sessionID id.ResetSessionID, f *failure) error {
	s.destroy(ctx, sessionID)
	locked := f.locked
	if f.username != "" && !locked {
		count, err := s.attempts.RecordFailure(ctx, attemptKey(f.username), s.cfg.AttemptWindow)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to record reset attempt", "error", err)
		}
		locked = count >= s.cfg.MaxAttempts
	}
	outcome := "failed"
	if locked {
		outcome = "locked"
	}
	s.metrics.IncOutcome(outcome)
	s.auditor.Log(ctx, audit.EventResetFailed,
		"subject", sessionID.String(),
		"decision", outcome,
		"reason", f.reason,
	)
	if locked {
		return dErrors.New(dErrors.CodeTooManyAttempts, GenericFailure)
	}
	return dErrors.New(dErrors.CodeUnauthorized, GenericFailure)
}

func (s *Service) destroy(ctx context.Context, sessionID id.ResetSessionID) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete reset session", "session_id", sessionID.String(), "error", err)
	}
}

func (s *Service) entity(ctx context.Context, session *models.Session) (*idmodels.Entity, error) {
	entity, err := s.entities.FindByID(ctx, session.EntityID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, &failure{username: session.Username, reason: "entity removed"}
	}
	if err != nil {
		return nil, fmt.Errorf("load reset entity: %w", err)
	}
	return entity, nil
}

var usernameTypes = []string{idmodels.IdentityTypeUsername, idmodels.IdentityTypeEmail}

func attemptKey(username string) string {
	return strings.ToLower(username)
}
