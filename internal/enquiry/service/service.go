// Package service implements the enquiry response processor: administrative
// and automatic decisions on submitted responses, and application of accepted
// responses to the submitting entity.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"idmcore/internal/credential"
	"idmcore/internal/enquiry/metrics"
	"idmcore/internal/enquiry/models"
	"idmcore/internal/forms"
	idmodels "idmcore/internal/identity/models"
	"idmcore/internal/notification"
	"idmcore/internal/platform/tracer"
	"idmcore/internal/translation"
	id "idmcore/pkg/domain"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/platform/audit"
	"idmcore/pkg/platform/sentinel"
	"idmcore/pkg/requestcontext"
)

// ResponseStore persists enquiry responses.
// Error Contract:
// - FindByID, FindForUpdate, Update and Delete return sentinel.ErrNotFound for unknown ids
// - FindPending returns an empty slice, not an error, when nothing is pending
type ResponseStore interface {
	Create(ctx context.Context, resp *models.Response) error
	FindByID(ctx context.Context, responseID id.ResponseID) (*models.Response, error)
	FindForUpdate(ctx context.Context, responseID id.ResponseID) (*models.Response, error)
	FindPending(ctx context.Context, entityID id.EntityID, formID string) ([]*models.Response, error)
	Update(ctx context.Context, resp *models.Response) error
	Delete(ctx context.Context, responseID id.ResponseID) error
}

// EntityStore is the identity store surface accepting a response touches.
// Error Contract:
// - InsertIdentity returns sentinel.ErrConflict when the identity belongs to another entity
// - AddAttributes and SetAttributeClasses return sentinel.ErrInvalidState for groups the entity is not in
type EntityStore interface {
	FindByID(ctx context.Context, entityID id.EntityID) (*idmodels.Entity, error)
	InsertIdentity(ctx context.Context, entityID id.EntityID, ident idmodels.IdentityParam) error
	AddToGroup(ctx context.Context, entityID id.EntityID, path string) error
	AddAttributes(ctx context.Context, entityID id.EntityID, attrs []idmodels.Attribute) error
	SetAttributeClasses(ctx context.Context, entityID id.EntityID, groupPath string, classes []string) error
	SetCredential(ctx context.Context, entityID id.EntityID, cred idmodels.Credential) error
}

type FormStore interface {
	FindByID(ctx context.Context, formID string) (*forms.EnquiryForm, error)
}

// Credentials resolves the verificator for a credential named in a form.
type Credentials interface {
	ByName(name string) (credential.Verificator, error)
}

// Stores are the stores visible inside a transaction.
type Stores struct {
	Responses ResponseStore
	Entities  EntityStore
}

// Tx runs fn atomically over Stores.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
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

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// Service processes enquiry responses.
type Service struct {
	tx          Tx
	responses   ResponseStore
	entities    EntityStore
	forms       FormStore
	evaluator   *translation.Evaluator
	credentials Credentials
	sender      notification.Sender
	auditor     *audit.Logger
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      tracer.Tracer
}

func New(tx Tx, responses ResponseStore, entities EntityStore, formStore FormStore,
	evaluator *translation.Evaluator, credentials Credentials, opts ...Option) *Service {
	s := &Service{
		tx:          tx,
		responses:   responses,
		entities:    entities,
		forms:       formStore,
		evaluator:   evaluator,
		credentials: credentials,
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
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	return s
}

// Submit stores a pending response for entityID and runs automatic
// processing on it. On a sticky form the entity's pending response is
// replaced.
func (s *Service) Submit(ctx context.Context, input forms.BaseRegistrationInput, entityID id.EntityID) (id.ResponseID, error) {
	if err := forms.ValidateInput(input); err != nil {
		return id.ResponseID{}, err
	}
	if entityID.IsNil() {
		return id.ResponseID{}, dErrors.New(dErrors.CodeInvalidInput, "entity is required")
	}
	form, err := s.loadForm(ctx, input.FormID)
	if err != nil {
		return id.ResponseID{}, err
	}

	now := requestcontext.Now(ctx)
	resp := &models.Response{
		ID:          id.ResponseID(uuid.New()),
		FormID:      input.FormID,
		EntityID:    entityID,
		Status:      models.StatusPending,
		Request:     input,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	var replaced []id.ResponseID
	if form.IsSticky() {
		err = s.tx.RunInTx(withTxKey(ctx, stickyKey(entityID, form.ID)), func(ctx context.Context, stores Stores) error {
			var err error
			if replaced, err = removePending(ctx, stores.Responses, entityID, form.ID); err != nil {
				return err
			}
			return createResponse(ctx, stores.Responses, resp)
		})
	} else {
		err = createResponse(ctx, s.responses, resp)
	}
	if err != nil {
		return id.ResponseID{}, err
	}
	s.auditRemoved(ctx, entityID, replaced, "replaced by "+resp.ID.String())

	if _, err := s.AutoProcess(ctx, resp.ID); err != nil {
		return resp.ID, err
	}
	return resp.ID, nil
}

// HasPending reports whether entityID has a pending response to formID.
func (s *Service) HasPending(ctx context.Context, entityID id.EntityID, formID string) (bool, error) {
	pending, err := s.responses.FindPending(ctx, entityID, formID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up pending responses")
	}
	return len(pending) > 0, nil
}

// RemovePending deletes the entity's pending responses to a sticky form so
// a new one can be filled in. It returns how many were removed.
func (s *Service) RemovePending(ctx context.Context, entityID id.EntityID, formID string) (int, error) {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return 0, err
	}
	if !form.IsSticky() {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "form %s is not sticky", formID)
	}
	var removed []id.ResponseID
	err = s.tx.RunInTx(withTxKey(ctx, stickyKey(entityID, form.ID)), func(ctx context.Context, stores Stores) error {
		var err error
		removed, err = removePending(ctx, stores.Responses, entityID, form.ID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.auditRemoved(ctx, entityID, removed, "removed pending response")
	return len(removed), nil
}

func (s *Service) auditRemoved(ctx context.Context, entityID id.EntityID, removed []id.ResponseID, reason string) {
	for _, responseID := range removed {
		s.metrics.IncDecision("dropped")
		s.auditor.Log(ctx, audit.EventEnquiryDropped,
			"subject", responseID.String(),
			"entity_id", entityID.String(),
			"decision", "drop",
			"reason", reason,
		)
	}
}

// Accept applies a pending response to its entity. The response is validated
// against its form before anything is persisted.
func (s *Service) Accept(ctx context.Context, responseID id.ResponseID, publicComment, internalComment *models.AdminComment) (err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "enquiry.accept", tracer.String("response_id", responseID.String()))
	defer func() { span.End(err) }()

	resp, err := s.load(ctx, responseID)
	if err != nil {
		return err
	}
	form, err := s.loadForm(ctx, resp.FormID)
	if err != nil {
		return err
	}

	var translated *translation.TranslatedRequest
	err = s.tx.RunInTx(withTxKey(ctx, responseID.String()), func(ctx context.Context, stores Stores) error {
		current, err := lockPending(ctx, stores.Responses, responseID)
		if err != nil {
			return err
		}
		translated, err = s.evaluator.Compile(ctx, form.Profile).Translate(ctx, current.Request.TranslationRequest())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to translate response")
		}
		if err := form.ValidateTranslated(translated, current.Request.Agreements); err != nil {
			return err
		}

		if err := s.apply(ctx, stores.Entities, current.EntityID, translated); err != nil {
			return err
		}
		current.Decide(models.StatusAccepted, requestcontext.Now(ctx), publicComment, internalComment)
		if err := stores.Responses.Update(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update response")
		}
		resp = current
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.IncDecision(string(models.StatusAccepted))
	s.metrics.ObserveAccept(time.Since(start).Seconds())
	s.auditor.Log(ctx, audit.EventEnquiryAccepted,
		"subject", responseID.String(),
		"entity_id", resp.EntityID.String(),
		"decision", string(models.StatusAccepted),
	)
	s.notify(ctx, resp, form.Notifications.AcceptedTemplate)
	s.requestConfirmations(ctx, resp, form, translated)
	return nil
}

// Reject closes a pending response without applying it.
func (s *Service) Reject(ctx context.Context, responseID id.ResponseID, publicComment, internalComment *models.AdminComment) error {
	resp, err := s.load(ctx, responseID)
	if err != nil {
		return err
	}
	form, err := s.loadForm(ctx, resp.FormID)
	if err != nil {
		return err
	}
	err = s.tx.RunInTx(withTxKey(ctx, responseID.String()), func(ctx context.Context, stores Stores) error {
		current, err := lockPending(ctx, stores.Responses, responseID)
		if err != nil {
			return err
		}
		current.Decide(models.StatusRejected, requestcontext.Now(ctx), publicComment, internalComment)
		if err := stores.Responses.Update(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update response")
		}
		resp = current
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.IncDecision(string(models.StatusRejected))
	s.auditor.Log(ctx, audit.EventEnquiryRejected,
		"subject", responseID.String(),
		"entity_id", resp.EntityID.String(),
		"decision", string(models.StatusRejected),
	)
	s.notify(ctx, resp, form.Notifications.RejectedTemplate)
	return nil
}

// Drop deletes a pending response.
func (s *Service) Drop(ctx context.Context, responseID id.ResponseID) error {
	var entityID id.EntityID
	err := s.tx.RunInTx(withTxKey(ctx, responseID.String()), func(ctx context.Context, stores Stores) error {
		current, err := lockPending(ctx, stores.Responses, responseID)
		if err != nil {
			return err
		}
		entityID = current.EntityID
		if err := stores.Responses.Delete(ctx, responseID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to drop response")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.IncDecision("dropped")
	s.auditor.Log(ctx, audit.EventEnquiryDropped,
		"subject", responseID.String(),
		"entity_id", entityID.String(),
		"decision", "drop",
	)
	return nil
}

// AutoProcess applies the decision of the form's translation profile.
// It returns true only when the response was accepted.
func (s *Service) AutoProcess(ctx context.Context, responseID id.ResponseID) (bool, error) {
	resp, err := s.load(ctx, responseID)
	if err != nil {
		return false, err
	}
	if !resp.IsPending() {
		return false, dErrors.New(dErrors.CodeInternal, "response was already processed")
	}
	form, err := s.loadForm(ctx, resp.FormID)
	if err != nil {
		return false, err
	}
	decision, err := s.evaluator.Compile(ctx, form.Profile).
		AutoProcessAction(ctx, resp.Request.TranslationRequest(), translation.StatusSubmitted)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to evaluate profile")
	}

	s.logger.InfoContext(ctx, "automatic processing decision",
		"response_id", responseID.String(),
		"form_id", resp.FormID,
		"decision", string(decision),
	)
	s.metrics.IncAutoDecision(string(decision))
	s.auditor.Log(ctx, audit.EventEnquiryAutoDecided,
		"subject", responseID.String(),
		"entity_id", resp.EntityID.String(),
		"decision", string(decision),
		"reason", form.Profile.Name,
	)

	switch decision {
	case translation.AutoAccept:
		comment := models.SystemComment(requestcontext.Now(ctx))
		if err := s.Accept(ctx, responseID, nil, &comment); err != nil {
			return false, err
		}
		return true, nil
	case translation.AutoReject:
		comment := models.SystemComment(requestcontext.Now(ctx))
		return false, s.Reject(ctx, responseID, nil, &comment)
	case translation.AutoDrop:
		return false, s.Drop(ctx, responseID)
	default:
		return false, nil
	}
}

// Get returns a response by id.
func (s *Service) Get(ctx context.Context, responseID id.ResponseID) (*models.Response, error) {
	return s.load(ctx, responseID)
}

func (s *Service) load(ctx context.Context, responseID id.ResponseID) (*models.Response, error) {
	resp, err := s.responses.FindByID(ctx, responseID)
	if err != nil {
		return nil, sentinel.Translate(err, "enquiry response")
	}
	return resp, nil
}

func (s *Service) loadForm(ctx context.Context, formID string) (*forms.EnquiryForm, error) {
	form, err := s.forms.FindByID(ctx, formID)
	if err != nil {
		return nil, sentinel.Translate(err, "enquiry form "+formID)
	}
	return form, nil
}

// lockPending loads the response under the transaction and requires it to be
// pending. Terminal responses are immutable.
func lockPending(ctx context.Context, responses ResponseStore, responseID id.ResponseID) (*models.Response, error) {
	current, err := responses.FindForUpdate(ctx, responseID)
	if err != nil {
		return nil, sentinel.Translate(err, "enquiry response")
	}
	if !current.IsPending() {
		return nil, dErrors.New(dErrors.CodeInternal, "response was already processed")
	}
	return current, nil
}

func createResponse(ctx context.Context, responses ResponseStore, resp *models.Response) error {
	if err := responses.Create(ctx, resp); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store response")
	}
	return nil
}

func removePending(ctx context.Context, responses ResponseStore, entityID id.EntityID, formID string) ([]id.ResponseID, error) {
	pending, err := responses.FindPending(ctx, entityID, formID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up pending responses")
	}
	removed := make([]id.ResponseID, 0, len(pending))
	for _, resp := range pending {
		if err := responses.Delete(ctx, resp.ID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove pending response")
		}
		removed = append(removed, resp.ID)
	}
	return removed, nil
}

// stickyKey serializes submissions of one entity to one sticky form.
func stickyKey(entityID id.EntityID, formID string) string {
	return "sticky:" + entityID.String() + ":" + formID
}
