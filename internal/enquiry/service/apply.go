package service

import (
	"context"
	"errors"
	"slices"

	"idmcore/internal/enquiry/models"
	"idmcore/internal/forms"
	idmodels "idmcore/internal/identity/models"
	"idmcore/internal/notification"
	"idmcore/internal/translation"
	id "idmcore/pkg/domain"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/platform/sentinel"
	"idmcore/pkg/requestcontext"
)

// apply writes the effects of an accepted response to the entity. Ordering
// matters: root attributes land before any group join, parents are joined
// before children and every group's attributes follow its join.
func (s *Service) apply(ctx context.Context, entities EntityStore, entityID id.EntityID, tr *translation.TranslatedRequest) error {
	for _, ident := range tr.Identities() {
		if err := entities.InsertIdentity(ctx, entityID, ident); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeConflict, "identity %s is already used", ident.TypeID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add identity")
		}
	}

	root, byGroup := tr.RoutedAttributes()
	if len(root) > 0 {
		if err := entities.AddAttributes(ctx, entityID, root); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add attributes")
		}
	}

	for _, group := range tr.Groups() {
		if err := entities.AddToGroup(ctx, entityID, group); err != nil {
			return dErrors.Wrapf(err, dErrors.CodeInternal, "failed to add entity to group %s", group)
		}
		attrs, ok := byGroup[group]
		if !ok {
			continue
		}
		delete(byGroup, group)
		if err := entities.AddAttributes(ctx, entityID, attrs); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add group attributes")
		}
	}

	// Attributes for groups the entity already belongs to; anything else is
	// dropped with a warning rather than failing the whole acceptance.
	remaining := make([]string, 0, len(byGroup))
	for group := range byGroup {
		remaining = append(remaining, group)
	}
	slices.Sort(remaining)
	for _, group := range remaining {
		err := entities.AddAttributes(ctx, entityID, byGroup[group])
		if errors.Is(err, sentinel.ErrInvalidState) {
			s.logger.WarnContext(ctx, "skipping attributes of a group the entity is not a member of",
				"entity_id", entityID.String(),
				"group", group,
			)
			continue
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add attributes")
		}
	}

	classes := tr.AttributeClasses()
	classGroups := make([]string, 0, len(classes))
	for group := range classes {
		classGroups = append(classGroups, group)
	}
	slices.Sort(classGroups)
	for _, group := range classGroups {
		if err := entities.SetAttributeClasses(ctx, entityID, group, classes[group]); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set attribute classes")
		}
	}

	return s.applyCredentials(ctx, entities, entityID, tr.Credentials())
}

func (s *Service) applyCredentials(ctx context.Context, entities EntityStore, entityID id.EntityID, creds []translation.CredentialParam) error {
	if len(creds) == 0 {
		return nil
	}
	entity, err := entities.FindByID(ctx, entityID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}
	for _, c := range creds {
		verificator, err := s.credentials.ByName(c.CredentialID)
		if err != nil {
			return err
		}
		current := entity.Credentials[c.CredentialID]
		state, err := verificator.Prepare(ctx, current.State, c.Secrets)
		if err != nil {
			return dErrors.Wrapf(err, dErrors.CodeValidation, "credential %s rejected", c.CredentialID)
		}
		err = entities.SetCredential(ctx, entityID, idmodels.Credential{
			CredentialID: c.CredentialID,
			TypeID:       verificator.TypeID(),
			State:        state,
			UpdatedAt:    requestcontext.Now(ctx),
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credential")
		}
	}
	return nil
}

// notify sends the decision notice. Delivery failures are logged and never
// undo the decision.
func (s *Service) notify(ctx context.Context, resp *models.Response, template string) {
	if template == "" {
		return
	}
	recipient := s.recipient(ctx, resp)
	if recipient == "" {
		s.logger.InfoContext(ctx, "no address to notify about enquiry decision",
			"response_id", resp.ID.String(),
		)
		s.metrics.IncNotification(string(notification.KindNotification), "skipped")
		return
	}
	s.send(ctx, notification.Message{
		Kind:      notification.KindNotification,
		Template:  template,
		Recipient: recipient,
		EntityID:  resp.EntityID,
		Params: map[string]string{
			"formId":     resp.FormID,
			"responseId": resp.ID.String(),
			"status":     string(resp.Status),
		},
		CreatedAt: requestcontext.Now(ctx),
	})
}

// recipient prefers the entity's current email and falls back to the one
// in the submission.
func (s *Service) recipient(ctx context.Context, resp *models.Response) string {
	entity, err := s.entities.FindByID(ctx, resp.EntityID)
	if err == nil {
		if emails := entity.IdentityValues(idmodels.IdentityTypeEmail); len(emails) > 0 {
			return emails[0]
		}
	} else {
		s.logger.WarnContext(ctx, "failed to load entity for notification",
			"entity_id", resp.EntityID.String(),
			"error", err,
		)
	}
	return resp.Request.Email()
}

// requestConfirmations asks the owner to confirm each accepted identity and
// attribute whose form parameter demands it.
func (s *Service) requestConfirmations(ctx context.Context, resp *models.Response, form *forms.EnquiryForm, tr *translation.TranslatedRequest) {
	now := requestcontext.Now(ctx)
	for _, ident := range tr.Identities() {
		if ident.Confirmed || !form.RequiresConfirmation(ident.TypeID) {
			continue
		}
		s.send(ctx, notification.Message{
			Kind:      notification.KindConfirmation,
			Template:  "confirmation." + ident.TypeID,
			Recipient: ident.Value,
			EntityID:  resp.EntityID,
			Params:    map[string]string{"identityType": ident.TypeID},
			CreatedAt: now,
		})
	}
	recipient := ""
	for _, attr := range tr.Attributes() {
		if attr.Confirmed || !form.AttributeRequiresConfirmation(attr.Name, attr.GroupPath) {
			continue
		}
		if recipient == "" {
			recipient = s.recipient(ctx, resp)
		}
		s.send(ctx, notification.Message{
			Kind:      notification.KindConfirmation,
			Template:  "confirmation.attribute",
			Recipient: recipient,
			EntityID:  resp.EntityID,
			Params:    map[string]string{"attribute": attr.Name, "group": attr.GroupPath},
			CreatedAt: now,
		})
	}
}

func (s *Service) send(ctx context.Context, msg notification.Message) {
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to send notification",
			"kind", string(msg.Kind),
			"template", msg.Template,
			"entity_id", msg.EntityID.String(),
			"error", err,
		)
		s.metrics.IncNotification(string(msg.Kind), "error")
		return
	}
	s.metrics.IncNotification(string(msg.Kind), "sent")
}
