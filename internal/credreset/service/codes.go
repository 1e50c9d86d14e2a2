package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strings"

	"idmcore/internal/credreset/models"
	idmodels "idmcore/internal/identity/models"
	"idmcore/internal/notification"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/requestcontext"
)

func (s *Service) SendEmailCode(ctx context.Context, token string) error {
	return s.sendCode(ctx, token, models.ChannelEmail)
}

func (s *Service) SendMobileCode(ctx context.Context, token string) error {
	return s.sendCode(ctx, token, models.ChannelMobile)
}

func (s *Service) VerifyEmailCode(ctx context.Context, token, code string) (*Progress, error) {
	return s.verifyCode(ctx, token, models.ChannelEmail, code)
}

func (s *Service) VerifyMobileCode(ctx context.Context, token, code string) (*Progress, error) {
	return s.verifyCode(ctx, token, models.ChannelMobile, code)
}

// sendCode replaces any pending code for the session and delivers a new one.
// The step does not change, so a lost message can be re-requested.
func (s *Service) sendCode(ctx context.Context, token string, channel models.Channel) error {
	code, err := newCode(s.cfg.Settings.CodeLength)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	var msg notification.Message
	_, err = s.advanceSession(ctx, token, codeStep(channel), func(session *models.Session) error {
		entity, err := s.entity(ctx, session)
		if err != nil {
			return err
		}
		address := addressFor(entity, channel)
		if address == "" {
			return &failure{username: session.Username, reason: "no " + string(channel) + " address"}
		}
		session.Code = &models.PendingCode{
			Channel:   channel,
			Hash:      hashCode(session, code),
			ExpiresAt: requestcontext.Now(ctx).Add(s.cfg.Settings.CodeValidity()),
		}
		msg = notification.Message{
			Kind:      notification.KindConfirmation,
			Template:  s.template(channel),
			Recipient: address,
			EntityID:  entity.ID,
			Params:    map[string]string{"code": code},
			CreatedAt: requestcontext.Now(ctx),
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.IncCodeSent(string(channel), "error")
		s.logger.ErrorContext(ctx, "failed to send reset code", "channel", string(channel), "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "code could not be sent")
	}
	s.metrics.IncCodeSent(string(channel), "sent")
	return nil
}

func (s *Service) verifyCode(ctx context.Context, token string, channel models.Channel, code string) (*Progress, error) {
	return s.advance(ctx, token, codeStep(channel), func(session *models.Session) error {
		pending := session.Code
		if pending == nil || pending.Channel != channel {
			return &failure{username: session.Username, reason: "no code was sent"}
		}
		if !requestcontext.Now(ctx).Before(pending.ExpiresAt) {
			return &failure{username: session.Username, reason: "code expired"}
		}
		if subtle.ConstantTimeCompare([]byte(hashCode(session, strings.TrimSpace(code))), []byte(pending.Hash)) != 1 {
			return &failure{username: session.Username, reason: "wrong code"}
		}
		session.Code = nil
		if channel == models.ChannelEmail {
			session.Verified(models.FactEmail)
			session.Step = s.cfg.Settings.AfterEmailCode()
		} else {
			session.Verified(models.FactMobile)
			session.Step = models.StepFinal
		}
		return nil
	})
}

func (s *Service) template(channel models.Channel) string {
	if channel == models.ChannelEmail {
		return s.cfg.Settings.EmailCodeTemplate
	}
	return s.cfg.Settings.MobileCodeTemplate
}

func codeStep(channel models.Channel) models.Step {
	if channel == models.ChannelEmail {
		return models.StepEmailCode
	}
	return models.StepMobileCode
}

func addressFor(entity *idmodels.Entity, channel models.Channel) string {
	typeID := idmodels.IdentityTypeEmail
	if channel == models.ChannelMobile {
		typeID = idmodels.IdentityTypeMobile
	}
	values := entity.IdentityValues(typeID)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// newCode returns length random decimal digits.
func newCode(length int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// hashCode binds the code to the session so a stored hash is useless elsewhere.
func hashCode(session *models.Session, code string) string {
	sum := sha256.Sum256([]byte(session.ID.String() + ":" + code))
	return hex.EncodeToString(sum[:])
}
