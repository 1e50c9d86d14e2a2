package otp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"idmcore/internal/credential"
	"idmcore/internal/identity/models"
	"idmcore/internal/identity/store"
	id "idmcore/pkg/domain"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/platform/audit"
	"idmcore/pkg/requestcontext"
)

// Aligned to a 30s step so offsets land in predictable windows.
var epoch = time.Unix(1_700_000_010, 0).UTC()

type captureEmitter struct {
	events []audit.Event
}

func (c *captureEmitter) Emit(_ context.Context, e audit.Event) error {
	c.events = append(c.events, e)
	return nil
}

type OTPSuite struct {
	suite.Suite
	entities *store.InMemoryStore
	emitter  *captureEmitter
	v        *Verificator
	alice    *models.Entity
	secret   string
}

func TestOTPSuite(t *testing.T) {
	suite.Run(t, new(OTPSuite))
}

func (s *OTPSuite) SetupTest() {
	s.entities = store.NewInMemory()
	s.emitter = &captureEmitter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v, err := New("otp", Definition{Issuer: "idm", Params: DefaultParams(), AllowedDriftSteps: 1}, s.entities,
		WithLogger(logger),
		WithAuditor(audit.NewLogger(logger, s.emitter)),
		WithEntityLister(s.entities),
	)
	s.Require().NoError(err)
	s.v = v

	s.alice = &models.Entity{
		ID: id.EntityID(uuid.New()),
		Identities: []models.IdentityParam{
			{TypeID: models.IdentityTypeUsername, Value: "alice"},
			{TypeID: models.IdentityTypeEmail, Value: "alice@example.com"},
		},
	}
	s.Require().NoError(s.entities.Create(s.ctxAt(epoch), s.alice))

	enrollment, err := s.v.NewEnrollment("alice")
	s.Require().NoError(err)
	s.Contains(enrollment.URL, "otpauth://totp/")
	s.secret = enrollment.Secret
	raw, err := json.Marshal(map[string]any{"secret": s.secret})
	s.Require().NoError(err)
	s.Require().NoError(s.v.Enroll(s.ctxAt(epoch), s.alice, string(raw)))
}

func (s *OTPSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *OTPSuite) codeAt(t time.Time) string {
	code, err := totp.GenerateCodeCustom(s.secret, t, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	s.Require().NoError(err)
	return code
}

func (s *OTPSuite) stateOf(entityID id.EntityID) credential.State {
	entity, err := s.entities.FindByID(context.Background(), entityID)
	s.Require().NoError(err)
	return s.v.CheckState(entity.Credentials["otp"].State)
}

func (s *OTPSuite) TestUpdateDefinition() {
	bob := &models.Entity{
		ID:         id.EntityID(uuid.New()),
		Identities: []models.IdentityParam{{TypeID: models.IdentityTypeUsername, Value: "bob"}},
	}
	s.Require().NoError(s.entities.Create(s.ctxAt(epoch), bob))
	base := s.v.Definition()

	s.Run("drift and issuer changes keep credentials", func() {
		changed := base
		changed.Issuer = "other"
		changed.AllowedDriftSteps = 4
		n, err := s.v.UpdateDefinition(s.ctxAt(epoch), changed)
		s.Require().NoError(err)
		s.Zero(n)
		s.Equal(changed, s.v.Definition())
		s.Equal(credential.StateCorrect, s.stateOf(s.alice.ID))
	})

	s.Run("invalid definition is refused", func() {
		broken := base
		broken.Params.CodeLength = 12
		_, err := s.v.UpdateDefinition(s.ctxAt(epoch), broken)
		s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
		s.NotEqual(broken, s.v.Definition())
	})

	s.Run("code length change outdates enrolled credentials", func() {
		s.emitter.events = nil
		changed := base
		changed.Params.CodeLength = 8
		n, err := s.v.UpdateDefinition(s.ctxAt(epoch), changed)
		s.Require().NoError(err)
		s.Equal(1, n)
		s.Equal(credential.StateOutdated, s.stateOf(s.alice.ID))
		s.Require().Len(s.emitter.events, 1)
		s.Equal(string(audit.EventCredentialOutdated), s.emitter.events[0].Action)
		s.Equal(s.alice.ID, s.emitter.events[0].EntityID)

		result, err := s.v.Verify(s.ctxAt(epoch), "alice", s.codeAt(epoch))
		s.Require().NoError(err)
		s.True(result.Succeeded())
		s.Equal("otp", result.OutdatedCredential)
	})

	s.Run("already outdated credentials are not counted again", func() {
		changed := s.v.Definition()
		changed.Params.Algorithm = SHA256
		n, err := s.v.UpdateDefinition(s.ctxAt(epoch), changed)
		s.Require().NoError(err)
		s.Zero(n)
		s.Equal(SHA256, s.v.Definition().Params.Algorithm)
	})
}

func (s *OTPSuite) TestAlgorithmChangeOutdates() {
	changed := s.v.Definition()
	changed.Params.Algorithm = SHA512
	n, err := s.v.UpdateDefinition(s.ctxAt(epoch), changed)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(credential.StateOutdated, s.stateOf(s.alice.ID))
}

func TestUpdateDefinitionNeedsLister(t *testing.T) {
	v, err := New("otp", Definition{Params: DefaultParams()}, store.NewInMemory())
	require.NoError(t, err)

	drift := v.Definition()
	drift.AllowedDriftSteps = 2
	_, err = v.UpdateDefinition(context.Background(), drift)
	require.NoError(t, err)

	outdating := v.Definition()
	outdating.Params.Period = 60
	_, err = v.UpdateDefinition(context.Background(), outdating)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	assert.Equal(t, 30, v.Definition().Params.Period)
}

func (s *OTPSuite) TestVerify() {
	s.Run("current code succeeds and records the authentication", func() {
		result, err := s.v.Verify(s.ctxAt(epoch), "alice", s.codeAt(epoch))
		s.Require().NoError(err)
		s.True(result.Succeeded())
		s.Equal(s.alice.ID, result.EntityID)

		entity, err := s.entities.FindByID(context.Background(), s.alice.ID)
		s.Require().NoError(err)
		state, err := parseState(entity.Credentials["otp"].State)
		s.Require().NoError(err)
		s.Require().NotNil(state.LastSuccessfulAuthn)
		s.True(state.LastSuccessfulAuthn.Equal(epoch))
	})

	s.Run("email identity resolves the same entity", func() {
		result, err := s.v.Verify(s.ctxAt(epoch), "alice@example.com", s.codeAt(epoch))
		s.Require().NoError(err)
		s.True(result.Succeeded())
	})

	s.Run("drift boundary", func() {
		ok, err := s.v.Verify(s.ctxAt(epoch), "alice", s.codeAt(epoch.Add(30*time.Second)))
		s.Require().NoError(err)
		s.True(ok.Succeeded())

		late, err := s.v.Verify(s.ctxAt(epoch), "alice", s.codeAt(epoch.Add(-60*time.Second)))
		s.Require().NoError(err)
		s.False(late.Succeeded())
	})

	s.Run("wrong code is denied and audited", func() {
		s.emitter.events = nil
		result, err := s.v.Verify(s.ctxAt(epoch), "alice", "000000x")
		s.Require().NoError(err)
		s.Equal(credential.Deny(), result)
		s.Require().Len(s.emitter.events, 1)
		s.Equal(string(audit.EventOTPDenied), s.emitter.events[0].Action)
		s.Equal("alice", s.emitter.events[0].Subject)
	})

	s.Run("unknown user is denied", func() {
		result, err := s.v.Verify(s.ctxAt(epoch), "mallory", s.codeAt(epoch))
		s.Require().NoError(err)
		s.Equal(credential.StatusDeny, result.Status)
	})

	s.Run("outdated credential reports its name", func() {
		entity, err := s.entities.FindByID(context.Background(), s.alice.ID)
		s.Require().NoError(err)
		cred := entity.Credentials["otp"]
		cred.State, err = s.v.Invalidate(cred.State)
		s.Require().NoError(err)
		s.Require().NoError(s.entities.SetCredential(context.Background(), entity.ID, cred))

		result, err := s.v.Verify(s.ctxAt(epoch), "alice", s.codeAt(epoch))
		s.Require().NoError(err)
		s.True(result.Succeeded())
		s.Equal("otp", result.OutdatedCredential)
	})
}

func (s *OTPSuite) TestPrepare() {
	s.Run("rejects a secret that is not base32", func() {
		_, err := s.v.Prepare(context.Background(), "", `{"secret":"not base32!"}`)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects parameters that differ from the definition", func() {
		_, err := s.v.Prepare(context.Background(), "", `{"secret":"JBSWY3DPEHPK3PXP","otpParams":{"codeLength":8,"period":30,"algorithm":"SHA1"}}`)
		s.ErrorContains(err, "differ")
	})

	s.Run("fresh state is correct", func() {
		state, err := s.v.Prepare(context.Background(), "", `{"secret":"jbswy3dpehpk3pxp"}`)
		s.Require().NoError(err)
		s.Equal(credential.StateCorrect, s.v.CheckState(state))
		s.Equal(credential.StateNotSet, s.v.CheckState(""))
	})
}

func TestNewRejectsBadDefinitions(t *testing.T) {
	entities := store.NewInMemory()
	for name, def := range map[string]Definition{
		"algorithm": {Params: Params{CodeLength: 6, Period: 30, Algorithm: "MD5"}},
		"length":    {Params: Params{CodeLength: 4, Period: 30, Algorithm: SHA1}},
		"period":    {Params: Params{CodeLength: 6, Period: 0, Algorithm: SHA1}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New("otp", def, entities)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
		})
	}
}

func TestIsDefinitionChangeOutdating(t *testing.T) {
	base := Definition{Issuer: "idm", Params: DefaultParams(), AllowedDriftSteps: 3}

	t.Run("issuer and drift changes keep credentials", func(t *testing.T) {
		changed := base
		changed.Issuer = "other"
		changed.AllowedDriftSteps = 1
		assert.False(t, IsDefinitionChangeOutdating(base, changed))
	})

	t.Run("code parameters outdate credentials", func(t *testing.T) {
		for _, mutate := range []func(*Params){
			func(p *Params) { p.CodeLength = 8 },
			func(p *Params) { p.Period = 60 },
			func(p *Params) { p.Algorithm = SHA512 },
		} {
			changed := base
			mutate(&changed.Params)
			assert.True(t, IsDefinitionChangeOutdating(base, changed))
		}
	})
}

// Codes generated k steps away are accepted iff |k| <= drift.
func TestDriftWindowProperty(t *testing.T) {
	const secret = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	params := Params{CodeLength: 8, Period: 30, Algorithm: SHA256}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("drift window", prop.ForAll(
		func(drift int, offset int, base int64) bool {
			v := &Verificator{def: Definition{Params: params, AllowedDriftSteps: drift}}
			now := time.Unix(base*30+7, 0).UTC()
			code, err := totp.GenerateCodeCustom(secret, now.Add(time.Duration(offset)*30*time.Second), totp.ValidateOpts{
				Period:    30,
				Digits:    otp.DigitsEight,
				Algorithm: otp.AlgorithmSHA256,
			})
			if err != nil {
				return false
			}
			ok, _ := v.validate(code, DBState{Secret: secret, Params: params}, now)
			within := offset >= -drift && offset <= drift
			return ok == within
		},
		gen.IntRange(0, 4),
		gen.IntRange(-6, 6),
		gen.Int64Range(50_000_000, 60_000_000),
	))

	properties.TestingRun(t)
}

func TestEnrollmentUsesDefinition(t *testing.T) {
	v, err := New("otp", Definition{Issuer: "idm", Params: Params{CodeLength: 8, Period: 60, Algorithm: SHA512}}, store.NewInMemory())
	require.NoError(t, err)
	enrollment, err := v.NewEnrollment("bob")
	require.NoError(t, err)

	key, err := otp.NewKeyFromURL(enrollment.URL)
	require.NoError(t, err)
	assert.Equal(t, "idm", key.Issuer())
	assert.Equal(t, uint64(60), key.Period())
	assert.Equal(t, otp.DigitsEight, key.Digits())
	assert.Equal(t, otp.AlgorithmSHA512, key.Algorithm())
}
