package credential_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idmcore/internal/credential"
	"idmcore/internal/credential/otp"
	"idmcore/internal/credential/password"
	"idmcore/internal/identity/models"
	"idmcore/internal/identity/store"
	id "idmcore/pkg/domain"
	dErrors "idmcore/pkg/domain-errors"
)

func TestRegistry(t *testing.T) {
	entities := store.NewInMemory()
	pw := password.New("password", password.DefaultDefinition(), entities)
	totp, err := otp.New("otp", otp.Definition{Params: otp.DefaultParams(), AllowedDriftSteps: 1}, entities)
	require.NoError(t, err)

	t.Run("selects by credential type", func(t *testing.T) {
		r, err := credential.NewRegistry(pw, totp)
		require.NoError(t, err)

		v, err := r.ForCredential(models.Credential{CredentialID: "otp", TypeID: otp.TypeID})
		require.NoError(t, err)
		assert.Equal(t, "otp", v.CredentialName())

		v, err = r.ByName("password")
		require.NoError(t, err)
		assert.Equal(t, password.TypeID, v.TypeID())

		_, err = r.ByName("pin")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))

		_, err = r.Get("fido")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	t.Run("duplicate type fails", func(t *testing.T) {
		_, err := credential.NewRegistry(pw, pw)
		assert.Error(t, err)
	})
}

func TestLookupCredential(t *testing.T) {
	ctx := context.Background()
	entities := store.NewInMemory()
	alice := &models.Entity{
		ID:          id.EntityID(uuid.New()),
		Identities:  []models.IdentityParam{{TypeID: models.IdentityTypeEmail, Value: "alice@example.com"}},
		Credentials: map[string]models.Credential{"password": {CredentialID: "password", TypeID: password.TypeID, State: "{}"}},
	}
	require.NoError(t, entities.Create(ctx, alice))

	t.Run("username may be an email", func(t *testing.T) {
		entity, cred, err := credential.LookupCredential(ctx, entities, "alice@example.com", "password", password.TypeID)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, entity.ID)
		assert.Equal(t, "password", cred.CredentialID)
	})

	t.Run("type mismatch is treated as unset", func(t *testing.T) {
		_, _, err := credential.LookupCredential(ctx, entities, "alice@example.com", "password", otp.TypeID)
		assert.ErrorIs(t, err, credential.ErrNoCredential)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, err := credential.LookupCredential(ctx, entities, "mallory", "password", password.TypeID)
		assert.ErrorIs(t, err, credential.ErrNoCredential)
	})
}
