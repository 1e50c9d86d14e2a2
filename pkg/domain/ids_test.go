package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idmcore/pkg/domain-errors"
)

func TestParseEntityID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEntityID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseEntityID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseEntityID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		parsed, err := ParseEntityID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, EntityID(raw), parsed)
		assert.False(t, parsed.IsNil())
	})
}

func TestParseRuleID(t *testing.T) {
	for _, bad := range []string{"", "nightly cleanup", "rules/1", strings.Repeat("r", 129)} {
		_, err := ParseRuleID(bad)
		require.Error(t, err, bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), bad)
	}

	for _, good := range []string{"nightly-cleanup", "team.a:rule_2", strings.Repeat("r", 128)} {
		ruleID, err := ParseRuleID(good)
		require.NoError(t, err, good)
		assert.Equal(t, good, ruleID.String())
		assert.False(t, ruleID.IsNil())
	}
}

func TestParseOtherIDs(t *testing.T) {
	raw := uuid.New()

	responseID, err := ParseResponseID(raw.String())
	require.NoError(t, err)
	assert.Equal(t, raw.String(), responseID.String())

	sessionID, err := ParseResetSessionID(raw.String())
	require.NoError(t, err)
	assert.Equal(t, ResetSessionID(raw), sessionID)

	_, err = ParseAuthzContextID("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authorization context ID cannot be empty")

	assert.True(t, AuthzContextID{}.IsNil())
}

func TestEntityIDJSON(t *testing.T) {
	raw := uuid.New()
	b, err := json.Marshal(struct {
		ID EntityID `json:"id"`
	}{ID: EntityID(raw)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+raw.String()+`"}`, string(b))

	var decoded struct {
		ID EntityID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, EntityID(raw), decoded.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id":"nope"}`), &decoded))
}
