package password

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"idmcore/internal/identity/models"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/requestcontext"
)

// SecurityAnswer is the hashed answer to one of the configured reset
// questions. Question indexes the reset settings' question list.
type SecurityAnswer struct {
	Question int    `json:"question"`
	Hash     string `json:"hash"`
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.Join(strings.Fields(answer), " "))
}

// SetSecurityAnswer stores the answer to question alongside the entity's password.
func (v *Verificator) SetSecurityAnswer(ctx context.Context, entity *models.Entity, question int, answer string) error {
	normalized := normalizeAnswer(answer)
	if normalized == "" || question < 0 {
		return dErrors.New(dErrors.CodeValidation, "security answer is required")
	}
	state, err := parseState(entity.Credentials[v.name].State)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(normalized), v.def.Cost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "answer cannot be hashed")
	}
	state.Answer = &SecurityAnswer{Question: question, Hash: string(hash)}
	encoded, err := encodeState(state)
	if err != nil {
		return err
	}
	return v.store.SetCredential(ctx, entity.ID, models.Credential{
		CredentialID: v.name,
		TypeID:       TypeID,
		State:        encoded,
		UpdatedAt:    requestcontext.Now(ctx),
	})
}

// SecurityQuestion returns the index of the question the entity answered.
func (v *Verificator) SecurityQuestion(entity *models.Entity) (int, bool) {
	state, err := parseState(entity.Credentials[v.name].State)
	if err != nil || state.Answer == nil {
		return 0, false
	}
	return state.Answer.Question, true
}

// CheckAnswer compares answer with the stored one. It costs one bcrypt
// comparison whether or not an answer is stored.
func (v *Verificator) CheckAnswer(entity *models.Entity, answer string) bool {
	hash := dummyHash
	var stored bool
	if entity != nil {
		if state, err := parseState(entity.Credentials[v.name].State); err == nil && state.Answer != nil {
			hash = []byte(state.Answer.Hash)
			stored = true
		}
	}
	match := bcrypt.CompareHashAndPassword(hash, []byte(normalizeAnswer(answer))) == nil
	return stored && match
}
