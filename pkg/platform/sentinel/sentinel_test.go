package sentinel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idmcore/pkg/domain-errors"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		err  error
		code dErrors.Code
		msg  string
	}{
		{fmt.Errorf("row 7: %w", ErrNotFound), dErrors.CodeNotFound, "enquiry response not found"},
		{ErrConflict, dErrors.CodeConflict, "enquiry response already exists"},
		{ErrExpired, dErrors.CodeExpired, "enquiry response expired"},
		{ErrStaleStep, dErrors.CodeConflict, "enquiry response changed concurrently"},
		{ErrUnavailable, dErrors.CodeTimeout, "enquiry response is temporarily unavailable"},
		{errors.New("connection refused"), dErrors.CodeInternal, "failed to access enquiry response"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := Translate(tt.err, "enquiry response")
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.code))
			assert.Contains(t, err.Error(), tt.msg)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, Translate(nil, "anything"))
}
