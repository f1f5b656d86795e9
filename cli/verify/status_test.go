package verify

import (
	"testing"

	"github.com/buger/goterm"
	"github.com/stretchr/testify/assert"

	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/permission"
)

func TestGetDecisionString(t *testing.T) {
	tests := []struct {
		name     string
		reason   permission.Reason
		expColor int
	}{
		{"OK", permission.OK, goterm.GREEN},
		{"Mismatch", permission.FingerprintMismatch, goterm.RED},
		{"Unsigned", permission.Unsigned, goterm.RED},
		{"NotAllowed", permission.NotAllowed, goterm.RED},
		{"Missing", permission.Missing, goterm.YELLOW},
		{"Unknown", permission.Reason(42), goterm.YELLOW},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			msg, color := GetDecisionString(permission.Decision{BlobName: "m", Reason: test.reason})
			assert.NotEmpty(t, msg)
			assert.Equal(t, test.expColor, color)
		})
	}
}

func TestDecisionError(t *testing.T) {
	assert.NoError(t, decisionError(permission.Decision{BlobName: "m", Authorized: true}))

	err := decisionError(permission.Decision{BlobName: "m", Reason: permission.Unsigned})
	assert.Equal(t, &errors.PermissionError{Name: "m", Reason: "Unsigned"}, err)
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))
}
