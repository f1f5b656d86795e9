package errors

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarshalUnmarshal(t *testing.T) {
	tests := []error{
		New("error"),
		WithContext("context", New("error")),
		NewFriendlyError("friendly error"),
		WithContext("context", NewFriendlyError("friendly error")),
		nil,
		WithContext("context", nil),
		NotFound("macro1"),
		&PermissionError{Name: "macro1", Reason: "FingerprintMismatch"},
		&TimeoutError{Op: "execute", Name: "macro1", Err: context.DeadlineExceeded},
		&ExecutionError{Name: "macro1", Err: New("exit status 1")},
	}
	for _, err := range tests {
		assert.Equal(t, err, Unmarshal(Marshal(err)))
	}
}

func TestMarshalKinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		expKind string
	}{
		{"license", &LicenseError{Feature: "embedded_code", Required: "Trial", Current: "None"}, KindLicense},
		{"not found", NotFound("x"), KindNotFound},
		{"corrupt", Corrupt("x", New("bad yaml")), KindCorrupt},
		{"permission", &PermissionError{Name: "x", Reason: "Unsigned"}, KindPermission},
		{"timeout", &TimeoutError{Op: "validate license", Err: context.DeadlineExceeded}, KindTimeout},
		{"plain", New("boom"), KindError},
	}

	for _, test := range tests {
		assert.Equal(t, test.expKind, Marshal(test.err).Kind, test.name)

		// Every field that feeds the message survives the round trip.
		assert.Equal(t, GetPrintableMessage(test.err),
			GetPrintableMessage(Unmarshal(Marshal(test.err))), test.name)
	}
}

func TestMarshalLicenseError(t *testing.T) {
	err := &LicenseError{Feature: "embedded_code", Required: "Trial", Current: "None"}
	assert.Equal(t, err, Unmarshal(Marshal(err)))
	assert.True(t, strings.HasSuffix(GetPrintableMessage(Unmarshal(Marshal(err))),
		"your license tier is None. Please upgrade your license."))
}

func TestUnmarshalPreservesMatching(t *testing.T) {
	err := Unmarshal(Marshal(Corrupt("x", New("bad yaml"))))
	assert.True(t, Is(err, ErrCorrupt))
	assert.False(t, Is(err, ErrNotFound))

	err = Unmarshal(Marshal(&LicenseError{Err: &TimeoutError{Op: "validate license", Err: context.DeadlineExceeded}}))
	assert.True(t, Is(err, ErrLicenseUnavailable))
	assert.True(t, Is(err, ErrTimeout))
}

type customFriendlyError struct {
	msg   string
	count int
}

func (err customFriendlyError) FriendlyMessage() string {
	return strings.Repeat(err.msg, err.count)
}

func (err customFriendlyError) Error() string {
	return "unused"
}

func TestMarshalCustomFriendlyError(t *testing.T) {
	err := customFriendlyError{"foo", 3}
	exp := NewFriendlyError("foofoofoo")
	assert.Equal(t, exp, Unmarshal(Marshal(err)))
}
