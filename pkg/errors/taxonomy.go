package errors

import (
	goerrors "errors"
	"fmt"
)

var (
	// ErrLicenseUnavailable is matched by every LicenseError.
	ErrLicenseUnavailable = goerrors.New("license unavailable")

	// ErrNotFound and ErrCorrupt are the two kinds of EmbeddedCodeError.
	ErrNotFound = goerrors.New("embedded code not found")
	ErrCorrupt  = goerrors.New("embedded code corrupt")

	// ErrPermissionDenied is matched by every PermissionError.
	ErrPermissionDenied = goerrors.New("permission denied")

	// ErrTimeout is matched by every TimeoutError.
	ErrTimeout = goerrors.New("timeout")
)

// LicenseError reports that a feature is not licensed, either because the
// current tier is too low or because the license could not be validated.
type LicenseError struct {
	Feature  string
	Required string
	Current  string

	// Err is the validation failure, if validation did not complete.
	Err error
}

func (e *LicenseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("license unavailable: %s", e.Err)
	}
	return fmt.Sprintf("feature %q requires tier %s (current tier: %s)",
		e.Feature, e.Required, e.Current)
}

func (e *LicenseError) FriendlyMessage() string {
	if e.Err != nil {
		return fmt.Sprintf("Your license could not be validated, so premium "+
			"features are disabled.\n\nThe full error was: %s", GetPrintableMessage(e.Err))
	}
	if e.Feature == "" {
		return "Your license has not been validated yet."
	}
	return fmt.Sprintf("The %q feature requires a %s license, but your "+
		"license tier is %s. Please upgrade your license.",
		e.Feature, e.Required, e.Current)
}

func (e *LicenseError) Is(target error) bool {
	return target == ErrLicenseUnavailable
}

func (e *LicenseError) Unwrap() error {
	return e.Err
}

// EmbeddedCodeError is returned when a named blob cannot be read from the
// document. Kind is either ErrNotFound or ErrCorrupt.
type EmbeddedCodeError struct {
	Name string
	Kind error
	Err  error
}

func (e *EmbeddedCodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %s", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("%s %q", e.Kind, e.Name)
}

func (e *EmbeddedCodeError) FriendlyMessage() string {
	if e.Kind == ErrCorrupt {
		return fmt.Sprintf("The embedded code %q is stored in a format that "+
			"could not be read. The document may be damaged.", e.Name)
	}
	return fmt.Sprintf("This document has no embedded code named %q.", e.Name)
}

func (e *EmbeddedCodeError) Is(target error) bool {
	return target == e.Kind
}

func (e *EmbeddedCodeError) Unwrap() error {
	return e.Err
}

// NotFound returns an EmbeddedCodeError of kind ErrNotFound.
func NotFound(name string) error {
	return &EmbeddedCodeError{Name: name, Kind: ErrNotFound}
}

// Corrupt returns an EmbeddedCodeError of kind ErrCorrupt.
func Corrupt(name string, err error) error {
	return &EmbeddedCodeError{Name: name, Kind: ErrCorrupt, Err: err}
}

// PermissionError reports that a blob failed verification. Reason is the
// verifier's reason, e.g. "FingerprintMismatch".
type PermissionError struct {
	Name   string
	Reason string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied for %q: %s", e.Name, e.Reason)
}

func (e *PermissionError) FriendlyMessage() string {
	switch e.Reason {
	case "FingerprintMismatch":
		return fmt.Sprintf("The embedded code %q was modified outside of "+
			"gridpro and will not be run. Re-save it with `gridpro put` to "+
			"authorize the change.", e.Name)
	case "Unsigned":
		return fmt.Sprintf("The embedded code %q has no fingerprint and will "+
			"not be run. Re-save it with `gridpro put` to authorize it.", e.Name)
	case "NotAllowed":
		return fmt.Sprintf("The embedded code %q is not on the approved list.", e.Name)
	case "Missing":
		return fmt.Sprintf("This document has no embedded code named %q.", e.Name)
	}
	return e.Error()
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// ExecutionError wraps a failure reported by the execution collaborator.
type ExecutionError struct {
	Name string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %q: %s", e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that Op did not finish before its deadline.
type TimeoutError struct {
	Op   string
	Name string
	Err  error
}

func (e *TimeoutError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q timed out: %s", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("%s timed out: %s", e.Op, e.Err)
}

func (e *TimeoutError) FriendlyMessage() string {
	if e.Name != "" {
		return fmt.Sprintf("Timed out while trying to %s %q.", e.Op, e.Name)
	}
	return fmt.Sprintf("Timed out while trying to %s.", e.Op)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
