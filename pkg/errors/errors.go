package errors

import (
	goerrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/buger/goterm"
)

// ContextError is an error that has information on what caused it.
type ContextError interface {
	Cause() error
	Context() string

	Error() string
}

// A FriendlyError is an error with that can be directly printed to the user
// without any other context.
type FriendlyError interface {
	FriendlyMessage() string
	Error() string
}

type contextErrorImpl struct {
	err     error
	context string
}

func (err contextErrorImpl) Context() string {
	return err.context
}

func (err contextErrorImpl) Error() string {
	// If we one of our children is a friendly error, print that.
	if friendlyMsg, ok := getFriendlyMessage(err); ok {
		return friendlyMsg
	}

	// Otherwise, print the full error tree.
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextErrorImpl) Cause() error {
	return err.err
}

func (err contextErrorImpl) Unwrap() error {
	return err.err
}

type friendlyErrorImpl struct {
	message string
}

func (err friendlyErrorImpl) Error() string {
	return err.message
}

func (err friendlyErrorImpl) FriendlyMessage() string {
	return err.message
}

// WithContext returns an error that can be unwrapped by `Cause`.
func WithContext(context string, err error) error {
	return contextErrorImpl{err, context}
}

// Cause returns the cause of the given error if it's defined.
func Cause(err error) (error, bool) { // nolint: golint, staticcheck, stylecheck
	if errWithContext, ok := err.(ContextError); ok {
		return errWithContext.Cause(), true
	}

	// The typed errors in this package wrap their cause with Unwrap instead
	// of the ContextError interface.
	if cause := goerrors.Unwrap(err); cause != nil {
		return cause, true
	}
	return nil, false
}

// RootCause returns the root cause of the given error.
func RootCause(err error) error {
	for {
		cause, ok := Cause(err)
		if !ok {
			return err
		}
		err = cause
	}
}

// New returns a new Go error. It is provided so that callers don't have to
// import both the Go "errors" package and this package.
func New(f string, args ...interface{}) error {
	return fmt.Errorf(f, args...)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// NewFriendlyError returns a new user friendly error that can be retrieved by
// GetPrintableMessage.
func NewFriendlyError(f string, args ...interface{}) error {
	return friendlyErrorImpl{fmt.Sprintf(f, args...)}
}

// GetPrintableMessage returns a user friendly error to print to the user.
// If any error in the error chain has a user friendly error message, it prints
// that. Otherwise, it prints the errors' generic message.
func GetPrintableMessage(err error) string {
	if friendlyMsg, ok := getFriendlyMessage(err); ok {
		return friendlyMsg
	}
	return err.Error()
}

func getFriendlyMessage(err error) (string, bool) {
	var friendlyError FriendlyError
	if !goerrors.As(err, &friendlyError) {
		return "", false
	}
	return friendlyError.FriendlyMessage(), true
}

// FatalBanner is printed above every fatal error.
const FatalBanner = "FATAL ERROR: Run the command again with --verbose for details."

// PrintFatalError prints the banner and the user friendly message for err.
func PrintFatalError(out io.Writer, err error, color bool) {
	banner := FatalBanner
	if color {
		banner = goterm.Color(banner, goterm.RED)
	}
	fmt.Fprintln(out, banner)
	fmt.Fprintln(out, GetPrintableMessage(err))
}

// HandleFatalError prints err to stderr and exits.
func HandleFatalError(err error) {
	PrintFatalError(os.Stderr, err, true)
	os.Exit(1)
}
