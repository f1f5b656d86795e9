// Package runner executes embedded code after checking that the feature is
// licensed and that the code is authorized to run.
//
// Run is the single choke point for execution: it is the only code in this
// module that hands source text to an Executor, and it does so only after a
// fresh Decision with Authorized set.
package runner

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gridpro/gridpro/pkg/codestore"
	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/hash"
	"github.com/gridpro/gridpro/pkg/license"
	"github.com/gridpro/gridpro/pkg/permission"
)

// Stage is a step of a single Run.
type Stage int

const (
	Start Stage = iota
	LicenseChecked
	Fetched
	Verified
	Dispatched
	Success
	Failed
)

func (s Stage) String() string {
	switch s {
	case Start:
		return "Start"
	case LicenseChecked:
		return "LicenseChecked"
	case Fetched:
		return "Fetched"
	case Verified:
		return "Verified"
	case Dispatched:
		return "Dispatched"
	case Success:
		return "Success"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Executor is the scripting host that actually runs the code. The source is
// passed through unmodified.
type Executor interface {
	Execute(ctx context.Context, name string, source []byte) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, name string, source []byte) error

func (f ExecutorFunc) Execute(ctx context.Context, name string, source []byte) error {
	return f(ctx, name, source)
}

// Gate reports whether a licensed feature is enabled. *license.State
// implements it.
type Gate interface {
	Check(feature string) error
}

// Store fetches blobs. *codestore.Store implements it.
type Store interface {
	Get(ctx context.Context, name string) (codestore.Blob, error)
	List(ctx context.Context) ([]string, error)
}

// Result describes how far a Run got.
type Result struct {
	Name string

	// Stage is Success or Failed once Run returns.
	Stage Stage

	// FailedAt is the last stage that was reached before the failure.
	FailedAt Stage

	Decision permission.Decision
}

type Runner struct {
	License  Gate
	Store    Store
	Verifier permission.Verifier

	// Executor is used by RunEmbeddedCode.
	Executor Executor

	// ExecTimeout bounds a single Execute call. Zero means no timeout beyond
	// the caller's context.
	ExecTimeout time.Duration
}

// Run executes the named embedded code. Each stage either advances or ends
// the run with a single tagged error; nothing is retried, and the executor is
// never invoked unless every check passed.
func (r *Runner) Run(ctx context.Context, name string, executor Executor) (Result, error) {
	result := Result{Name: name, Stage: Start}
	logger := log.WithField("name", name)
	fail := func(err error) (Result, error) {
		result.FailedAt = result.Stage
		result.Stage = Failed
		logger.WithError(err).
			WithField("stage", result.FailedAt).
			Warn("Embedded code was not run")
		return result, err
	}

	if err := r.License.Check(license.FeatureEmbeddedCode); err != nil {
		return fail(err)
	}
	result.Stage = LicenseChecked

	blob, err := r.Store.Get(ctx, name)
	if err != nil {
		return fail(err)
	}
	result.Stage = Fetched

	result.Decision = r.Verifier.Verify(blob)
	if !result.Decision.Authorized {
		return fail(&errors.PermissionError{Name: name, Reason: result.Decision.Reason.String()})
	}
	result.Stage = Verified

	if executor == nil {
		return fail(errors.New("no executor configured"))
	}

	result.Stage = Dispatched
	logger.WithField("fingerprint", hash.Short(blob.Fingerprint)).Info("Running embedded code")
	if err := r.execute(ctx, executor, blob); err != nil {
		return fail(err)
	}

	result.Stage = Success
	return result, nil
}

// execute runs the executor in its own goroutine so that an executor that
// ignores its context can't hold the caller past the deadline.
func (r *Runner) execute(ctx context.Context, executor Executor, blob codestore.Blob) error {
	if r.ExecTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.ExecTimeout)
		defer cancel()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- executor.Execute(ctx, blob.Name, blob.Source)
	}()

	var err error
	select {
	case err = <-errChan:
	case <-ctx.Done():
		err = ctx.Err()
	}

	switch {
	case err == nil:
		return nil
	case ctx.Err() == context.DeadlineExceeded:
		return &errors.TimeoutError{Op: "execute", Name: blob.Name, Err: err}
	default:
		return &errors.ExecutionError{Name: blob.Name, Err: err}
	}
}
