package license

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/gridpro/gridpro/pkg/errors"
)

// errNotValidated is the failure reported by gates that are consulted before
// Validate has run.
var errNotValidated = errors.NewFriendlyError("The license has not been validated yet.")

// State holds the process-wide license record. It is created once at
// application startup, validated, and then passed to everything that gates
// features on the license.
type State struct {
	Backend  Backend
	Features Features

	// Timeout bounds a single backend call. Zero means no timeout beyond the
	// caller's context.
	Timeout time.Duration

	// Now is used instead of time.Now when set.
	Now func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	record    Record
	validated bool
}

// NewState returns an unvalidated State.
func NewState(backend Backend, features Features) *State {
	if features == nil {
		features = DefaultFeatures()
	}
	return &State{
		Backend:  backend,
		Features: features,
	}
}

// Validate validates the product key and caches the result for the rest of
// the process. Later calls return the cached record unless forceRefresh is
// set. Concurrent calls share a single backend call.
//
// If validation fails, the record's tier is None and the returned error is a
// *errors.LicenseError. The record is still cached, so every gate reports
// disabled until a forced refresh succeeds.
func (s *State) Validate(ctx context.Context, productKey string, forceRefresh bool) (Record, error) {
	if !forceRefresh {
		if record, ok := s.Record(); ok {
			log.Debug("Using cached license record")
			return record, recordError(record)
		}
	}

	v, _, _ := s.group.Do("validate", func() (interface{}, error) {
		// Another caller may have finished validating while we waited to
		// enter the group.
		if !forceRefresh {
			if record, ok := s.Record(); ok {
				return record, nil
			}
		}
		return s.validate(ctx, productKey), nil
	})

	record := v.(Record)
	return record, recordError(record)
}

// Record returns the current record, and whether Validate has completed.
func (s *State) Record() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record, s.validated
}

// IsFeatureEnabled returns whether the cached license enables the feature.
func (s *State) IsFeatureEnabled(feature string) bool {
	return s.Check(feature) == nil
}

// Check returns a *errors.LicenseError describing why the feature is
// disabled, or nil if it is enabled.
func (s *State) Check(feature string) error {
	record, ok := s.Record()
	if !ok {
		return &errors.LicenseError{Feature: feature, Current: None.String(), Err: errNotValidated}
	}

	required, known := s.Features.Required(feature)
	if !known {
		return &errors.LicenseError{
			Feature: feature,
			Current: record.Tier.String(),
			Err:     errors.NewFriendlyError("%q is not a licensed feature.", feature),
		}
	}

	if record.Err != nil {
		return &errors.LicenseError{
			Feature:  feature,
			Required: required.String(),
			Current:  None.String(),
			Err:      record.Err,
		}
	}

	// The license may have expired since it was validated.
	if record.Expired(s.now()) {
		return &errors.LicenseError{
			Feature:  feature,
			Required: required.String(),
			Current:  record.Tier.String(),
			Err: errors.NewFriendlyError("Your gridpro license expired at %s.",
				record.ValidUntil.Format(time.RFC822)),
		}
	}

	if record.Tier < required {
		return &errors.LicenseError{
			Feature:  feature,
			Required: required.String(),
			Current:  record.Tier.String(),
		}
	}
	return nil
}

func (s *State) validate(ctx context.Context, productKey string) Record {
	now := s.now()
	grant, err := s.callBackend(ctx, productKey)
	if err == nil {
		err = grant.Check(now)
	}

	record := Record{ValidatedAt: now}
	if err != nil {
		record.Tier = None
		record.Err = err
		log.WithError(err).Warn("License validation failed. Premium features are disabled")
	} else {
		record.Tier = grant.Tier
		record.ValidUntil = grant.ValidUntil
		record.Customer = grant.Customer
		log.WithField("tier", grant.Tier).
			WithField("customer", grant.Customer).
			Info("Validated license")
	}

	s.mu.Lock()
	s.record = record
	s.validated = true
	s.mu.Unlock()
	return record
}

// callBackend runs the backend call in its own goroutine so that a backend
// that ignores its context still can't block validation past the deadline.
func (s *State) callBackend(ctx context.Context, productKey string) (Grant, error) {
	if s.Backend == nil {
		return Grant{}, errors.New("no license backend configured")
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	type result struct {
		grant Grant
		err   error
	}
	resultChan := make(chan result, 1)
	go func() {
		grant, err := s.Backend.Validate(ctx, productKey)
		resultChan <- result{grant, err}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil && ctx.Err() == context.DeadlineExceeded {
			return Grant{}, &errors.TimeoutError{Op: "validate license", Err: res.err}
		}
		return res.grant, res.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return Grant{}, &errors.TimeoutError{Op: "validate license", Err: ctx.Err()}
		}
		return Grant{}, errors.WithContext("validate license", ctx.Err())
	}
}

func (s *State) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func recordError(record Record) error {
	if record.Err == nil {
		return nil
	}
	return &errors.LicenseError{Current: None.String(), Err: record.Err}
}
