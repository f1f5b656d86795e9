package permission

import (
	"fmt"
	"strings"

	"github.com/gridpro/gridpro/pkg/codestore"
	"github.com/gridpro/gridpro/pkg/hash"
)

// Reason explains a Decision.
type Reason int

const (
	OK Reason = iota
	FingerprintMismatch
	Missing
	Unsigned
	NotAllowed
)

func (r Reason) String() string {
	switch r {
	case OK:
		return "OK"
	case FingerprintMismatch:
		return "FingerprintMismatch"
	case Missing:
		return "Missing"
	case Unsigned:
		return "Unsigned"
	case NotAllowed:
		return "NotAllowed"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Decision is the result of verifying a single blob. It is never persisted.
type Decision struct {
	BlobName   string
	Authorized bool
	Reason     Reason
}

func allow(name string) Decision {
	return Decision{BlobName: name, Authorized: true, Reason: OK}
}

func deny(name string, reason Reason) Decision {
	return Decision{BlobName: name, Authorized: false, Reason: reason}
}

// MissingDecision is the decision for a blob that doesn't exist.
func MissingDecision(name string) Decision {
	return deny(name, Missing)
}

// Verifier decides whether a blob may be executed. It holds no state about
// blobs, so it is re-run before every execution rather than caching trust.
type Verifier struct {
	// Allowed, when non-empty, lists the base16 fingerprints that may run.
	// A blob that is self-consistent but not listed is NotAllowed.
	Allowed map[string]struct{}
}

// NewVerifier returns a verifier that only admits the given fingerprints, or
// every self-consistent blob if none are given.
func NewVerifier(allowed ...string) Verifier {
	v := Verifier{}
	if len(allowed) == 0 {
		return v
	}

	v.Allowed = map[string]struct{}{}
	for _, fp := range allowed {
		v.Allowed[strings.ToLower(fp)] = struct{}{}
	}
	return v
}

// Verify recomputes the blob's fingerprint and compares it against the one
// stored when the blob was written.
func (v Verifier) Verify(blob codestore.Blob) Decision {
	if len(blob.Fingerprint) == 0 {
		return deny(blob.Name, Unsigned)
	}

	actual := hash.Fingerprint(blob.Source)
	if !hash.Equal(actual, blob.Fingerprint) {
		return deny(blob.Name, FingerprintMismatch)
	}

	if len(v.Allowed) != 0 {
		if _, ok := v.Allowed[hash.Encode(actual)]; !ok {
			return deny(blob.Name, NotAllowed)
		}
	}
	return allow(blob.Name)
}
