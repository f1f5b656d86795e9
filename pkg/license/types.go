package license

import (
	"fmt"
	"strings"
	"time"
)

// Tier is the license classification that controls feature availability.
// Tiers are ordered: a feature that requires Trial is also available to
// Noncommercial and Commercial licenses.
type Tier int

const (
	None Tier = iota
	Trial
	Noncommercial
	Commercial
)

var tierNames = map[Tier]string{
	None:          "None",
	Trial:         "Trial",
	Noncommercial: "Noncommercial",
	Commercial:    "Commercial",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier parses a tier name, ignoring case.
func ParseTier(s string) (Tier, error) {
	for tier, name := range tierNames {
		if strings.EqualFold(s, name) {
			return tier, nil
		}
	}
	return None, fmt.Errorf("unknown license tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if _, ok := tierNames[t]; !ok {
		return nil, fmt.Errorf("unknown license tier %d", int(t))
	}
	return []byte(strings.ToLower(t.String())), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	tier, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

type License struct {
	Customer string
	Tier     Tier

	// Products lists the products the key unlocks. An empty list unlocks
	// every product.
	Products []string

	// A zero value indicates the license never expires.
	ExpiryTime time.Time

	// Version is a semver constraint on the gridpro versions that may use
	// this license, e.g. ">= 1.2, < 2". Empty allows every version.
	Version string

	// verified indicates whether this license has had a validated signature.
	verified bool
}

type SignedLicense struct {
	// LicenseJSON is a string instead of a []byte so that it is easier to read
	// the marshalled SignedLicense.
	LicenseJSON string
	// Signature is the ed25519 signature of the exact byte sequence stored as
	// LicenseJSON.
	Signature []byte
}

// Grant is what a Backend reports for a product key.
type Grant struct {
	Customer   string
	Tier       Tier
	ValidUntil *time.Time
	Version    string
}

// Record is the process-wide license state. It is always handed out by
// value.
type Record struct {
	Tier        Tier
	ValidUntil  *time.Time
	ValidatedAt time.Time
	Customer    string

	// Err is the reason validation failed. Tier is None whenever Err is set.
	Err error
}

// Expired returns whether the record's license has expired as of now.
func (r Record) Expired(now time.Time) bool {
	return r.ValidUntil != nil && now.After(*r.ValidUntil)
}
