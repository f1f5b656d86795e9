package license

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/Masterminds/semver"

	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/version"
)

// NoncommercialKey is the product key that unlocks the noncommercial tier.
// It carries no signature because noncommercial use is free.
const NoncommercialKey = "noncommercial"

// LicensePublicKeyBase64 is expected to be set at build time.
var LicensePublicKeyBase64 string

// DefaultPublicKey returns the public key that was set at build time.
func DefaultPublicKey() (ed25519.PublicKey, error) {
	return DecodePublicKey(LicensePublicKeyBase64)
}

// DecodePublicKey decodes a base64 ed25519 public key.
func DecodePublicKey(encoded string) (ed25519.PublicKey, error) {
	if encoded == "" {
		return nil, errors.New("no license public key configured")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.WithContext("decode license public key", err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.New("license public key has %d bytes, expected %d",
			len(decoded), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(decoded), nil
}

// Backend validates a product key. Implementations may check the key locally
// or ask a remote service.
type Backend interface {
	Validate(ctx context.Context, productKey string) (Grant, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, productKey string) (Grant, error)

func (f BackendFunc) Validate(ctx context.Context, productKey string) (Grant, error) {
	return f(ctx, productKey)
}

// OfflineBackend validates signed product keys without any network access.
type OfflineBackend struct {
	PublicKey ed25519.PublicKey
	Product   string
}

func (b OfflineBackend) Validate(_ context.Context, productKey string) (Grant, error) {
	productKey = strings.TrimSpace(productKey)
	if productKey == "" {
		return Grant{}, errors.NewFriendlyError("No license key is configured. " +
			"Set GRIDPRO_LICENSE_KEY or add `licenseKey` to your config file.")
	}

	if productKey == NoncommercialKey {
		return Grant{Customer: NoncommercialKey, Tier: Noncommercial}, nil
	}

	license, err := Parse(b.PublicKey, productKey)
	if err != nil {
		return Grant{}, err
	}
	if !license.Verified() {
		return Grant{}, errors.NewFriendlyError("Your license key has an invalid signature.")
	}

	if b.Product != "" && !license.Covers(b.Product) {
		return Grant{}, errors.NewFriendlyError("Your license key is not valid for %q.", b.Product)
	}

	grant := Grant{
		Customer: license.Customer,
		Tier:     license.Tier,
		Version:  license.Version,
	}
	if !license.ExpiryTime.IsZero() {
		expiry := license.ExpiryTime
		grant.ValidUntil = &expiry
	}
	return grant, nil
}

// Parse decodes a product key and verifies its signature.
func Parse(publicKey ed25519.PublicKey, productKey string) (*License, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, errors.New("no license public key configured")
	}

	signedLicenseJSON, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(productKey, "="))
	if err != nil {
		return nil, errors.NewFriendlyError("Your license key is malformed.")
	}

	var signedLicense SignedLicense
	err = json.Unmarshal(signedLicenseJSON, &signedLicense)
	if err != nil {
		return nil, errors.WithContext("unmarshal signed license", err)
	}

	licenseBytes := []byte(signedLicense.LicenseJSON)
	if !ed25519.Verify(publicKey, licenseBytes, signedLicense.Signature) {
		return nil, errors.NewFriendlyError("Your license key has an invalid signature.")
	}

	var license License
	err = json.Unmarshal(licenseBytes, &license)
	if err != nil {
		return nil, errors.WithContext("unmarshal license", err)
	}
	license.verified = true

	return &license, nil
}

// Sign creates a product key for the given license.
func Sign(privateKey ed25519.PrivateKey, license License) (string, error) {
	licenseBytes, err := json.Marshal(license)
	if err != nil {
		return "", errors.WithContext("marshal license", err)
	}

	signedLicense := SignedLicense{
		LicenseJSON: string(licenseBytes),
		Signature:   ed25519.Sign(privateKey, licenseBytes),
	}
	signedLicenseBytes, err := json.Marshal(signedLicense)
	if err != nil {
		return "", errors.WithContext("marshal signed license", err)
	}
	return base64.RawURLEncoding.EncodeToString(signedLicenseBytes), nil
}

// Covers returns whether the license unlocks the given product.
func (l *License) Covers(product string) bool {
	if len(l.Products) == 0 {
		return true
	}
	for _, p := range l.Products {
		if strings.EqualFold(p, product) {
			return true
		}
	}
	return false
}

// Verified returns whether the license came from a key with a valid
// signature.
func (l *License) Verified() bool {
	return l != nil && l.verified
}

// Check applies the checks that don't depend on how the grant was obtained:
// the tier must be set, the license must not have expired, and the running
// version must satisfy the license's version constraint.
func (g Grant) Check(now time.Time) error {
	if g.Tier == None {
		return errors.NewFriendlyError("Your license key does not grant any tier.")
	}

	if g.ValidUntil != nil && now.After(*g.ValidUntil) {
		return errors.NewFriendlyError("Your gridpro license expired at %s.",
			g.ValidUntil.Format(time.RFC822))
	}

	if g.Version == "" || version.IsDevelopment() {
		return nil
	}

	constraint, err := semver.NewConstraint(g.Version)
	if err != nil {
		return errors.WithContext("parse license version constraint", err)
	}

	running, err := semver.NewVersion(version.Version)
	if err != nil {
		return errors.WithContext("parse gridpro version", err)
	}

	if !constraint.Check(running) {
		return errors.NewFriendlyError("Your license key is valid for gridpro %s, "+
			"but this is gridpro %s.", g.Version, version.Version)
	}
	return nil
}
