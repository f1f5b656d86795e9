package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Size is the length in bytes of a fingerprint.
const Size = sha256.Size

// Fingerprint returns the sha256 digest of the given source text. It is the
// only digest used for embedded code, both when it's written and when it's
// verified.
func Fingerprint(source []byte) []byte {
	sum := sha256.Sum256(source)
	return sum[:]
}

// Equal compares two fingerprints in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Encode encodes a fingerprint into base16.
func Encode(fingerprint []byte) string {
	return hex.EncodeToString(fingerprint)
}

// Decode parses a base16 fingerprint. An empty string decodes to a nil
// fingerprint, which callers treat as unsigned. The length isn't checked:
// a stored fingerprint of the wrong length is a mismatch, not damage.
func Decode(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	return hex.DecodeString(encoded)
}

// DecodeDigest parses a base16 fingerprint that must be a full digest, such
// as an allowlist entry.
func DecodeDigest(encoded string) ([]byte, error) {
	fingerprint, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(fingerprint) != Size {
		return nil, fmt.Errorf("fingerprint has %d bytes, expected %d", len(fingerprint), Size)
	}
	return fingerprint, nil
}

// Short returns an abbreviated base16 fingerprint for log messages.
func Short(fingerprint []byte) string {
	encoded := Encode(fingerprint)
	if len(encoded) > 12 {
		return encoded[:12]
	}
	return encoded
}
