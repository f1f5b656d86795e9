package permission

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridpro/gridpro/pkg/codestore"
	"github.com/gridpro/gridpro/pkg/document"
	"github.com/gridpro/gridpro/pkg/hash"
)

func TestVerifyFreshlyWrittenCode(t *testing.T) {
	sources := []string{
		"",
		"print('hi')",
		"import xlwings as xw\n\ndef main():\n    pass\n",
		strings.Repeat("x", 1<<16),
		"\x00\xff binary",
	}

	store := codestore.New(document.NewMemory())
	for i, source := range sources {
		blob, err := store.Put(context.Background(), "m"+string(rune('a'+i)), []byte(source))
		require.NoError(t, err)

		got, err := store.Get(context.Background(), blob.Name)
		require.NoError(t, err)

		assert.Equal(t, Decision{BlobName: blob.Name, Authorized: true, Reason: OK},
			Verifier{}.Verify(got))
	}
}

func TestVerify(t *testing.T) {
	source := []byte("print('hi')")
	fp := hash.Fingerprint(source)

	tests := []struct {
		name        string
		verifier    Verifier
		blob        codestore.Blob
		expDecision Decision
	}{
		{
			name:        "authorized",
			blob:        codestore.Blob{Name: "a", Source: source, Fingerprint: fp},
			expDecision: Decision{BlobName: "a", Authorized: true, Reason: OK},
		},
		{
			name:        "source edited after write",
			blob:        codestore.Blob{Name: "a", Source: []byte("print('pwned')"), Fingerprint: fp},
			expDecision: Decision{BlobName: "a", Reason: FingerprintMismatch},
		},
		{
			name:        "single byte appended",
			blob:        codestore.Blob{Name: "a", Source: append(append([]byte(nil), source...), ' '), Fingerprint: fp},
			expDecision: Decision{BlobName: "a", Reason: FingerprintMismatch},
		},
		{
			name:        "fingerprint replaced",
			blob:        codestore.Blob{Name: "a", Source: source, Fingerprint: hash.Fingerprint([]byte("x"))},
			expDecision: Decision{BlobName: "a", Reason: FingerprintMismatch},
		},
		{
			name:        "truncated fingerprint",
			blob:        codestore.Blob{Name: "a", Source: source, Fingerprint: fp[:8]},
			expDecision: Decision{BlobName: "a", Reason: FingerprintMismatch},
		},
		{
			name:        "unsigned",
			blob:        codestore.Blob{Name: "a", Source: source},
			expDecision: Decision{BlobName: "a", Reason: Unsigned},
		},
		{
			name:        "allowlisted",
			verifier:    NewVerifier(strings.ToUpper(hash.Encode(fp))),
			blob:        codestore.Blob{Name: "a", Source: source, Fingerprint: fp},
			expDecision: Decision{BlobName: "a", Authorized: true, Reason: OK},
		},
		{
			name:        "not allowlisted",
			verifier:    NewVerifier(hash.Encode(hash.Fingerprint([]byte("other")))),
			blob:        codestore.Blob{Name: "a", Source: source, Fingerprint: fp},
			expDecision: Decision{BlobName: "a", Reason: NotAllowed},
		},
		{
			name:        "tampering beats the allowlist",
			verifier:    NewVerifier(hash.Encode(fp)),
			blob:        codestore.Blob{Name: "a", Source: []byte("evil"), Fingerprint: fp},
			expDecision: Decision{BlobName: "a", Reason: FingerprintMismatch},
		},
	}

	for _, test := range tests {
		assert.Equal(t, test.expDecision, test.verifier.Verify(test.blob), test.name)
	}
}

func TestVerifyDoesNotMutateBlob(t *testing.T) {
	source := []byte("print('hi')")
	blob := codestore.Blob{Name: "a", Source: source, Fingerprint: hash.Fingerprint(source)}
	before := blob
	before.Source = append([]byte(nil), source...)
	before.Fingerprint = append([]byte(nil), blob.Fingerprint...)

	Verifier{}.Verify(blob)
	Verifier{}.Verify(blob)
	assert.Equal(t, before, blob)
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "FingerprintMismatch", FingerprintMismatch.String())
	assert.Equal(t, "Reason(42)", Reason(42).String())
	assert.Equal(t, Decision{BlobName: "x", Reason: Missing}, MissingDecision("x"))
}
