package codestore

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridpro/gridpro/pkg/document"
	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/hash"
)

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	store := New(document.NewFile(afero.NewMemMapFs(), "workbook.yaml"))
	store.Now = func() time.Time { return now }

	put, err := store.Put(ctx, "macro1", []byte("print('hi')"))
	require.NoError(t, err)
	assert.Equal(t, hash.Fingerprint([]byte("print('hi')")), put.Fingerprint)

	got, err := store.Get(ctx, "macro1")
	require.NoError(t, err)
	assert.Equal(t, "macro1", got.Name)
	assert.Equal(t, "print('hi')", string(got.Source))
	assert.Equal(t, put.Fingerprint, got.Fingerprint)
	assert.True(t, got.LastModified.Equal(now))
}

func TestPutRejectsBadNames(t *testing.T) {
	store := New(document.NewMemory())
	_, err := store.Put(context.Background(), "../escape.py", []byte("x"))
	assert.Error(t, err)

	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestPutDoesNotAliasCallerSource(t *testing.T) {
	ctx := context.Background()
	store := New(document.NewMemory())
	source := []byte("x = 1")

	blob, err := store.Put(ctx, "a", source)
	require.NoError(t, err)
	source[0] = 'y'
	assert.Equal(t, "x = 1", string(blob.Source))
}

func TestGetErrors(t *testing.T) {
	ctx := context.Background()
	doc := document.NewMemory()
	store := New(doc)

	_, err := store.Get(ctx, "doesNotExist")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, doc.Save(ctx, document.Record{Name: "bad", Source: []byte("x"), Fingerprint: "zz"}))
	_, err = store.Get(ctx, "bad")
	assert.True(t, errors.Is(err, errors.ErrCorrupt))
	assert.False(t, errors.Is(err, errors.ErrPermissionDenied))

	var codeErr *errors.EmbeddedCodeError
	require.True(t, errors.As(err, &codeErr))
	assert.Equal(t, "bad", codeErr.Name)
}

func TestGetShortFingerprint(t *testing.T) {
	ctx := context.Background()
	doc := document.NewMemory()
	store := New(doc)

	require.NoError(t, doc.Save(ctx, document.Record{Name: "short", Source: []byte("x"), Fingerprint: "deadbeef"}))
	blob, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, blob.Fingerprint)
}

func TestGetUnsigned(t *testing.T) {
	ctx := context.Background()
	doc := document.NewMemory()
	require.NoError(t, doc.Save(ctx, document.Record{Name: "hand-written", Source: []byte("x")}))

	blob, err := New(doc).Get(ctx, "hand-written")
	require.NoError(t, err)
	assert.Nil(t, blob.Fingerprint)
}

func TestListKeepsDocumentOrder(t *testing.T) {
	ctx := context.Background()
	store := New(document.NewMemory())
	for _, name := range []string{"Sheet3.py", "Sheet1.py", "Sheet2.py"} {
		_, err := store.Put(ctx, name, []byte(name))
		require.NoError(t, err)
	}
	_, err := store.Put(ctx, "Sheet3.py", []byte("updated"))
	require.NoError(t, err)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet3.py", "Sheet1.py", "Sheet2.py"}, names)

	require.NoError(t, store.Delete(ctx, "Sheet1.py"))
	assert.True(t, errors.Is(store.Delete(ctx, "Sheet1.py"), errors.ErrNotFound))
}
