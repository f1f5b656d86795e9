package codestore

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gridpro/gridpro/pkg/document"
	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/hash"
	"github.com/gridpro/gridpro/pkg/names"
)

// Blob is one embedded code module as read from the document.
type Blob struct {
	Name   string
	Source []byte

	// Fingerprint is the digest recorded when the blob was last written
	// through Put. It is nil if the blob was never signed.
	Fingerprint []byte

	LastModified time.Time
}

// Store reads and writes embedded code in a host document.
type Store struct {
	Document document.Document

	// Now is used instead of time.Now when set.
	Now func() time.Time
}

func New(doc document.Document) *Store {
	return &Store{Document: doc}
}

// Get returns the named blob. The error matches errors.ErrNotFound if there
// is no such blob, and errors.ErrCorrupt if it couldn't be decoded.
func (s *Store) Get(ctx context.Context, name string) (Blob, error) {
	record, err := s.Document.Load(ctx, name)
	if err != nil {
		return Blob{}, err
	}

	fingerprint, err := hash.Decode(record.Fingerprint)
	if err != nil {
		log.WithError(err).WithField("name", name).Warn("Stored fingerprint is malformed")
		return Blob{}, errors.Corrupt(name, errors.WithContext("decode fingerprint", err))
	}

	return Blob{
		Name:         name,
		Source:       record.Source,
		Fingerprint:  fingerprint,
		LastModified: record.Modified,
	}, nil
}

// Put writes the source under name along with a freshly computed
// fingerprint. This is the only authorized write path: a blob written any
// other way will fail verification.
func (s *Store) Put(ctx context.Context, name string, source []byte) (Blob, error) {
	if err := names.Validate(name); err != nil {
		return Blob{}, err
	}

	source = append([]byte(nil), source...)
	fingerprint := hash.Fingerprint(source)
	blob := Blob{
		Name:         name,
		Source:       source,
		Fingerprint:  fingerprint,
		LastModified: s.now(),
	}

	err := s.Document.Save(ctx, document.Record{
		Name:        name,
		Source:      source,
		Fingerprint: hash.Encode(fingerprint),
		Modified:    blob.LastModified,
	})
	if err != nil {
		return Blob{}, errors.WithContext("save embedded code", err)
	}

	log.WithField("name", name).
		WithField("fingerprint", hash.Short(fingerprint)).
		Debug("Saved embedded code")
	return blob, nil
}

// List returns the blob names in document order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.Document.Names(ctx)
}

// Delete removes the named blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.Document.Delete(ctx, name)
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
