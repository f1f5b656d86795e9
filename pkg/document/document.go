// Package document adapts the host document's auxiliary storage to a small
// key/value interface for embedded code.
//
// Each Record is read and written as a single unit: a reader never sees the
// source from one write and the fingerprint from another.
package document

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/gridpro/gridpro/pkg/errors"
)

// Record is the persisted form of one embedded code module.
type Record struct {
	Name   string
	Source []byte

	// Fingerprint is the base16 digest of Source as of the last authorized
	// write. Empty means the module was never signed.
	Fingerprint string

	Modified time.Time
}

// Document is the host document's persistence.
//
// Load and Delete return an error matching errors.ErrNotFound when there is
// no record with the given name, and Load returns one matching
// errors.ErrCorrupt when the stored data can't be decoded.
type Document interface {
	Load(ctx context.Context, name string) (Record, error)
	Save(ctx context.Context, record Record) error
	Delete(ctx context.Context, name string) error

	// Names returns the record names in document order.
	Names(ctx context.Context) ([]string, error)

	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open opens the document at path with the given driver.
func Open(driver, path string) (Document, error) {
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		return NewFile(afero.NewOsFs(), path), nil
	case DriverSQLite:
		return NewSQLite(path)
	default:
		return nil, errors.NewFriendlyError("Unknown document driver %q. "+
			"Supported drivers are %q, %q and %q.", driver, DriverFile, DriverSQLite, DriverMemory)
	}
}

func notFound(name string) error {
	return errors.NotFound(name)
}

func corrupt(name string, format string, args ...interface{}) error {
	return errors.Corrupt(name, fmt.Errorf(format, args...))
}
