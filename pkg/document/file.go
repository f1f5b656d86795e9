package document

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/gridpro/gridpro/pkg/errors"
)

// File is a Document stored as a single YAML file. Modules are kept in the
// order they were first saved.
//
// Writes replace the whole file by renaming a temporary file over it, so a
// concurrent reader sees either the old or the new file.
type File struct {
	fs   afero.Fs
	path string

	// mu serializes the read-modify-write cycle of Save and Delete.
	mu sync.Mutex
}

type fileContents struct {
	Modules []fileModule `json:"modules"`
}

type fileModule struct {
	Name string `json:"name"`

	// Source holds UTF-8 source. Anything else is stored base64 encoded in
	// SourceBase64 so it round trips unmodified.
	Source       *string `json:"source,omitempty"`
	SourceBase64 []byte  `json:"sourceBase64,omitempty"`

	Fingerprint string    `json:"fingerprint,omitempty"`
	Modified    time.Time `json:"modified"`
}

func NewFile(fs afero.Fs, path string) *File {
	return &File{fs: fs, path: path}
}

func (f *File) Load(_ context.Context, name string) (Record, error) {
	contents, err := f.read()
	if err != nil {
		return Record{}, f.wrapReadError(name, err)
	}

	for _, module := range contents.Modules {
		if module.Name != name {
			continue
		}
		return module.toRecord()
	}
	return Record{}, notFound(name)
}

func (f *File) Save(_ context.Context, record Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	contents, err := f.read()
	if err != nil {
		return f.wrapReadError(record.Name, err)
	}

	module := toFileModule(record)
	replaced := false
	for i := range contents.Modules {
		if contents.Modules[i].Name == record.Name {
			contents.Modules[i] = module
			replaced = true
			break
		}
	}
	if !replaced {
		contents.Modules = append(contents.Modules, module)
	}
	return f.write(contents)
}

func (f *File) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	contents, err := f.read()
	if err != nil {
		return f.wrapReadError(name, err)
	}

	for i, module := range contents.Modules {
		if module.Name == name {
			contents.Modules = append(contents.Modules[:i], contents.Modules[i+1:]...)
			return f.write(contents)
		}
	}
	return notFound(name)
}

func (f *File) Names(_ context.Context) ([]string, error) {
	contents, err := f.read()
	if err != nil {
		return nil, f.wrapReadError(f.path, err)
	}

	var names []string
	for _, module := range contents.Modules {
		names = append(names, module.Name)
	}
	return names, nil
}

func (f *File) Close() error {
	return nil
}

// errDecode marks read errors caused by the file's contents rather than by
// the filesystem.
type errDecode struct {
	err error
}

func (e errDecode) Error() string {
	return e.err.Error()
}

func (f *File) read() (fileContents, error) {
	var contents fileContents
	raw, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return contents, nil
		}
		return contents, err
	}

	if err := yaml.Unmarshal(raw, &contents); err != nil {
		return contents, errDecode{err}
	}

	seen := map[string]struct{}{}
	for _, module := range contents.Modules {
		if _, ok := seen[module.Name]; ok {
			return contents, errDecode{errors.New("duplicate module %q", module.Name)}
		}
		seen[module.Name] = struct{}{}
	}
	return contents, nil
}

func (f *File) write(contents fileContents) error {
	raw, err := yaml.Marshal(contents)
	if err != nil {
		return errors.WithContext("marshal document", err)
	}

	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0755); err != nil {
		return errors.WithContext("create document directory", err)
	}

	tmp, err := afero.TempFile(f.fs, dir, "."+filepath.Base(f.path)+"-")
	if err != nil {
		return errors.WithContext("create temp file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		f.fs.Remove(tmpPath)
		return errors.WithContext("write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		f.fs.Remove(tmpPath)
		return errors.WithContext("close temp file", err)
	}

	if err := f.fs.Rename(tmpPath, f.path); err != nil {
		f.fs.Remove(tmpPath)
		return errors.WithContext("replace document", err)
	}
	return nil
}

func (f *File) wrapReadError(name string, err error) error {
	if decodeErr, ok := err.(errDecode); ok {
		return corrupt(name, "parse %s: %s", f.path, decodeErr.err)
	}
	return errors.WithContext("read document", err)
}

func toFileModule(record Record) fileModule {
	module := fileModule{
		Name:        record.Name,
		Fingerprint: record.Fingerprint,
		Modified:    record.Modified.UTC(),
	}
	if utf8.Valid(record.Source) {
		source := string(record.Source)
		module.Source = &source
	} else {
		module.SourceBase64 = record.Source
	}
	return module
}

func (module fileModule) toRecord() (Record, error) {
	record := Record{
		Name:        module.Name,
		Fingerprint: module.Fingerprint,
		Modified:    module.Modified,
	}

	switch {
	case module.Source != nil:
		record.Source = []byte(*module.Source)
	case module.SourceBase64 != nil:
		record.Source = module.SourceBase64
	default:
		return Record{}, corrupt(module.Name, "module has no source")
	}
	return record, nil
}
