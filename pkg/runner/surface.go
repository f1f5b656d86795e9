package runner

import (
	"context"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/names"
	"github.com/gridpro/gridpro/pkg/permission"
)

// DumpEmbeddedCode returns the stored source of the named blob. It performs
// no license or permission checks and never executes anything.
func (r *Runner) DumpEmbeddedCode(ctx context.Context, name string) ([]byte, error) {
	blob, err := r.Store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return blob.Source, nil
}

// RunEmbeddedCode runs the named blob with the configured Executor.
func (r *Runner) RunEmbeddedCode(ctx context.Context, name string) (Result, error) {
	return r.Run(ctx, name, r.Executor)
}

// VerifyExecutePermission reports whether the named blob would be allowed to
// run, without running it. A blob that doesn't exist yields a Missing
// decision rather than an error; a corrupt blob is an error.
func (r *Runner) VerifyExecutePermission(ctx context.Context, name string) (permission.Decision, error) {
	blob, err := r.Store.Get(ctx, name)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return permission.MissingDecision(name), nil
	case err != nil:
		return permission.Decision{BlobName: name}, err
	}
	return r.Verifier.Verify(blob), nil
}

// DumpAll writes every blob to dir, one file per blob, and returns the paths
// it wrote in document order. Like DumpEmbeddedCode, it performs no checks.
func (r *Runner) DumpAll(ctx context.Context, fs afero.Fs, dir string) ([]string, error) {
	blobNames, err := r.Store.List(ctx)
	if err != nil {
		return nil, errors.WithContext("list embedded code", err)
	}

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WithContext("create dump directory", err)
	}

	var paths []string
	for _, name := range blobNames {
		// Names are validated on Put, but the document may have been
		// written by something else.
		if err := names.Validate(name); err != nil {
			log.WithError(err).WithField("name", name).Warn("Skipping embedded code with an unsafe name")
			continue
		}

		source, err := r.DumpEmbeddedCode(ctx, name)
		if err != nil {
			return paths, errors.WithContext("dump "+name, err)
		}

		path := filepath.Join(dir, name)
		if err := afero.WriteFile(fs, path, source, 0644); err != nil {
			return paths, errors.WithContext("write "+path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
