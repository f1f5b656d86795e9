package put

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/lithammer/dedent"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gridpro/gridpro/cli/util"
	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/hash"
)

func New(opts *util.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "put NAME FILE",
		Short: "Store embedded code in the document",
		Long: dedent.Dedent(`
		Store the contents of FILE as the embedded code module NAME, replacing
		any existing module with that name. Use - to read from stdin.

		The module's fingerprint is recorded along with its source. Editing the
		source outside of gridpro invalidates the fingerprint, and the module
		won't run until it is stored again with this command.`),
		Args: cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			if err := run(*opts, afero.NewOsFs(), args[0], args[1]); err != nil {
				util.HandleFatalError(*opts, err)
			}
		},
	}
}

func run(opts util.Options, fs afero.Fs, name, path string) error {
	source, err := readSource(fs, path)
	if err != nil {
		return err
	}

	env, err := util.Setup(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	blob, err := env.Store.Put(context.Background(), name, source)
	if err != nil {
		return errors.WithContext("store embedded code", err)
	}

	log.WithField("name", name).WithField("bytes", len(source)).Debug("Stored embedded code")
	fmt.Printf("Stored %s (%s)\n", blob.Name, hash.Short(blob.Fingerprint))
	return nil
}

func readSource(fs afero.Fs, path string) ([]byte, error) {
	if path == "-" {
		source, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.WithContext("read stdin", err)
		}
		return source, nil
	}

	source, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFriendlyError("%s does not exist.", path)
		}
		return nil, errors.WithContext("read source", err)
	}
	return source, nil
}
