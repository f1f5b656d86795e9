package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridpro/gridpro/cli/dump"
	"github.com/gridpro/gridpro/cli/license"
	"github.com/gridpro/gridpro/cli/list"
	"github.com/gridpro/gridpro/cli/put"
	"github.com/gridpro/gridpro/cli/run"
	"github.com/gridpro/gridpro/cli/util"
	"github.com/gridpro/gridpro/cli/verify"
	"github.com/gridpro/gridpro/pkg/version"
)

func main() {
	var opts util.Options
	rootCmd := &cobra.Command{
		Use:     "gridpro",
		Short:   "Manage and run the code embedded in gridpro documents",
		Version: version.Version,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "",
		"Path to the config file. Defaults to ~/.gridpro/config.yaml.")
	flags.StringVarP(&opts.DocumentPath, "document", "d", "",
		"Path to the document. Overrides document.path in the config file.")
	flags.StringVar(&opts.LicenseKey, "license-key", "",
		"Product key. Overrides GRIDPRO_LICENSE_KEY and the config file.")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging.")
	flags.BoolVar(&opts.JSON, "json", false, "Print fatal errors as JSON.")

	rootCmd.AddCommand(
		dump.New(&opts),
		license.New(&opts),
		list.New(&opts),
		put.New(&opts),
		run.New(&opts),
		verify.New(&opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
