package license

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/buger/goterm"
	"github.com/spf13/cobra"

	"github.com/gridpro/gridpro/cli/util"
	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/license"
)

func New(opts *util.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "license",
		Short: "Show the license status and which features it enables",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(*opts, os.Stdout, os.Stderr); err != nil {
				util.HandleFatalError(*opts, err)
			}
		},
	}
}

func run(opts util.Options, out, errOut io.Writer) error {
	env, err := util.Setup(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	record, err := env.ValidateLicense(context.Background())
	if err != nil {
		// Still show the feature table: every feature is disabled.
		fmt.Fprintln(errOut, util.Color(errors.GetPrintableMessage(err), goterm.RED))
	}

	printRecord(out, record)
	printFeatures(out, env.License)
	return nil
}

func printRecord(out io.Writer, record license.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 4, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Tier:\t%s\n", record.Tier)
	if record.Customer != "" {
		fmt.Fprintf(w, "Customer:\t%s\n", record.Customer)
	}

	expiry := "never"
	if record.ValidUntil != nil {
		expiry = record.ValidUntil.Local().Format(time.RFC822)
	}
	fmt.Fprintf(w, "Expires:\t%s\n", expiry)
	fmt.Fprintln(w)
}

func printFeatures(out io.Writer, state *license.State) {
	var features []string
	for feature := range state.Features {
		features = append(features, feature)
	}
	sort.Strings(features)

	w := tabwriter.NewWriter(out, 0, 0, 4, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "FEATURE\tREQUIRES\tSTATUS")
	for _, feature := range features {
		required, _ := state.Features.Required(feature)
		status := util.Color("Enabled", goterm.GREEN)
		if !state.IsFeatureEnabled(feature) {
			status = util.Color("Disabled", goterm.RED)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", feature, required, status)
	}
}
