package list

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/buger/goterm"
	"github.com/spf13/cobra"

	"github.com/gridpro/gridpro/cli/util"
	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/hash"
)

func New(opts *util.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the embedded code in the document",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(*opts, os.Stdout); err != nil {
				util.HandleFatalError(*opts, err)
			}
		},
	}
}

func run(opts util.Options, out io.Writer) error {
	env, err := util.Setup(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	names, err := env.Store.List(ctx)
	if err != nil {
		return errors.WithContext("list embedded code", err)
	}

	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "The document doesn't contain any embedded code.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 4, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "NAME\tFINGERPRINT\tMODIFIED")
	for _, name := range names {
		blob, err := env.Store.Get(ctx, name)
		if err != nil {
			// Keep listing so that one corrupt module doesn't hide the rest.
			fmt.Fprintf(w, "%s\t%s\t\n", name, util.Color("corrupt", goterm.RED))
			continue
		}

		fingerprint := "unsigned"
		if blob.Fingerprint != nil {
			fingerprint = hash.Short(blob.Fingerprint)
		}

		var modified string
		if !blob.LastModified.IsZero() {
			modified = blob.LastModified.Local().Format(time.RFC822)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, fingerprint, modified)
	}
	return nil
}
