package verify

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lithammer/dedent"
	"github.com/spf13/cobra"

	"github.com/gridpro/gridpro/cli/util"
	"github.com/gridpro/gridpro/pkg/errors"
	"github.com/gridpro/gridpro/pkg/license"
	"github.com/gridpro/gridpro/pkg/permission"
)

func New(opts *util.Options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "verify [NAME]",
		Short: "Check whether embedded code is authorized to run",
		Long: dedent.Dedent(`
		Check whether the embedded code module NAME is authorized to run,
		without running it. The command exits non-zero if it isn't.

		With --all, every module in the document is checked. Auditing the whole
		document requires a commercial license.`),
		Args: cobra.MaximumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			var err error
			switch {
			case len(args) == 1 && !all:
				err = verifyOne(*opts, args[0])
			case len(args) == 0 && all:
				err = verifyAll(*opts)
			default:
				fmt.Fprintln(os.Stderr, "Either a module name or --all is required, but not both.")
				os.Exit(1)
			}

			if err != nil {
				util.HandleFatalError(*opts, err)
			}
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Check every module in the document.")
	return cmd
}

func verifyOne(opts util.Options, name string) error {
	env, err := util.Setup(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	decision, err := env.Runner.VerifyExecutePermission(context.Background(), name)
	if err != nil {
		return err
	}

	printDecisions(decision)
	return decisionError(decision)
}

func verifyAll(opts util.Options) error {
	env, err := util.Setup(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	if _, err := env.ValidateLicense(ctx); err != nil {
		return err
	}
	if err := env.License.Check(license.FeaturePermissionAudit); err != nil {
		return err
	}

	names, err := env.Store.List(ctx)
	if err != nil {
		return errors.WithContext("list embedded code", err)
	}

	var decisions []permission.Decision
	var firstDenied error
	for _, name := range names {
		decision, err := env.Runner.VerifyExecutePermission(ctx, name)
		if err != nil {
			return errors.WithContext("verify "+name, err)
		}
		decisions = append(decisions, decision)
		if firstDenied == nil {
			firstDenied = decisionError(decision)
		}
	}

	printDecisions(decisions...)
	return firstDenied
}

func printDecisions(decisions ...permission.Decision) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "NAME\tSTATUS")
	for _, decision := range decisions {
		msg, color := GetDecisionString(decision)
		fmt.Fprintf(w, "%s\t%s\n", decision.BlobName, util.Color(msg, color))
	}
}

func decisionError(decision permission.Decision) error {
	if decision.Authorized {
		return nil
	}
	return &errors.PermissionError{Name: decision.BlobName, Reason: decision.Reason.String()}
}
