package dump

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lithammer/dedent"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gridpro/gridpro/cli/util"
)

func New(opts *util.Options) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "dump [NAME]",
		Short: "Print the source of embedded code",
		Long: dedent.Dedent(`
		Print the source of the embedded code module NAME to stdout, or write
		every module to the directory given by --out.

		Dumping never runs the code, and works regardless of the license or
		whether the code is authorized to run.`),
		Args: cobra.MaximumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			var err error
			switch {
			case len(args) == 1 && outDir == "":
				err = dumpOne(*opts, os.Stdout, args[0])
			case len(args) == 0 && outDir != "":
				err = dumpAll(*opts, afero.NewOsFs(), os.Stdout, outDir)
			default:
				fmt.Fprintln(os.Stderr, "Either a module name or --out is required, but not both.")
				os.Exit(1)
			}

			if err != nil {
				util.HandleFatalError(*opts, err)
			}
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "",
		"Write every module to this directory, one file per module.")
	return cmd
}

func dumpOne(opts util.Options, out io.Writer, name string) error {
	env, err := util.Setup(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	source, err := env.Runner.DumpEmbeddedCode(context.Background(), name)
	if err != nil {
		return err
	}

	_, err = out.Write(source)
	return err
}

func dumpAll(opts util.Options, fs afero.Fs, out io.Writer, dir string) error {
	env, err := util.Setup(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	paths, err := env.Runner.DumpAll(context.Background(), fs, dir)
	for _, path := range paths {
		fmt.Fprintln(out, path)
	}
	return err
}
