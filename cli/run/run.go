package run

import (
	"context"
	"os"
	"os/signal"

	"github.com/lithammer/dedent"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridpro/gridpro/cli/util"
	"github.com/gridpro/gridpro/pkg/runner"
)

func New(opts *util.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "run NAME",
		Short: "Run embedded code",
		Long: dedent.Dedent(`
		Run the embedded code module NAME with the configured interpreter.

		The code only runs if your license enables embedded code and the
		module's source still matches the fingerprint recorded when it was
		stored. The source is piped to the interpreter's stdin, and the
		module name is exported as GRIDPRO_MODULE.`),
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			if err := run(*opts, args[0]); err != nil {
				util.HandleFatalError(*opts, err)
			}
		},
	}
}

func run(opts util.Options, name string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	defer signal.Stop(signals)
	go func() {
		select {
		case <-signals:
			log.Debug("Interrupted")
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err := runEmbeddedCode(ctx, opts, name)
	return err
}

// runEmbeddedCode validates the license before handing the module to the
// runner, so an unlicensed run fails before anything is dispatched.
func runEmbeddedCode(ctx context.Context, opts util.Options, name string) (runner.Result, error) {
	env, err := util.Setup(opts)
	if err != nil {
		return runner.Result{}, err
	}
	defer env.Close()

	if _, err := env.ValidateLicense(ctx); err != nil {
		return runner.Result{Name: name, Stage: runner.Failed, FailedAt: runner.Start}, err
	}

	result, err := env.Runner.RunEmbeddedCode(ctx, name)
	log.WithField("stage", result.Stage).Debug("Finished")
	return result, err
}
