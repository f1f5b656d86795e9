package execute

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"

	"github.com/gridpro/gridpro/pkg/errors"
)

// ModuleEnv is the environment variable that tells the interpreter which
// module it is running.
const ModuleEnv = "GRIDPRO_MODULE"

// Command runs embedded code by piping it into an interpreter process, e.g.
// `python3 -`.
type Command struct {
	Argv []string

	// Env is added to the current process's environment.
	Env []string

	// Stdout and Stderr default to the current process's.
	Stdout io.Writer
	Stderr io.Writer
}

// ExitError is returned when the interpreter exits with a non-zero status.
type ExitError struct {
	Code int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("interpreter exited with status %d", e.Code)
}

func (e ExitError) FriendlyMessage() string {
	return fmt.Sprintf("The embedded code failed (exit status %d).", e.Code)
}

func (c Command) Execute(ctx context.Context, name string, source []byte) error {
	if len(c.Argv) == 0 {
		return errors.New("no interpreter configured")
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Stdin = bytes.NewReader(source)
	cmd.Env = append(append(os.Environ(), c.Env...), ModuleEnv+"="+name)
	cmd.Stdout = c.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = c.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	log.WithField("argv", c.Argv).WithField("name", name).Debug("Starting interpreter")
	err := cmd.Run()
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return ExitError{Code: exitErr.ExitCode()}
	}
	return errors.WithContext("start interpreter", err)
}
