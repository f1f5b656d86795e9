package execute

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}

func TestCommandPassesSourceThrough(t *testing.T) {
	requireShell(t)

	var stdout bytes.Buffer
	cmd := Command{Argv: []string{"sh", "-c", "cat; echo; echo $" + ModuleEnv + " $EXTRA"}, Env: []string{"EXTRA=1"}, Stdout: &stdout}

	err := cmd.Execute(context.Background(), "macro1", []byte("print('hi')"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\nmacro1 1\n", stdout.String())
}

func TestCommandExitCode(t *testing.T) {
	requireShell(t)

	var stderr bytes.Buffer
	cmd := Command{Argv: []string{"sh"}, Stdout: &bytes.Buffer{}, Stderr: &stderr}
	err := cmd.Execute(context.Background(), "macro1", []byte("echo oops >&2\nexit 3\n"))
	assert.Equal(t, ExitError{Code: 3}, err)
	assert.Equal(t, "oops\n", stderr.String())
}

func TestCommandContextDeadline(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cmd := Command{Argv: []string{"sh"}, Stdout: &bytes.Buffer{}}
	err := cmd.Execute(ctx, "loop", []byte("sleep 5\n"))
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestCommandErrors(t *testing.T) {
	err := Command{}.Execute(context.Background(), "x", nil)
	assert.Error(t, err)

	err = Command{Argv: []string{"/does/not/exist"}}.Execute(context.Background(), "x", nil)
	assert.Error(t, err)
	assert.NotEqual(t, ExitError{}, err)
}
