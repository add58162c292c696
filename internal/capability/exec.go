package capability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"runtime"
	"time"

	"opusrelay/util"
)

// stdinGrace bounds how long Handle waits for the stdin copy after the
// child has exited, since an idle relay stream would otherwise hold it.
const stdinGrace = time.Second

// Exec feeds the stream to a child process's stdin, typically a player
// such as `aplay -f S16_LE -r 48000 -c 2`.  Either Program (-e) or
// Command (-c) must be set.
type Exec struct {
	Program string // -e: execute a program directly
	Command string // -c: execute via the system shell
	Logger  *util.Logger

	// Stdout/Stderr of the child default to os.Stderr so they never mix
	// with PCM on our own stdout.
	Stdout io.Writer
	Stderr io.Writer
}

// Handle starts the child with its stdin connected to the relay stream
// and waits for it to exit.  The child sees EOF when the relay closes
// the stream; cancelling ctx kills it.
func (e *Exec) Handle(ctx context.Context, conn net.Conn) error {
	var cmd *exec.Cmd

	switch {
	case e.Command != "":
		if runtime.GOOS == "windows" {
			cmd = exec.CommandContext(ctx, "cmd.exe", "/C", e.Command)
		} else {
			cmd = exec.CommandContext(ctx, "/bin/sh", "-c", e.Command)
		}
	case e.Program != "":
		cmd = exec.CommandContext(ctx, e.Program)
	default:
		return fmt.Errorf("no command specified for exec mode")
	}

	cmd.Stdin = conn
	cmd.WaitDelay = stdinGrace
	cmd.Stdout = orStderr(e.Stdout)
	cmd.Stderr = orStderr(e.Stderr)

	if e.Logger != nil {
		e.Logger.Debug("exec: %s", cmd.String())
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if ctx.Err() != nil && errors.As(err, &exitErr) {
			return nil
		}
		if errors.Is(err, exec.ErrWaitDelay) {
			return nil
		}
		return fmt.Errorf("exec %q: %w", cmd.Path, err)
	}
	return nil
}

func orStderr(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stderr
}
