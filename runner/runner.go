package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Kind classifies the single terminal event of a worker invocation.
type Kind string

const (
	Success     Kind = "success"
	Failure     Kind = "failure"
	LaunchError Kind = "launch_error"
)

// Outcome is the one terminal event produced by an invocation. Stdout carries
// the full accumulated standard output and is only meaningful on Success.
type Outcome struct {
	Kind     Kind
	Stdout   string
	Stderr   string
	ExitCode int
	Diag     string
}

// Invoker launches an external worker process and reports its outcome.
type Invoker interface {
	Invoke(ctx context.Context, bin string, args ...string) Outcome
}

// ProcessInvoker spawns one OS process per invocation, accumulating stdout and
// stderr as they stream. Timeout, when set, acts as the watchdog for hung
// workers: the process is killed and the invocation surfaces as a Failure.
type ProcessInvoker struct {
	Timeout time.Duration
}

func (p ProcessInvoker) Invoke(ctx context.Context, bin string, args ...string) Outcome {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Outcome{Kind: LaunchError, Diag: err.Error()}
	}

	err := cmd.Wait()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		diag := err.Error()
		if ctxErr := ctx.Err(); ctxErr != nil {
			diag = "worker terminated: " + ctxErr.Error()
		}
		return Outcome{
			Kind:     Failure,
			Stdout:   strings.TrimSpace(stdout.String()),
			Stderr:   stderr.String(),
			ExitCode: exitCode,
			Diag:     diag,
		}
	}

	return Outcome{
		Kind:   Success,
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: stderr.String(),
	}
}

var _ Invoker = ProcessInvoker{}
