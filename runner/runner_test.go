package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvokeSuccess(t *testing.T) {
	out := ProcessInvoker{}.Invoke(context.Background(), "/bin/sh", "-c", "printf '/out/fox1.png:991122'")
	assert.Equal(t, Success, out.Kind)
	assert.Equal(t, "/out/fox1.png:991122", out.Stdout)
	assert.Equal(t, 0, out.ExitCode)
}

func TestInvokeFailureCapturesStderrAndExitCode(t *testing.T) {
	out := ProcessInvoker{}.Invoke(context.Background(), "/bin/sh", "-c", "echo boom >&2; exit 3")
	assert.Equal(t, Failure, out.Kind)
	assert.Equal(t, 3, out.ExitCode)
	assert.Contains(t, out.Stderr, "boom")
}

func TestInvokeLaunchError(t *testing.T) {
	out := ProcessInvoker{}.Invoke(context.Background(), "/nonexistent/generation-worker")
	assert.Equal(t, LaunchError, out.Kind)
	assert.NotEmpty(t, out.Diag)
}

func TestInvokeTimeoutIsFailure(t *testing.T) {
	out := ProcessInvoker{Timeout: 100 * time.Millisecond}.Invoke(context.Background(), "/bin/sh", "-c", "sleep 5")
	assert.Equal(t, Failure, out.Kind)
	assert.Contains(t, out.Diag, "worker terminated")
}

func TestInvokeAccumulatesStreamedStdout(t *testing.T) {
	out := ProcessInvoker{}.Invoke(context.Background(), "/bin/sh", "-c", "printf part1; sleep 0.05; printf :part2")
	assert.Equal(t, Success, out.Kind)
	assert.Equal(t, "part1:part2", out.Stdout)
}
