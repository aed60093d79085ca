package osascript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
)

// DefaultCommand reads the script from stdin.
var DefaultCommand = []string{"osascript", "-"}

// waitDelay bounds how long Wait blocks on inherited pipes after the
// process group was killed.
const waitDelay = 2 * time.Second

type Client struct {
	command []string
	policy  TimeoutPolicy
	logger  *zap.Logger
}

// NewClient returns a Client running command with the script on stdin. An
// empty command means DefaultCommand.
func NewClient(command []string, policy TimeoutPolicy, logger *zap.Logger) *Client {
	if len(command) == 0 {
		command = DefaultCommand
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		command: append([]string(nil), command...),
		policy:  policy,
		logger:  logger,
	}
}

// Run executes one script. On success stdout is returned unmodified. A
// timeout kills the subprocess and its process group.
func (c *Client) Run(ctx context.Context, request Request) (string, error) {
	timeout := c.policy.Resolve(request.Class, request.Timeout)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.command[0], c.command[1:]...)
	cmd.Stdin = strings.NewReader(request.Script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setupProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = waitDelay

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	fields := []zap.Field{
		zap.String("label", request.Label),
		zap.Stringer("class", request.Class),
		zap.Duration("timeout", timeout),
		zap.Duration("elapsed", elapsed),
		zap.Int("script_bytes", len(request.Script)),
		zap.Int("stdout_bytes", stdout.Len()),
	}
	if err == nil {
		c.logger.Debug("script finished", fields...)
		return stdout.String(), nil
	}

	transportErr := &errs.TransportError{Stderr: stderr.String(), ExitCode: -1}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		transportErr.Message = "timed out after " + formatSeconds(timeout)
		transportErr.TimedOut = true
	case ctx.Err() != nil:
		transportErr.Message = "canceled: " + ctx.Err().Error()
	case errors.As(err, &exitErr):
		transportErr.ExitCode = exitErr.ExitCode()
		transportErr.Message = fmt.Sprintf("exit status %d", transportErr.ExitCode)
	default:
		transportErr.Message = err.Error()
	}
	c.logger.Debug("script failed", append(fields, zap.Error(transportErr))...)
	return "", transportErr
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}
