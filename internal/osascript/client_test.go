package osascript

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func shellClient(t *testing.T, policy TimeoutPolicy) *Client {
	t.Helper()
	shell, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return NewClient([]string{shell, "-s"}, policy, nil)
}

func TestRunReturnsStdoutUnmodified(t *testing.T) {
	client := shellClient(t, DefaultTimeoutPolicy())

	output, err := client.Run(context.Background(), Request{Label: "echo", Script: "printf '  [1, 2]\\n\\n'"})
	require.NoError(t, err)
	assert.Equal(t, "  [1, 2]\n\n", output)
}

func TestRunKeepsStderrOnNonZeroExit(t *testing.T) {
	client := shellClient(t, DefaultTimeoutPolicy())

	_, err := client.Run(context.Background(), Request{Script: "echo 'execution error: boom (-1728)' >&2\nexit 3"})
	require.Error(t, err)

	var transportErr *errs.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, 3, transportErr.ExitCode)
	assert.Equal(t, "execution error: boom (-1728)\n", transportErr.Stderr)
	assert.False(t, transportErr.TimedOut)
	assert.Equal(t, "exit status 3", transportErr.Message)
}

func TestRunTimesOut(t *testing.T) {
	client := shellClient(t, DefaultTimeoutPolicy())

	started := time.Now()
	_, err := client.Run(context.Background(), Request{Script: "sleep 30 &\nwait", Timeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.Less(t, time.Since(started), 10*time.Second)

	var transportErr *errs.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.True(t, transportErr.TimedOut)
	assert.Equal(t, "timed out after 0.2s", transportErr.Message)
	assert.Equal(t, errs.CodeTransport, errs.CodeOf(err))
}

func TestRunReportsCancellation(t *testing.T) {
	client := shellClient(t, DefaultTimeoutPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Run(ctx, Request{Script: "sleep 5"})

	var transportErr *errs.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.False(t, transportErr.TimedOut)
}

func TestTimeoutPolicyResolve(t *testing.T) {
	policy := DefaultTimeoutPolicy()

	testCases := []struct {
		name     string
		policy   TimeoutPolicy
		class    Class
		override time.Duration
		expected time.Duration
	}{
		{name: "item default", policy: policy, class: ClassItem, expected: 60 * time.Second},
		{name: "collection default", policy: policy, class: ClassCollection, expected: 120 * time.Second},
		{name: "override", policy: policy, class: ClassCollection, override: 10 * time.Second, expected: 10 * time.Second},
		{name: "override clamped", policy: policy, class: ClassItem, override: time.Hour, expected: 300 * time.Second},
		{name: "zero policy uses defaults", policy: TimeoutPolicy{}, class: ClassItem, expected: 60 * time.Second},
		{name: "custom cap", policy: TimeoutPolicy{Item: 90 * time.Second, Max: 30 * time.Second}, class: ClassItem, expected: 30 * time.Second},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, testCase.policy.Resolve(testCase.class, testCase.override))
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "60s", formatSeconds(60*time.Second))
	assert.Equal(t, "1.5s", formatSeconds(1500*time.Millisecond))
}
