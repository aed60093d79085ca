// Package safety keeps mutations away from a database the bridge has not
// verified. The mode is fixed when the guard is built.
package safety

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/decode"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/osascript"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/script"
)

type Mode string

const (
	ModeProduction Mode = "production"
	ModeTest       Mode = "test"
)

// Config is read once from the environment at client construction.
type Config struct {
	Mode Mode
	// Target is the database name mutations must run against in test mode.
	Target string
	// Whitelist lists permitted targets. Empty means only Target.
	Whitelist []string
}

// problem describes why a test-mode configuration can never pass, or "".
func (c Config) problem() string {
	if c.Mode != ModeTest {
		return ""
	}
	if strings.TrimSpace(c.Target) == "" {
		return "test mode enabled without a target database"
	}
	if len(c.Whitelist) > 0 && !slices.Contains(c.Whitelist, c.Target) {
		return fmt.Sprintf("target database %q is not whitelisted", c.Target)
	}
	return ""
}

// Validate reports a configuration that would reject every mutation.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeProduction, ModeTest, "":
	default:
		return errs.Validation("mode", fmt.Sprintf("unknown safety mode %q", c.Mode))
	}
	if reason := c.problem(); reason != "" {
		return &errs.SafetyViolationError{Expected: c.Target, Reason: reason}
	}
	return nil
}

type Guard struct {
	config Config
	runner osascript.Runner
	app    string
	logger *zap.Logger
}

func NewGuard(config Config, runner osascript.Runner, app string, logger *zap.Logger) *Guard {
	if config.Mode == "" {
		config.Mode = ModeProduction
	}
	config.Whitelist = slices.Clone(config.Whitelist)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{config: config, runner: runner, app: app, logger: logger}
}

func (g *Guard) Mode() Mode {
	return g.config.Mode
}

// Check must pass before any mutating script runs. In test mode it probes
// the live database name and compares it with the configured target.
func (g *Guard) Check(ctx context.Context) error {
	if g.config.Mode != ModeTest {
		return nil
	}
	if reason := g.config.problem(); reason != "" {
		g.logger.Warn("mutation rejected", zap.String("reason", reason))
		return &errs.SafetyViolationError{Expected: g.config.Target, Reason: reason}
	}

	raw, err := g.runner.Run(ctx, osascript.Request{
		Label:  "safety.probe",
		Script: script.DatabaseName(g.app),
		Class:  osascript.ClassItem,
	})
	if err != nil {
		return &errs.SafetyViolationError{Expected: g.config.Target, Reason: "could not verify the live database: " + err.Error()}
	}
	actual, err := decode.DatabaseName(raw)
	if err != nil {
		return &errs.SafetyViolationError{Expected: g.config.Target, Reason: "could not verify the live database: " + err.Error()}
	}
	if actual != g.config.Target {
		g.logger.Warn("mutation rejected", zap.String("expected", g.config.Target), zap.String("actual", actual))
		return &errs.SafetyViolationError{Expected: g.config.Target, Actual: actual, Reason: "live database does not match the test target"}
	}
	return nil
}
