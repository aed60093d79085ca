// Package omnifocus is the automation bridge's entry point. A Client is
// built once per process with its safety configuration and passed to
// callers explicitly.
package omnifocus

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/batch"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/osascript"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/safety"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/script"
)

// DefaultApp is the scripting name of the application.
const DefaultApp = "OmniFocus"

// AppleScript's "Can't get <object>" error number.
const errObjectNotFound = "-1728"

type (
	TaskInput      = script.TaskInput
	TaskChanges    = script.TaskChanges
	Placement      = script.Placement
	Anchor         = script.Anchor
	ProjectInput   = script.ProjectInput
	ProjectChanges = script.ProjectChanges
)

type Config struct {
	App    string
	Safety safety.Config
}

// CallOptions tune one call. A zero Timeout uses the class default.
type CallOptions struct {
	Timeout time.Duration
}

type Client struct {
	app    string
	runner osascript.Runner
	guard  *safety.Guard
	logger *zap.Logger
	now    func() time.Time
}

// New validates cfg and builds a client. Every subprocess the client
// causes goes through runner.
func New(cfg Config, runner osascript.Runner, logger *zap.Logger) (*Client, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	// A test-mode setup that can never pass still builds; its guard rejects
	// each mutation instead.
	var validationErr *errs.ValidationError
	if err := cfg.Safety.Validate(); errors.As(err, &validationErr) {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	app := strings.TrimSpace(cfg.App)
	if app == "" {
		app = DefaultApp
	}
	logger = logger.Named("omnifocus")
	return &Client{
		app:    app,
		runner: runner,
		guard:  safety.NewGuard(cfg.Safety, runner, app, logger.Named("safety")),
		logger: logger,
		now:    time.Now,
	}, nil
}

func (c *Client) App() string {
	return c.app
}

func (c *Client) SafetyMode() safety.Mode {
	return c.guard.Mode()
}

func (c *Client) run(ctx context.Context, label, source string, class osascript.Class, opts CallOptions) (string, error) {
	return c.runner.Run(ctx, osascript.Request{
		Label:   label,
		Script:  source,
		Class:   class,
		Timeout: opts.Timeout,
	})
}

// mutate checks the guard and runs one mutating script.
func (c *Client) mutate(ctx context.Context, label, source string, opts CallOptions) (string, error) {
	if err := c.guard.Check(ctx); err != nil {
		return "", err
	}
	return c.run(ctx, label, source, osascript.ClassItem, opts)
}

// asNotFound reports an item-level -1728 transport failure as the item
// being missing.
func asNotFound(err error, kind, id string) error {
	var transportErr *errs.TransportError
	if errors.As(err, &transportErr) && !transportErr.TimedOut && strings.Contains(transportErr.Stderr, errObjectNotFound) {
		return errs.NotFound(kind, id)
	}
	return err
}

// runBatch applies one item operation per id after a single guard check.
func (c *Client) runBatch(ctx context.Context, label string, ids []string, apply batch.ItemFunc) (batch.Result, error) {
	if err := c.guard.Check(ctx); err != nil {
		return batch.Result{}, err
	}
	started := time.Now()
	result := batch.Run(ctx, ids, apply)
	c.logger.Info("batch finished",
		zap.String("label", label),
		zap.Int("requested", len(ids)),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("failed", result.FailedCount),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}
