package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/config"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/journal"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/logging"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/omnifocus"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/osascript"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/safety"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/service"
)

const version = "0.1.0"

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "omnifocus-mcp",
	Short: "OmniFocus automation bridge over MCP",
	Long: `omnifocus-mcp drives OmniFocus through generated AppleScript run by osascript.

Run "serve" to speak MCP on stdin/stdout. Logs go to stderr.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}
		cfg = loaded

		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio",
	Long: `Reads JSON-RPC requests from stdin and writes responses to stdout.
Both newline-delimited JSON and Content-Length framing are accepted;
each response uses the framing of its request.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("serving MCP over stdio",
			zap.String("app", cfg.App),
			zap.Bool("test_mode", cfg.Safety.TestMode),
			zap.String("journal", cfg.Journal),
		)
		return runServe(ctx, svc, os.Stdin, os.Stdout)
	},
}

var (
	callMethod string
	callParams string
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Run one method and print the JSON-RPC response",
	Long: `Runs a single backend method outside MCP.

Example:
  omnifocus-mcp call --method tasks.get --params '{"flagged":true}'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(callMethod) == "" {
			return fmt.Errorf("--method is required")
		}
		svc, err := buildService()
		if err != nil {
			return err
		}
		defer svc.Close()

		paramBytes := bytesTrimSpace([]byte(callParams))
		if len(paramBytes) == 0 {
			paramBytes = []byte("{}")
		}

		result, callErr := svc.Handle(cmd.Context(), callMethod, paramBytes)
		response := jsonRPCResponse{
			JSONRPC: "2.0",
			ID:      "once",
		}
		if callErr != nil {
			response.Error = &jsonRPCError{
				Code:    -32000,
				Message: errorText(callErr),
			}
		} else {
			response.Result = result
		}

		encoded, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return callErr
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe OmniFocus and report the safety configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := osascript.NewClient(cfg.Osascript, cfg.TimeoutPolicy(), logger)
		client, err := omnifocus.New(omnifocus.Config{App: cfg.App, Safety: cfg.GuardConfig()}, runner, logger)
		if err != nil {
			return err
		}
		return runCheck(cmd.Context(), cmd.OutOrStdout(), client, cfg.GuardConfig())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	callCmd.Flags().StringVar(&callMethod, "method", "", "backend method, e.g. tasks.get")
	callCmd.Flags().StringVar(&callParams, "params", "{}", "JSON params object")

	rootCmd.Version = version
	rootCmd.AddCommand(serveCmd, callCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildService() (*service.Service, error) {
	runner := osascript.NewClient(cfg.Osascript, cfg.TimeoutPolicy(), logger)
	client, err := omnifocus.New(omnifocus.Config{App: cfg.App, Safety: cfg.GuardConfig()}, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}

	var mutations *journal.Journal
	if cfg.Journal != "" {
		mutations, err = journal.Open(cfg.Journal)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
	}
	return service.NewService(client, mutations, logger), nil
}

// runCheck probes the database and reports whether the guard would let
// mutations through. It never runs a mutation.
func runCheck(ctx context.Context, out io.Writer, client *omnifocus.Client, guard safety.Config) error {
	ok := color.New(color.FgGreen, color.Bold)
	warn := color.New(color.FgYellow)
	fail := color.New(color.FgRed, color.Bold)

	info, err := client.DatabaseInfo(ctx, omnifocus.CallOptions{})
	if err != nil {
		fail.Fprintf(out, "✗ %s unreachable: %s\n", client.App(), errorText(err))
		return err
	}
	ok.Fprintf(out, "✓ %s reachable, database %q\n", info.App, info.Name)

	if client.SafetyMode() != safety.ModeTest {
		warn.Fprintln(out, "! production mode: mutations are not guarded")
		return nil
	}
	if err := guard.Validate(); err != nil {
		fail.Fprintf(out, "✗ %s: every mutation will be refused\n", err.Error())
		return nil
	}
	if info.Name != guard.Target {
		fail.Fprintf(out, "✗ test mode, expected database %q: mutations will be refused\n", guard.Target)
		return nil
	}
	ok.Fprintf(out, "✓ test mode, database %q matches the target\n", info.Name)
	return nil
}

// errorText prefixes err with its semantic code.
func errorText(err error) string {
	return fmt.Sprintf("%s: %s", errs.CodeOf(err), err.Error())
}
