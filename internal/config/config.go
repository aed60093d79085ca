// Package config loads the bridge configuration: defaults, then an
// optional YAML file, then the environment (a .env file included).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/osascript"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/safety"
)

const (
	EnvConfigFile        = "OMNIFOCUS_MCP_CONFIG"
	EnvTestMode          = "OMNIFOCUS_TEST_MODE"
	EnvTestDatabase      = "OMNIFOCUS_TEST_DATABASE"
	EnvTestWhitelist     = "OMNIFOCUS_TEST_DATABASE_WHITELIST"
	EnvAppName           = "OMNIFOCUS_APP_NAME"
	EnvOsascript         = "OMNIFOCUS_OSASCRIPT"
	EnvTimeoutItem       = "OMNIFOCUS_TIMEOUT_ITEM"
	EnvTimeoutCollection = "OMNIFOCUS_TIMEOUT_COLLECTION"
	EnvTimeoutMax        = "OMNIFOCUS_TIMEOUT_MAX"
	EnvLogLevel          = "OMNIFOCUS_MCP_LOG_LEVEL"
	EnvLogFormat         = "OMNIFOCUS_MCP_LOG_FORMAT"
	EnvJournal           = "OMNIFOCUS_MCP_JOURNAL"
)

// JournalOff disables the mutation journal when used as its path.
const JournalOff = "off"

type Config struct {
	App       string        `yaml:"app"`
	Osascript []string      `yaml:"osascript"`
	Safety    SafetyConfig  `yaml:"safety"`
	Timeouts  TimeoutConfig `yaml:"timeouts"`
	Logging   LoggingConfig `yaml:"logging"`
	// Journal is the sqlite file mutations are recorded in. Empty disables
	// journaling.
	Journal string `yaml:"journal"`
}

type SafetyConfig struct {
	TestMode  bool     `yaml:"test_mode"`
	Target    string   `yaml:"target"`
	Whitelist []string `yaml:"whitelist"`
}

// TimeoutConfig holds per-class defaults and the ceiling, in seconds.
type TimeoutConfig struct {
	Item       float64 `yaml:"item"`
	Collection float64 `yaml:"collection"`
	Max        float64 `yaml:"max"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	journal := ""
	if home, err := os.UserHomeDir(); err == nil {
		journal = filepath.Join(home, ".omnifocus-mcp", "journal.db")
	}
	return &Config{
		App:       "OmniFocus",
		Osascript: append([]string(nil), osascript.DefaultCommand...),
		Timeouts: TimeoutConfig{
			Item:       osascript.DefaultItemTimeout.Seconds(),
			Collection: osascript.DefaultCollectionTimeout.Seconds(),
			Max:        osascript.DefaultMaxTimeout.Seconds(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Journal: journal,
	}
}

// Load builds the configuration. path names a YAML file; when empty the
// file named by OMNIFOCUS_MCP_CONFIG is used, if any.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := Default()
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := config.loadFromEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFromEnv() error {
	if value := os.Getenv(EnvTestMode); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTestMode, err)
		}
		c.Safety.TestMode = enabled
	}
	if value := os.Getenv(EnvTestDatabase); value != "" {
		c.Safety.Target = strings.TrimSpace(value)
	}
	if value := os.Getenv(EnvTestWhitelist); value != "" {
		c.Safety.Whitelist = splitList(value)
	}
	if value := os.Getenv(EnvAppName); value != "" {
		c.App = strings.TrimSpace(value)
	}
	if value := os.Getenv(EnvOsascript); value != "" {
		c.Osascript = strings.Fields(value)
	}

	timeouts := []struct {
		name   string
		target *float64
	}{
		{EnvTimeoutItem, &c.Timeouts.Item},
		{EnvTimeoutCollection, &c.Timeouts.Collection},
		{EnvTimeoutMax, &c.Timeouts.Max},
	}
	for _, timeout := range timeouts {
		value := os.Getenv(timeout.name)
		if value == "" {
			continue
		}
		seconds, err := parseSeconds(value)
		if err != nil {
			return fmt.Errorf("%s: %w", timeout.name, err)
		}
		*timeout.target = seconds
	}

	if value := os.Getenv(EnvLogLevel); value != "" {
		c.Logging.Level = value
	}
	if value := os.Getenv(EnvLogFormat); value != "" {
		c.Logging.Format = value
	}
	if value, ok := os.LookupEnv(EnvJournal); ok {
		c.Journal = strings.TrimSpace(value)
	}
	if strings.EqualFold(c.Journal, JournalOff) {
		c.Journal = ""
	}
	return nil
}

// parseSeconds accepts a plain number of seconds or a Go duration.
func parseSeconds(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return seconds, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", value)
	}
	return duration.Seconds(), nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.App) == "" {
		return errors.New("app name is required")
	}
	if len(c.Osascript) == 0 || strings.TrimSpace(c.Osascript[0]) == "" {
		return errors.New("osascript command is required")
	}
	if c.Timeouts.Item <= 0 || c.Timeouts.Collection <= 0 || c.Timeouts.Max <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.Timeouts.Item > c.Timeouts.Max || c.Timeouts.Collection > c.Timeouts.Max {
		return fmt.Errorf("timeouts must not exceed the %gs maximum", c.Timeouts.Max)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// GuardConfig converts to the safety guard configuration.
func (c *Config) GuardConfig() safety.Config {
	mode := safety.ModeProduction
	if c.Safety.TestMode {
		mode = safety.ModeTest
	}
	return safety.Config{
		Mode:      mode,
		Target:    c.Safety.Target,
		Whitelist: append([]string(nil), c.Safety.Whitelist...),
	}
}

func (c *Config) TimeoutPolicy() osascript.TimeoutPolicy {
	return osascript.TimeoutPolicy{
		Item:       seconds(c.Timeouts.Item),
		Collection: seconds(c.Timeouts.Collection),
		Max:        seconds(c.Timeouts.Max),
	}
}

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}
