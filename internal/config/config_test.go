package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/safety"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvConfigFile, EnvTestMode, EnvTestDatabase, EnvTestWhitelist, EnvAppName, EnvOsascript,
		EnvTimeoutItem, EnvTimeoutCollection, EnvTimeoutMax, EnvLogLevel, EnvLogFormat,
	} {
		t.Setenv(name, "")
	}
	t.Setenv(EnvJournal, JournalOff)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "OmniFocus", config.App)
	assert.Equal(t, []string{"osascript", "-"}, config.Osascript)
	assert.Equal(t, "", config.Journal)
	assert.Equal(t, safety.ModeProduction, config.GuardConfig().Mode)

	policy := config.TimeoutPolicy()
	assert.Equal(t, 60*time.Second, policy.Item)
	assert.Equal(t, 120*time.Second, policy.Collection)
	assert.Equal(t, 300*time.Second, policy.Max)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTestMode, "true")
	t.Setenv(EnvTestDatabase, "OmniFocus-Test")
	t.Setenv(EnvTestWhitelist, "OmniFocus-Test, Scratch ,")
	t.Setenv(EnvTimeoutItem, "90")
	t.Setenv(EnvTimeoutCollection, "2m30s")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvOsascript, "/usr/bin/osascript -")
	t.Setenv(EnvJournal, "/tmp/omnifocus-journal.db")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, safety.Config{
		Mode:      safety.ModeTest,
		Target:    "OmniFocus-Test",
		Whitelist: []string{"OmniFocus-Test", "Scratch"},
	}, config.GuardConfig())
	assert.Equal(t, 90*time.Second, config.TimeoutPolicy().Item)
	assert.Equal(t, 150*time.Second, config.TimeoutPolicy().Collection)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, []string{"/usr/bin/osascript", "-"}, config.Osascript)
	assert.Equal(t, "/tmp/omnifocus-journal.db", config.Journal)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "omnifocus-mcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app: OmniFocus 4
safety:
  test_mode: true
  target: Fixture
timeouts:
  item: 30
logging:
  format: console
`), 0o644))
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvTestDatabase, "FromEnv")

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "OmniFocus 4", config.App)
	assert.True(t, config.Safety.TestMode)
	assert.Equal(t, "FromEnv", config.Safety.Target)
	assert.Equal(t, 30*time.Second, config.TimeoutPolicy().Item)
	assert.Equal(t, 120*time.Second, config.TimeoutPolicy().Collection)
	assert.Equal(t, "console", config.Logging.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "test mode", key: EnvTestMode, value: "maybe"},
		{name: "timeout", key: EnvTimeoutItem, value: "soon"},
		{name: "timeout above max", key: EnvTimeoutCollection, value: "301"},
		{name: "negative timeout", key: EnvTimeoutMax, value: "-1"},
		{name: "log level", key: EnvLogLevel, value: "loud"},
		{name: "log format", key: EnvLogFormat, value: "xml"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(testCase.key, testCase.value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestTestModeWithoutTargetStillLoads(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTestMode, "1")

	config, err := Load("")
	require.NoError(t, err)
	guard := config.GuardConfig()
	assert.Equal(t, safety.ModeTest, guard.Mode)
	assert.Error(t, guard.Validate())
}
