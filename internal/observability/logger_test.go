// File: internal/observability/logger_test.go
package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

func testLoggerConfig() config.LoggerConfig {
	return config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "webpilot-test",
	}
}

func TestInitializeWritesToConsole(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &zaptest.Buffer{}
	Initialize(testLoggerConfig(), buf)

	GetLogger().Info("hello from the pilot")

	out := buf.String()
	assert.Contains(t, out, "hello from the pilot")
	assert.Contains(t, out, "webpilot-test.")
}

func TestInitializeRespectsLevel(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	cfg := testLoggerConfig()
	cfg.Level = "warn"
	buf := &zaptest.Buffer{}
	Initialize(cfg, buf)

	logger := GetLogger()
	logger.Info("should be filtered")
	logger.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}

func TestInitializeJSONFormat(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	cfg := testLoggerConfig()
	cfg.Format = "json"
	buf := &zaptest.Buffer{}
	Initialize(cfg, buf)

	GetLogger().Info("structured entry")

	lines := buf.Lines()
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "structured entry", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeRunsOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &zaptest.Buffer{}
	second := &zaptest.Buffer{}
	Initialize(testLoggerConfig(), first)
	Initialize(testLoggerConfig(), second)

	GetLogger().Info("single home")

	assert.Contains(t, first.String(), "single home")
	assert.Empty(t, second.String())
}

func TestInitializeFileOutput(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logFile := filepath.Join(t.TempDir(), "pilot.log")
	cfg := testLoggerConfig()
	cfg.LogFile = logFile

	Initialize(cfg, &zaptest.Buffer{})
	GetLogger().Info("to disk as well")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to disk as well")
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	// The fallback must never panic on use.
	logger.Info("uninitialized path")
}

func TestInitializeInvalidLevelDefaultsToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	cfg := testLoggerConfig()
	cfg.Level = "not-a-level"
	buf := &zaptest.Buffer{}
	Initialize(cfg, buf)

	logger := GetLogger()
	logger.Debug("below default")
	logger.Info("at default")

	out := buf.String()
	assert.NotContains(t, out, "below default")
	assert.Contains(t, out, "at default")
}
