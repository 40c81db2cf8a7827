package logger_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/rafflekit/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, logger.ParseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, logger.ParseLevel("nonsense"))
	assert.Equal(t, zapcore.InfoLevel, logger.ParseLevel(""))
}

func TestNoSinksIsNop(t *testing.T) {
	log, closeFn, err := logger.New(logger.Config{Level: "debug"})
	require.NoError(t, err)
	log.Info("dropped")
	assert.NoError(t, closeFn())
}

func TestConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, closeFn, err := logger.New(logger.Config{Level: "warn", Console: true, Writer: &buf})
	require.NoError(t, err)

	log.Info("quiet")
	log.Warn("loud", zap.Int("players", 3))
	require.NoError(t, closeFn())

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, `"players": 3`)
}

func TestFileSinks(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "rafflekit.log")
	errFile := filepath.Join(dir, "errors.log")

	log, closeFn, err := logger.New(logger.Config{Level: "info", LogFile: logFile, ErrorFile: errFile})
	require.NoError(t, err)

	log.Info("winner picked", zap.String("winner", "0xabc"))
	log.Error("transfer failed")
	require.NoError(t, closeFn())

	all, err := os.ReadFile(logFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(all)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "winner picked", entry["message"])
	assert.Equal(t, "0xabc", entry["winner"])
	assert.Equal(t, "info", entry["level"])

	errs, err := os.ReadFile(errFile)
	require.NoError(t, err)
	assert.Contains(t, string(errs), "transfer failed")
	assert.NotContains(t, string(errs), "winner picked")
}

func TestBadLogPath(t *testing.T) {
	_, _, err := logger.New(logger.Config{LogFile: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
