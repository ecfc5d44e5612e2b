package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/migadu/dovecot-expunge/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"DEBUG", "DEBUG"},
		{"Info", "INFO"},
		{"warn", "WARN"},
		{"WARNING", "WARN"},
		{"error", "ERROR"},
		{"FATAL", "FATAL"},
		{"", "INFO"},
		{"verbose", "INFO"},
		{"  error  ", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelName(ParseLevel(tt.in)))
		})
	}
}

func TestLogger_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug)

	log.Info("Beginning Dovecot Expunge")
	log.Debugf("Expunging %s - %s : %d", "a@b.com", "INBOX", 30)
	log.Warn("slow", "mailbox", "Trash", "days", 7)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[ INFO] Beginning Dovecot Expunge", lines[0])
	assert.Equal(t, "[DEBUG] Expunging a@b.com - INBOX : 30", lines[1])
	assert.Equal(t, "[ WARN] slow mailbox=Trash days=7", lines[2])
}

func TestLogger_ErrorThresholdSuppressesLowerLevels(t *testing.T) {
	var buf bytes.Buffer
	var exitCode int
	log := New(&buf, ParseLevel("ERROR"), WithExitFunc(func(code int) { exitCode = code }))

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")
	log.Fatal("fatal message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.NotContains(t, out, "warn message")
	assert.Contains(t, out, "[ERROR] error message")
	assert.Contains(t, out, "[FATAL] fatal message")
	assert.Equal(t, 1, exitCode)
}

func TestLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, ParseLevel("chatty"))

	log.Debug("hidden")
	log.Info("shown")

	assert.Equal(t, "[ INFO] shown\n", buf.String())
	assert.Equal(t, LevelInfo, log.Level())
}

func TestLogger_FatalfExits(t *testing.T) {
	var buf bytes.Buffer
	exited := false
	log := New(&buf, LevelInfo, WithExitFunc(func(code int) {
		exited = true
		assert.Equal(t, 1, code)
	}))

	log.Fatalf("Could not connect to database: %v", "refused")

	assert.True(t, exited)
	assert.Equal(t, "[FATAL] Could not connect to database: refused\n", buf.String())
}

func TestLogger_WithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo)

	log.Slog().With("run", 1).WithGroup("record").Info("done", "user", "a@b.com")

	assert.Equal(t, "[ INFO] done run=1 record.user=a@b.com\n", buf.String())
}

func TestInitialize(t *testing.T) {
	log, err := Initialize(config.LoggingConfig{Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, log.Level())
	assert.NoError(t, log.Close())

	_, err = Initialize(config.LoggingConfig{Output: "/var/log/nowhere"})
	assert.Error(t, err)
}
