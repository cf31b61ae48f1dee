package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{" ERROR ", LevelError, false},
		{"invalid", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestLevelString(t *testing.T) {
	require.Equal(t, "DEBUG", LevelDebug.String())
	require.Equal(t, "INFO", LevelInfo.String())
	require.Equal(t, "WARN", LevelWarn.String())
	require.Equal(t, "ERROR", LevelError.String())
	require.Equal(t, "UNKNOWN", Level(42).String())
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	l.SetLevel(LevelWarn)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	output := buf.String()
	require.NotContains(t, output, "debug message")
	require.NotContains(t, output, "info message")
	require.Contains(t, output, "warn message")
	require.Contains(t, output, "error message")
	require.False(t, l.Enabled(LevelInfo))
	require.True(t, l.Enabled(LevelError))
}

func TestLogger_ComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	l.SetLevel(LevelDebug)

	l.For("genclient").Info("calling %s", "gemini-2.5-flash")
	l.Info("plain line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "[INFO] genclient: calling gemini-2.5-flash")
	require.Contains(t, lines[1], "[INFO] plain line")
}

func TestLogger_ChildSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	child := l.For("workflow")

	l.SetLevel(LevelError)
	child.Warn("hidden")
	require.Empty(t, buf.String())
}

func TestLogger_Configure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adreel.log")

	l := New()
	require.NoError(t, l.Configure("debug", path))
	defer l.Close()

	l.Debug("configured %d", 1)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "configured 1")

	require.Error(t, l.Configure("loud", ""))
}

func TestLogger_EnvVars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.log")
	t.Setenv(EnvLevel, "debug")
	t.Setenv(EnvFile, path)

	l := New()
	defer l.Close()
	require.True(t, l.Enabled(LevelDebug))

	l.Debug("from env")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "from env")
}

func TestLogger_CloseIsIdempotent(t *testing.T) {
	l := New()
	require.NoError(t, l.OpenFile(filepath.Join(t.TempDir(), "x.log")))
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}

func TestPackageLevelFunctions(t *testing.T) {
	var buf bytes.Buffer
	Default.SetOutput(&buf)
	Default.SetLevel(LevelDebug)
	defer Default.SetLevel(LevelInfo)

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	For("http").Info("routed")

	output := buf.String()
	for _, want := range []string{"[DEBUG] d", "[INFO] i", "[WARN] w", "[ERROR] e", "http: routed"} {
		require.Contains(t, output, want)
	}
}
