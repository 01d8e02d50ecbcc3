package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level %s, got %s", LevelInfo, cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("Expected default format %s, got %s", FormatText, cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got '%s'", cfg.Output)
	}
	if cfg.AddSource {
		t.Error("Expected AddSource to be false by default")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{LevelError, slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("stderr json logger", func(t *testing.T) {
		logger, err := New(Config{Level: LevelError, Format: FormatJSON, Output: "stderr"})
		if err != nil {
			t.Fatalf("Failed to create logger: %v", err)
		}
		if logger.config.Format != FormatJSON {
			t.Errorf("Expected format %s, got %s", FormatJSON, logger.config.Format)
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Closing a stderr logger should be a no-op, got %v", err)
		}
	})

	t.Run("file logger creates directories", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "nested", "dir", "portsweep.log")

		logger, err := New(Config{Level: LevelDebug, Format: FormatText, Output: logFile})
		if err != nil {
			t.Fatalf("Failed to create logger: %v", err)
		}
		logger.Info("scan finished", "open", 3)
		if err := logger.Close(); err != nil {
			t.Fatalf("Failed to close logger: %v", err)
		}

		data, err := os.ReadFile(logFile)
		if err != nil {
			t.Fatalf("Failed to read log file: %v", err)
		}
		if !strings.Contains(string(data), "scan finished") {
			t.Errorf("Expected log file to contain message, got %q", data)
		}

		info, err := os.Stat(logFile)
		if err != nil {
			t.Fatalf("Failed to stat log file: %v", err)
		}
		if info.Mode().Perm() != logFilePerm {
			t.Errorf("Expected permissions %o, got %o", logFilePerm, info.Mode().Perm())
		}
	})
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: LevelWarn, Format: FormatText}, &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("Records below warn should be filtered, got %q", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Errorf("Expected warn message in output, got %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: LevelInfo, Format: FormatJSON}, &buf)

	logger.WithComponent("engine").WithScanID("abc-123").WithTarget("127.0.0.1").Info("scan started", "ports", 14)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Expected valid JSON, got %q: %v", buf.String(), err)
	}

	expected := map[string]any{
		"msg":       "scan started",
		"component": "engine",
		"scan_id":   "abc-123",
		"target":    "127.0.0.1",
		"ports":     float64(14),
	}
	for key, want := range expected {
		if record[key] != want {
			t.Errorf("Expected %s=%v, got %v", key, want, record[key])
		}
	}
}

func TestErrorHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: LevelDebug, Format: FormatText}, &buf)

	logger.ErrorScan("scan failed", "nowhere.invalid", fmt.Errorf("no such host"))
	logger.InfoDatabase("migrated", "table", "scan_reports", "version", 1)
	logger.WithTarget("10.0.0.1").WithScanID("scan-3").Warn("slow scan")

	out := buf.String()
	for _, want := range []string{
		"target=nowhere.invalid",
		`error="no such host"`,
		"component=database",
		"table=scan_reports",
		"version=1",
		"target=10.0.0.1",
		"scan_id=scan-3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got %q", want, out)
		}
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: LevelInfo}, &buf)

	if got := logger.WithContext(context.Background()); got != logger {
		t.Error("Expected the same logger when the context carries no fields")
	}

	ctx := ContextWithFields(context.Background(), "request_id", "req-1")
	ctx = ContextWithFields(ctx, "scan_id", "scan-9")
	logger.WithContext(ctx).Info("handled")

	out := buf.String()
	if !strings.Contains(out, "request_id=req-1") || !strings.Contains(out, "scan_id=scan-9") {
		t.Errorf("Expected context fields in output, got %q", out)
	}
}

func TestSetAndGetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(NewWithWriter(Config{Level: LevelDebug}, &buf))

	Debug("debug via default")
	Info("info via default")
	Warn("warn via default")
	Error("error via default")
	ErrorScan("scan error via default", "localhost", fmt.Errorf("x"))

	for _, want := range []string{"debug via default", "info via default", "warn via default",
		"error via default", "scan error via default"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected default logger output to contain %q", want)
		}
	}

	SetDefault(nil)
	if Default() == nil {
		t.Error("SetDefault(nil) should restore a usable logger")
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("nobody hears this")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard logger should not enable any level")
	}
}

func TestConcurrentLogging(t *testing.T) {
	var (
		buf bytes.Buffer
		mu  sync.Mutex
	)
	logger := NewWithWriter(Config{Level: LevelInfo}, writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.WithFields("worker", n).Info("probe done")
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if got := strings.Count(buf.String(), "probe done"); got != 20 {
		t.Errorf("Expected 20 records, got %d", got)
	}
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
