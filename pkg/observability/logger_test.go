package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// decodeEntry unmarshals a single slog JSON line into a flat map
func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("debug not logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		if buf.Len() > 0 {
			t.Error("Debug message should not be logged at Info level")
		}
	})

	t.Run("info logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")
		if buf.Len() == 0 {
			t.Fatal("Info message should be logged at Info level")
		}

		entry := decodeEntry(t, &buf)
		if entry["level"] != "INFO" {
			t.Errorf("Expected level INFO, got %v", entry["level"])
		}
		if entry["msg"] != "info message" {
			t.Errorf("Expected message 'info message', got %v", entry["msg"])
		}
	})

	t.Run("warn logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Warn("warn message")
		if buf.Len() == 0 {
			t.Error("Warn message should be logged at Info level")
		}
	})

	t.Run("error logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Error("error message")
		if buf.Len() == 0 {
			t.Error("Error message should be logged at Info level")
		}
	})
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("partner", "bitflyer").Info("message")

	entry := decodeEntry(t, &buf)
	if entry["partner"] != "bitflyer" {
		t.Errorf("Expected field 'partner' to be 'bitflyer', got %v", entry["partner"])
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	fields := map[string]interface{}{
		"category": "affiliate",
		"held":     true,
	}
	logger.WithFields(fields).Info("message")

	entry := decodeEntry(t, &buf)
	if entry["category"] != "affiliate" {
		t.Errorf("Expected field 'category' to be 'affiliate', got %v", entry["category"])
	}
	if entry["held"] != true {
		t.Errorf("Expected field 'held' to be true, got %v", entry["held"])
	}
}

func TestLogger_WithError(t *testing.T) {
	t.Run("non-nil error adds field", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		logger.WithError(errors.New("insert failed")).Error("something went wrong")

		entry := decodeEntry(t, &buf)
		if entry["error"] != "insert failed" {
			t.Errorf("Expected error field 'insert failed', got %v", entry["error"])
		}
	})

	t.Run("nil error returns same logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		logger.WithError(nil).Info("fine")

		entry := decodeEntry(t, &buf)
		if _, exists := entry["error"]; exists {
			t.Error("Expected no error field for nil error")
		}
	})
}

func TestLogger_Formatters(t *testing.T) {
	t.Run("Debugf", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(DebugLevel, &buf)
		logger.Debugf("clicks %s %d", "pending", 42)

		entry := decodeEntry(t, &buf)
		if entry["msg"] != "clicks pending 42" {
			t.Errorf("Expected formatted message, got %v", entry["msg"])
		}
	})

	t.Run("Infof", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)
		logger.Infof("tracked %d clicks", 7)

		entry := decodeEntry(t, &buf)
		if entry["msg"] != "tracked 7 clicks" {
			t.Errorf("Expected formatted message, got %v", entry["msg"])
		}
	})

	t.Run("Warnf", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)
		logger.Warnf("queue at %d%%", 90)

		entry := decodeEntry(t, &buf)
		if entry["msg"] != "queue at 90%" {
			t.Errorf("Expected formatted message, got %v", entry["msg"])
		}
	})

	t.Run("Errorf", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)
		logger.Errorf("rollup failed for %s", "2026-08-20")

		entry := decodeEntry(t, &buf)
		if entry["msg"] != "rollup failed for 2026-08-20" {
			t.Errorf("Expected formatted message, got %v", entry["msg"])
		}
	})
}

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()

	if got := GetRequestID(ctx); got != "" {
		t.Errorf("Expected empty request ID, got %s", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("Expected req-123, got %s", got)
	}
}

func TestContext_ClientID(t *testing.T) {
	ctx := context.Background()

	if got := GetClientID(ctx); got != "" {
		t.Errorf("Expected empty client ID, got %s", got)
	}

	ctx = WithClientID(ctx, "cid-9f2")
	if got := GetClientID(ctx); got != "cid-9f2" {
		t.Errorf("Expected cid-9f2, got %s", got)
	}
}

func TestContext_Logger(t *testing.T) {
	t.Run("GetLogger returns default when missing", func(t *testing.T) {
		logger := GetLogger(context.Background())
		if logger == nil {
			t.Fatal("Expected non-nil default logger")
		}
	})

	t.Run("GetLogger returns stored logger", func(t *testing.T) {
		var buf bytes.Buffer
		stored := NewLogger(DebugLevel, &buf)
		ctx := WithLogger(context.Background(), stored)

		if got := GetLogger(ctx); got != stored {
			t.Error("Expected the stored logger")
		}
	})
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), base)
	ctx = WithRequestID(ctx, "req-456")
	ctx = WithClientID(ctx, "cid-789")

	FromContext(ctx).Info("handled")

	entry := decodeEntry(t, &buf)
	if entry["request_id"] != "req-456" {
		t.Errorf("Expected request_id req-456, got %v", entry["request_id"])
	}
	if entry["client_id"] != "cid-789" {
		t.Errorf("Expected client_id cid-789, got %v", entry["client_id"])
	}
}
