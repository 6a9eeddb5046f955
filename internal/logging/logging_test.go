package logging

import (
	"errors"
	"testing"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("info", "json")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if logger == nil {
		t.Fatal("Expected Logger, got nil")
	}
	if logger.Logger == nil {
		t.Error("Expected zap.Logger to be initialized")
	}
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger("invalid", "json")
	if err == nil {
		t.Error("Expected error for invalid log level")
	}
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	logger, err := NewLogger("debug", "console")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if logger == nil {
		t.Fatal("Expected Logger, got nil")
	}
}

func TestWithReplica(t *testing.T) {
	logger, _ := NewLogger("info", "json")
	replicaLogger := logger.WithReplica("replica-A")

	if replicaLogger == nil {
		t.Error("Expected logger with replica uid, got nil")
	}
}

func TestWithDatabase(t *testing.T) {
	logger, _ := NewLogger("info", "json")
	dbLogger := logger.WithDatabase("mydb")

	if dbLogger == nil {
		t.Error("Expected logger with database name, got nil")
	}
}

func TestWithDocID(t *testing.T) {
	logger, _ := NewLogger("info", "json")
	docLogger := logger.WithDocID("doc-123")

	if docLogger == nil {
		t.Error("Expected logger with doc id, got nil")
	}
}

func TestWithPeer(t *testing.T) {
	logger, _ := NewLogger("info", "json")
	peerLogger := logger.WithPeer("replica-B")

	if peerLogger == nil {
		t.Error("Expected logger with peer uid, got nil")
	}
}

func TestWithError(t *testing.T) {
	logger, _ := NewLogger("info", "json")
	testErr := errors.New("test error")
	errorLogger := logger.WithError(testErr)

	if errorLogger == nil {
		t.Error("Expected logger with error, got nil")
	}
}