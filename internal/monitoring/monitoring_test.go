package monitoring

import (
	"testing"
)

func TestNewMetrics(t *testing.T) {
	metrics := NewMetrics()
	if metrics == nil {
		t.Fatal("Expected Metrics, got nil")
	}

	if metrics.DocsCreated == nil {
		t.Error("Expected DocsCreated to be initialized")
	}
	if metrics.DocsPut == nil {
		t.Error("Expected DocsPut to be initialized")
	}
	if metrics.DocsDeleted == nil {
		t.Error("Expected DocsDeleted to be initialized")
	}
	if metrics.DocsResolved == nil {
		t.Error("Expected DocsResolved to be initialized")
	}
	if metrics.RevisionConflicts == nil {
		t.Error("Expected RevisionConflicts to be initialized")
	}
	if metrics.SyncExchanges == nil {
		t.Error("Expected SyncExchanges to be initialized")
	}
	if metrics.SyncExchangeErrors == nil {
		t.Error("Expected SyncExchangeErrors to be initialized")
	}
	if metrics.SyncExchangeDur == nil {
		t.Error("Expected SyncExchangeDur to be initialized")
	}
	if metrics.DocsSent == nil {
		t.Error("Expected DocsSent to be initialized")
	}
	if metrics.DocsReceived == nil {
		t.Error("Expected DocsReceived to be initialized")
	}
	if metrics.ActiveConnections == nil {
		t.Error("Expected ActiveConnections to be initialized")
	}
}
