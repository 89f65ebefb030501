package health

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zero-day-ai/docgraph/store"
	"github.com/zero-day-ai/docgraph/store/memory"
)

// writeOnly is a GraphStore without Ping.
type writeOnly struct{}

func (writeOnly) AddNode(context.Context, string, map[string]any) (store.NodeHandle, error) {
	return "", nil
}
func (writeOnly) AddEdge(context.Context, store.NodeHandle, string, store.NodeHandle) error {
	return nil
}
func (writeOnly) Commit(context.Context) error { return nil }

// failingPing is a GraphStore whose Ping always fails.
type failingPing struct{ writeOnly }

func (failingPing) Ping(context.Context) error { return errors.New("connection refused") }

func TestStoreCheck(t *testing.T) {
	closed := memory.New()
	closed.Close()

	tests := []struct {
		name   string
		store  store.GraphStore
		status string
	}{
		{name: "memory store", store: memory.New(), status: StatusHealthy},
		{name: "closed store", store: closed, status: StatusUnhealthy},
		{name: "ping fails", store: failingPing{}, status: StatusUnhealthy},
		{name: "no ping", store: writeOnly{}, status: StatusDegraded},
		{name: "nil store", store: nil, status: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := StoreCheck(context.Background(), tt.store)
			if status.Status != tt.status {
				t.Errorf("expected %s, got %s: %s", tt.status, status.Status, status.Message)
			}
			if status.Message == "" {
				t.Error("expected non-empty message")
			}
		})
	}
}

func TestStoreCheckDetails(t *testing.T) {
	status := StoreCheck(context.Background(), failingPing{})
	if got := status.Details["error"]; got != "connection refused" {
		t.Errorf("expected error detail, got %v", got)
	}

	status = StoreCheck(context.Background(), memory.New())
	if _, ok := status.Details["latency_ms"]; !ok {
		t.Error("expected latency_ms detail")
	}
}

func TestNetworkCheck(t *testing.T) {
	// Start a test TCP server
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}
	defer listener.Close()

	testPort := listener.Addr().(*net.TCPAddr).Port

	// Accept connections in background
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	tests := []struct {
		name          string
		host          string
		port          int
		expectHealthy bool
	}{
		{name: "successful connection", host: "127.0.0.1", port: testPort, expectHealthy: true},
		{name: "invalid port negative", host: "127.0.0.1", port: -1},
		{name: "invalid port too large", host: "127.0.0.1", port: 70000},
		{name: "empty host", host: "", port: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			status := NetworkCheck(ctx, tt.host, tt.port)
			if status.IsHealthy() != tt.expectHealthy {
				t.Errorf("expected healthy=%v, got %s: %s", tt.expectHealthy, status.Status, status.Message)
			}
		})
	}

	t.Run("address check", func(t *testing.T) {
		status := AddressCheck(context.Background(), listener.Addr().String())
		if !status.IsHealthy() {
			t.Errorf("expected healthy status, got %s: %s", status.Status, status.Message)
		}
	})
}

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		address string
		host    string
		port    int
		wantErr bool
	}{
		{address: "redis://localhost:6380/0", host: "localhost", port: 6380},
		{address: "redis://cache", host: "cache", port: 6379},
		{address: "neo4j+s://db.example.com", host: "db.example.com", port: 7687},
		{address: "bolt://[::1]:7688", host: "::1", port: 7688},
		{address: "localhost:2379", host: "localhost", port: 2379},
		{address: "", wantErr: true},
		{address: "ftp://files", wantErr: true},
		{address: "redis://", wantErr: true},
		{address: "no-port", wantErr: true},
		{address: "host:http", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			host, port, err := SplitAddress(tt.address)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s:%d", host, port)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if host != tt.host || port != tt.port {
				t.Errorf("expected %s:%d, got %s:%d", tt.host, tt.port, host, port)
			}
		})
	}
}

func TestFileCheck(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "data.vlog")
	if err := os.WriteFile(tmpFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name          string
		path          string
		expectHealthy bool
	}{
		{name: "existing file", path: tmpFile, expectHealthy: true},
		{name: "existing directory", path: tmpDir, expectHealthy: true},
		{name: "missing path", path: filepath.Join(tmpDir, "missing"), expectHealthy: false},
		{name: "empty path", path: "", expectHealthy: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := FileCheck(tt.path)
			if status.IsHealthy() != tt.expectHealthy {
				t.Errorf("expected healthy=%v, got %s: %s", tt.expectHealthy, status.Status, status.Message)
			}
		})
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name   string
		checks []Status
		want   string
	}{
		{name: "no checks", want: StatusHealthy},
		{name: "all healthy", checks: []Status{Healthy("a"), Healthy("b")}, want: StatusHealthy},
		{name: "one degraded", checks: []Status{Healthy("a"), Degraded("b", nil)}, want: StatusDegraded},
		{name: "unhealthy wins", checks: []Status{Degraded("a", nil), Unhealthy("", nil)}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := Combine(tt.checks...)
			if status.Status != tt.want {
				t.Errorf("expected %s, got %s: %s", tt.want, status.Status, status.Message)
			}
		})
	}

	status := Combine(Unhealthy("", nil), Healthy("ok"))
	failed, _ := status.Details["failed_checks"].([]string)
	if len(failed) != 1 || failed[0] != "unnamed check" {
		t.Errorf("unexpected failed_checks: %v", status.Details["failed_checks"])
	}
}
