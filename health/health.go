package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zero-day-ai/docgraph/store"
)

// StoreCheck pings s when it implements store.Pinger. A store that cannot be
// pinged is reported as degraded.
//
// Example:
//
//	status := health.StoreCheck(ctx, s)
//	if status.IsUnhealthy() {
//	    log.Fatal(status.Message)
//	}
func StoreCheck(ctx context.Context, s store.GraphStore) Status {
	if s == nil {
		return Unhealthy("store cannot be nil", nil)
	}

	pinger, ok := s.(store.Pinger)
	if !ok {
		return Degraded(
			fmt.Sprintf("store %T does not support ping", s),
			map[string]any{"store": fmt.Sprintf("%T", s)},
		)
	}

	start := time.Now()
	err := pinger.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return Unhealthy(
			"store ping failed",
			map[string]any{
				"store": fmt.Sprintf("%T", s),
				"error": err.Error(),
			},
		)
	}

	return Status{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("store responded in %s", latency.Round(time.Microsecond)),
		Details: map[string]any{"latency_ms": latency.Milliseconds()},
	}
}

// NetworkCheck verifies TCP connectivity to a host and port.
// It uses the provided context for timeout and cancellation control.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	status := health.NetworkCheck(ctx, "localhost", 6379)
func NetworkCheck(ctx context.Context, host string, port int) Status {
	if host == "" {
		return Unhealthy("host cannot be empty", nil)
	}

	if port <= 0 || port > 65535 {
		return Unhealthy(
			fmt.Sprintf("invalid port number: %d", port),
			map[string]any{"port": port},
		)
	}

	// Use context with timeout if not already set
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("failed to connect to %s", address),
			map[string]any{
				"host":  host,
				"port":  port,
				"error": err.Error(),
			},
		)
	}
	conn.Close()

	return Healthy(fmt.Sprintf("successfully connected to %s", address))
}

// defaultPorts maps connection URL schemes to their default ports.
var defaultPorts = map[string]int{
	"redis":     6379,
	"rediss":    6379,
	"neo4j":     7687,
	"neo4j+s":   7687,
	"neo4j+ssc": 7687,
	"bolt":      7687,
	"bolt+s":    7687,
	"bolt+ssc":  7687,
	"http":      80,
	"https":     443,
}

// SplitAddress extracts host and port from a URL such as
// "redis://localhost:6379/0" or a bare "host:port" pair. A URL without a port
// uses its scheme's default.
func SplitAddress(address string) (string, int, error) {
	if address == "" {
		return "", 0, fmt.Errorf("address cannot be empty")
	}

	if strings.Contains(address, "://") {
		u, err := url.Parse(address)
		if err != nil {
			return "", 0, fmt.Errorf("failed to parse address: %w", err)
		}
		host := u.Hostname()
		if host == "" {
			return "", 0, fmt.Errorf("address %q has no host", address)
		}
		if p := u.Port(); p != "" {
			port, err := strconv.Atoi(p)
			if err != nil {
				return "", 0, fmt.Errorf("invalid port in %q: %w", address, err)
			}
			return host, port, nil
		}
		port, ok := defaultPorts[strings.ToLower(u.Scheme)]
		if !ok {
			return "", 0, fmt.Errorf("address %q has no port and scheme %q has no default", address, u.Scheme)
		}
		return host, port, nil
	}

	host, p, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, fmt.Errorf("failed to parse address: %w", err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", address, err)
	}
	return host, port, nil
}

// AddressCheck runs NetworkCheck against a URL or "host:port" string.
func AddressCheck(ctx context.Context, address string) Status {
	host, port, err := SplitAddress(address)
	if err != nil {
		return Unhealthy(err.Error(), map[string]any{"address": address})
	}
	return NetworkCheck(ctx, host, port)
}

// FileCheck verifies that a file or directory exists at the specified path.
func FileCheck(path string) Status {
	if path == "" {
		return Unhealthy("path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Unhealthy(
				fmt.Sprintf("path '%s' does not exist", path),
				map[string]any{"path": path},
			)
		}
		return Unhealthy(
			fmt.Sprintf("failed to stat path '%s'", path),
			map[string]any{
				"path":  path,
				"error": err.Error(),
			},
		)
	}

	fileType := "file"
	if info.IsDir() {
		fileType = "directory"
	}
	return Healthy(fmt.Sprintf("%s '%s' exists", fileType, path))
}

// Combine aggregates multiple health checks into a single status.
// The result follows this priority:
//   - If any check is unhealthy, the result is unhealthy
//   - If any check is degraded (and none unhealthy), the result is degraded
//   - If all checks are healthy, the result is healthy
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return Healthy("no checks provided")
	}

	var unhealthyChecks []string
	var degradedChecks []string
	var healthyCount int

	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch check.Status {
		case StatusUnhealthy:
			unhealthyChecks = append(unhealthyChecks, msg)
		case StatusDegraded:
			degradedChecks = append(degradedChecks, msg)
		case StatusHealthy:
			healthyCount++
		}
	}

	if len(unhealthyChecks) > 0 {
		return Unhealthy(
			fmt.Sprintf("%d check(s) failed", len(unhealthyChecks)),
			map[string]any{
				"total":         len(checks),
				"unhealthy":     len(unhealthyChecks),
				"degraded":      len(degradedChecks),
				"healthy":       healthyCount,
				"failed_checks": unhealthyChecks,
			},
		)
	}

	if len(degradedChecks) > 0 {
		return Degraded(
			fmt.Sprintf("%d check(s) degraded", len(degradedChecks)),
			map[string]any{
				"total":           len(checks),
				"degraded":        len(degradedChecks),
				"healthy":         healthyCount,
				"degraded_checks": degradedChecks,
			},
		)
	}

	return Healthy(fmt.Sprintf("all %d check(s) passed", len(checks)))
}
