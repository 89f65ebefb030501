// Package health provides health checks for graph store backends.
//
// # Health Check Functions
//
//   - StoreCheck: Ping a store and time the round trip
//   - NetworkCheck: Verify TCP connectivity to a host:port
//   - AddressCheck: NetworkCheck for a URL or "host:port" string
//   - FileCheck: Verify a file or directory exists
//   - Combine: Aggregate multiple health checks into a single status
//
// # Usage Example
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	overall := health.Combine(
//	    health.AddressCheck(ctx, "redis://localhost:6379"),
//	    health.StoreCheck(ctx, s),
//	)
//	if overall.IsUnhealthy() {
//	    log.Printf("store check failed: %s", overall.Message)
//	}
//
// # Health Status Priority
//
// When combining health checks with Combine(), the result follows this priority:
//
//   - Unhealthy: If any check is unhealthy, the combined result is unhealthy
//   - Degraded: If any check is degraded (and none unhealthy), the result is degraded
//   - Healthy: If all checks are healthy, the result is healthy
//
// A store that does not implement store.Pinger is reported as degraded, since
// its reachability cannot be verified.
package health
