package client

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// DefaultProbeTimeout bounds the start-of-run reachability check
const DefaultProbeTimeout = 5 * time.Second

// Probe checks that the API host accepts TCP connections. It is run once
// before any upload so an unreachable host is a setup error.
func Probe(ctx context.Context, baseURL string, timeout time.Duration) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("invalid api url %q: missing host", baseURL)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return fmt.Errorf("API host %s unreachable: %w", u.Host, err)
	}
	return conn.Close()
}
