package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// PublicServers are queried when the system resolver fails.
var PublicServers = []string{
	"1.1.1.1",
	"1.0.0.1",
	"8.8.8.8",
	"8.8.4.4",
	"9.9.9.9",
	"[2606:4700:4700::1111]",
	"[2001:4860:4860::8888]",
}

// Resolver resolves hostnames through the system resolver first and then
// races a set of public DNS servers.
type Resolver struct {
	// Fallback lists the servers to race. Nil disables the fallback.
	Fallback      []string
	LocalTimeout  time.Duration
	RemoteTimeout time.Duration
}

// New returns a Resolver that falls back to PublicServers.
func New() *Resolver {
	return &Resolver{
		Fallback:      PublicServers,
		LocalTimeout:  time.Second,
		RemoteTimeout: 2 * time.Second,
	}
}

// Lookup resolves host to a single address, preferring IPv4. IP literals are
// returned unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	localCtx, cancel := context.WithTimeout(ctx, r.LocalTimeout)
	ip, err := lookupWith(localCtx, &net.Resolver{}, host)
	cancel()
	if err == nil {
		return ip, nil
	}
	if len(r.Fallback) == 0 {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	return r.race(ctx, host)
}

// DialContext resolves the host part of addr with Lookup and dials the
// result. It fits websocket.Dialer.NetDialContext.
func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip, err := r.Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}
	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

// race queries every fallback server concurrently and returns the first answer.
func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, r.RemoteTimeout)
	defer cancel()

	results := make(chan result, len(r.Fallback))
	for _, server := range r.Fallback {
		go func(server string) {
			ip, err := lookupWith(ctx, viaServer(server), host)
			results <- result{ip: ip, err: err}
		}(server)
	}

	failures := 0
	for range r.Fallback {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			failures++
		case <-ctx.Done():
			return "", fmt.Errorf("resolve %s: public DNS race timed out", host)
		}
	}
	return "", fmt.Errorf("resolve %s: all %d public DNS servers failed", host, failures)
}

// viaServer returns a resolver pinned to one DNS server.
func viaServer(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(trimBrackets(server), "53"))
		},
	}
}

func lookupWith(ctx context.Context, res *net.Resolver, host string) (string, error) {
	ips, err := res.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errors.New("no addresses found")
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}

func trimBrackets(s string) string {
	if len(s) > 1 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}
