package dns

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupIPLiteral(t *testing.T) {
	r := New()
	for _, host := range []string{"127.0.0.1", "::1"} {
		got, err := r.Lookup(context.Background(), host)
		require.NoError(t, err)
		assert.Equal(t, host, got)
	}
}

func TestLookupLocalhost(t *testing.T) {
	r := &Resolver{LocalTimeout: time.Second}
	got, err := r.Lookup(context.Background(), "localhost")
	require.NoError(t, err)
	assert.NotNil(t, net.ParseIP(got))
}

func TestLookupNoFallback(t *testing.T) {
	r := &Resolver{LocalTimeout: time.Second}
	_, err := r.Lookup(context.Background(), "does-not-exist.invalid")
	assert.Error(t, err)
}

func TestDialContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	conn, err := New().DialContext(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	conn.Close()

	_, err = New().DialContext(context.Background(), "tcp", "no-port")
	assert.Error(t, err)
}

func TestTrimBrackets(t *testing.T) {
	assert.Equal(t, "2606:4700:4700::1111", trimBrackets("[2606:4700:4700::1111]"))
	assert.Equal(t, "1.1.1.1", trimBrackets("1.1.1.1"))
}
