package http

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockedIP(t *testing.T) {
	tests := []struct {
		ip      string
		blocked bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.1.10", true},
		{"169.254.169.254", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"0.0.0.0", true},
		{"224.0.0.1", true},
		{"8.8.8.8", false},
		{"2606:4700:4700::1111", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.blocked, blockedIP(net.ParseIP(tt.ip)), tt.ip)
	}
	assert.True(t, blockedIP(nil))
}

func TestClient_PublicOnlyRefusesLoopback(t *testing.T) {
	var hit atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit.Store(true)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Timeout: 2 * time.Second, PublicOnly: true})
	_, err := client.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.False(t, hit.Load())

	// Hostnames are checked after resolution.
	localhost := strings.Replace(server.URL, "127.0.0.1", "localhost", 1)
	_, err = client.Get(context.Background(), localhost, nil)
	assert.ErrorIs(t, err, ErrBlockedAddress)
}

func TestClient_MaxBodySize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	_, err := NewClient(ClientConfig{MaxBodySize: 16}).GetText(context.Background(), server.URL)
	assert.Error(t, err)

	body, err := NewClient(ClientConfig{MaxBodySize: 64}).GetText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, body, 64)
}
