// File: internal/browser/discover_test.go
package browser

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/helmsman/internal/config"
)

// serverPort extracts the TCP port an httptest server bound to.
func serverPort(t *testing.T, s *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(s.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}

// freePort reserves and releases a port so nothing is listening on it.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestProbeDebugPort(t *testing.T) {
	ctx := context.Background()

	t.Run("ActiveEndpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/json/version", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"Browser":"Chrome/140.0.7339.80","Protocol-Version":"1.3","webSocketDebuggerUrl":"ws://127.0.0.1:9222/devtools/browser/xyz"}`)
		}))
		t.Cleanup(server.Close)

		info, err := ProbeDebugPort(ctx, serverPort(t, server), time.Second)
		require.NoError(t, err)
		assert.Equal(t, "Chrome/140.0.7339.80", info.Browser)
		assert.NotEmpty(t, info.WebSocketDebuggerURL)
	})

	t.Run("NothingListening", func(t *testing.T) {
		_, err := ProbeDebugPort(ctx, freePort(t), time.Second)
		require.Error(t, err)
	})

	t.Run("NonSuccessStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusNotFound)
		}))
		t.Cleanup(server.Close)

		_, err := ProbeDebugPort(ctx, serverPort(t, server), time.Second)
		require.Error(t, err)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "not json")
		}))
		t.Cleanup(server.Close)

		_, err := ProbeDebugPort(ctx, serverPort(t, server), time.Second)
		require.Error(t, err)
	})

	t.Run("MissingDebuggerURL", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"Browser":"Chrome/140.0"}`)
		}))
		t.Cleanup(server.Close)

		_, err := ProbeDebugPort(ctx, serverPort(t, server), time.Second)
		require.Error(t, err)
	})

	t.Run("SlowEndpointTimesOut", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}))
		t.Cleanup(server.Close)

		start := time.Now()
		_, err := ProbeDebugPort(ctx, serverPort(t, server), 250*time.Millisecond)
		require.Error(t, err)
		assert.Less(t, time.Since(start), 2*time.Second, "probe must respect its bound")
	})
}

func TestIsDebugPortActive(t *testing.T) {
	ctx := context.Background()

	t.Run("TrueWithMockEndpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"Browser":"Chrome/140.0","webSocketDebuggerUrl":"ws://127.0.0.1:1/devtools/browser/xyz"}`)
		}))
		t.Cleanup(server.Close)

		cfg := config.BrowserConfig{
			DebugPort:       serverPort(t, server),
			AttachTimeout:   time.Second,
			LivenessTimeout: time.Second,
		}
		a := NewAcquirer(cfg, zaptest.NewLogger(t))
		assert.True(t, a.IsDebugPortActive(ctx))
	})

	t.Run("FalseWhenNothingListens", func(t *testing.T) {
		cfg := config.BrowserConfig{
			DebugPort:       freePort(t),
			AttachTimeout:   time.Second,
			LivenessTimeout: time.Second,
		}
		a := NewAcquirer(cfg, zaptest.NewLogger(t))
		assert.False(t, a.IsDebugPortActive(ctx))
	})
}
