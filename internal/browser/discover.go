// File: internal/browser/discover.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// VersionInfo is the payload served by a browser's /json/version endpoint.
type VersionInfo struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// ProbeDebugPort checks whether a CDP debugging endpoint is reachable on the
// given local port. Any failure (refused connection, timeout, bad status,
// malformed body) means "not active" and is reported as an error; callers
// that only need a boolean should treat every error as false.
func ProbeDebugPort(ctx context.Context, port int, timeout time.Duration) (*VersionInfo, error) {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("http://127.0.0.1:%d/json/version", port)
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building debug port probe request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("debug port %d unreachable: %w", port, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("debug port %d returned status %d", port, resp.StatusCode)
	}

	var info VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding /json/version from port %d: %w", port, err)
	}
	if info.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("debug port %d responded without a websocket debugger URL", port)
	}
	return &info, nil
}
