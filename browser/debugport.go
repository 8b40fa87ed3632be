package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DebugInfo is the subset of Chrome's /json/version payload we care about.
type DebugInfo struct {
	Browser      string `json:"Browser"`
	WebSocketURL string `json:"webSocketDebuggerUrl"`
}

// ProbeDebugPort checks whether a Chrome instance is listening with remote
// debugging enabled on addr (host:port). Useful before attaching to an
// externally started browser.
func ProbeDebugPort(ctx context.Context, client *http.Client, addr string) (*DebugInfo, error) {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}

	url := fmt.Sprintf("http://%s/json/version", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build probe request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("debug port %s not reachable: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("debug port %s returned status %d", addr, resp.StatusCode)
	}

	var info DebugInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode version payload: %w", err)
	}
	return &info, nil
}
