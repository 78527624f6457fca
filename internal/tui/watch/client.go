package watch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mattjoyce/accrete/internal/events"
)

// Connect subscribes to a running build's status API event stream and
// republishes every frame into hub, blocking until the stream ends or ctx is
// cancelled.
func Connect(ctx context.Context, apiURL string, hub *events.Hub) error {
	url := strings.TrimRight(apiURL, "/") + "/v1/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build event stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to build event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("build event stream returned %s", resp.Status)
	}

	return consumeStream(resp.Body, hub)
}

// consumeStream republishes each SSE data frame into hub. Frames that don't
// decode as task events (keep-alive comments, malformed lines) are skipped.
func consumeStream(r io.Reader, hub *events.Hub) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var ev events.Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		hub.Publish(ev.Type, ev.Task)
	}
	return scanner.Err()
}
