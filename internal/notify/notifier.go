// Package notify mirrors accepted state updates to the dashboard process.
package notify

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/event"
)

const defaultTimeout = 5 * time.Second

// Notifier pushes state-update envelopes to one remote subscriber.
// Delivery is best-effort: failures are logged and discarded, never retried,
// and never surfaced to the caller. The subscriber is eventually-consistent
// and allowed to miss updates.
type Notifier struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a notifier for the given dashboard base URL
// (e.g. "http://kronos-webui:8000"). timeout <= 0 falls back to 5s.
func New(baseURL string, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Notifier{
		endpoint: baseURL + "/api/update-state",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Notify forwards the event envelope. Fire-and-forget: the only signal of
// failure is a log line, at most one per call.
func (n *Notifier) Notify(ev event.Event) {
	body, err := event.Marshal(ev)
	if err != nil {
		slog.Warn("Notifier: failed to encode event", slog.Any("error", err))
		return
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		slog.Warn("Notifier: failed to build request", slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		// Dashboard may simply not be running; keep this quiet.
		slog.Debug("Notifier: dashboard unreachable", slog.Any("error", err))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Notifier: dashboard rejected update",
			slog.Int("status", resp.StatusCode),
			slog.String("kind", ev.Kind().String()))
	}
}
