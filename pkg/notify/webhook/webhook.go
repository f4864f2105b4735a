// Package webhook posts error reports to a spreadsheet-style webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/allie-chat/allieproxy/pkg/notify"
)

// payload is the webhook wire body.
type payload struct {
	Timestamp string `json:"timestamp"`
	Error     string `json:"error"`
}

// Notifier posts {timestamp, error} to a fixed URL.
type Notifier struct {
	url        string
	httpClient *http.Client
}

// New creates a webhook Notifier. A nil httpClient uses http.DefaultClient;
// callers bound each attempt through the context.
func New(url string, httpClient *http.Client) (*Notifier, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("webhook: url is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Notifier{url: url, httpClient: httpClient}, nil
}

func (n *Notifier) Name() string {
	return "webhook"
}

func (n *Notifier) Notify(ctx context.Context, report *notify.Report) error {
	if report == nil {
		return notify.ErrNilReport
	}

	body, err := json.Marshal(payload{
		Timestamp: report.ISOTimestamp(),
		Error:     report.Message,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 399 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	return nil
}
