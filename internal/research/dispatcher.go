package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DispatchPayload is the job description handed to the external worker.
type DispatchPayload struct {
	ExecutionID string   `json:"execution_id"`
	UserID      string   `json:"user_id"`
	TrendID     string   `json:"trend_id"`
	Title       string   `json:"title"`
	Categories  []string `json:"categories"`
}

// Dispatcher hands a research job to the external worker. Implementations
// must be safe for concurrent use and bounded in time.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload DispatchPayload) error
}

// WebhookDispatcher posts jobs to an n8n-style automation webhook.
type WebhookDispatcher struct {
	url        string
	secret     string
	httpClient *http.Client
}

func NewWebhookDispatcher(url, secret string, timeout time.Duration) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookDispatcher{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (d *WebhookDispatcher) Dispatch(ctx context.Context, payload DispatchPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &DispatchError{Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return &DispatchError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-N8N-SECRET", d.secret)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &DispatchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DispatchError{Err: fmt.Errorf("worker returned status %d: %s", resp.StatusCode, string(msg))}
	}
	return nil
}
