package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// StatusUpdated is the status reported to the backend after a speed write.
const StatusUpdated = "Speed updated successfully"

// Backend reports machine status changes to the management backend.
type Backend struct {
	baseURL    string
	machineID  string
	httpClient *http.Client
	dispatcher *Dispatcher
	logger     *log.Logger
}

// NewBackend creates a backend notifier. An empty baseURL disables it.
func NewBackend(baseURL, machineID string, dispatcher *Dispatcher, logger *log.Logger) *Backend {
	return &Backend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		machineID:  machineID,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Enabled reports whether a backend URL is configured.
func (b *Backend) Enabled() bool {
	return b.baseURL != "" && b.machineID != ""
}

// NotifyStatus sends status in the background. Failures are only logged.
func (b *Backend) NotifyStatus(status string) {
	if !b.Enabled() {
		return
	}
	b.dispatcher.Submit("backend status", func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.httpClient.Timeout)
		defer cancel()
		if err := b.SendStatus(ctx, status); err != nil {
			b.logger.Printf("Failed to notify backend: %v", err)
		}
	})
}

// SendStatus patches the machine resource with status and waits for the reply.
func (b *Backend) SendStatus(ctx context.Context, status string) error {
	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/machines/%s", b.baseURL, b.machineID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("patch %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("patch %s: unexpected status %d", url, resp.StatusCode)
	}
	b.logger.Printf("Backend notified for machine %s: %s", b.machineID, status)
	return nil
}
