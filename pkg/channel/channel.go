// Package channel talks to the external notification providers. Each
// sender wraps one provider's REST API and reports an Outcome instead
// of returning an error: a provider being down must never fail the
// request that triggered the notification.
package channel

import (
	"net/http"
	"time"
)

// Outcome is the result of one delivery attempt. Err is empty on
// success; on failure it holds a short description safe to log.
type Outcome struct {
	Success           bool   `json:"success"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Err               string `json:"error,omitempty"`
}

func success(providerMessageID string) Outcome {
	return Outcome{Success: true, ProviderMessageID: providerMessageID}
}

func failure(err error) Outcome {
	return Outcome{Err: err.Error()}
}

// newHTTPClient returns the client all senders share their settings
// from. Provider calls are bounded so a slow provider cannot hold a
// request handler open.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
