package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/craftdesk/craftdesk/pkg/integration"
)

// DefaultEmailBaseURL is the production endpoint of the transactional
// email provider.
const DefaultEmailBaseURL = "https://api.brevo.com"

// EmailMessage is one transactional email.
type EmailMessage struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

// EmailSender delivers transactional email through the Brevo REST API.
type EmailSender struct {
	baseURL string
	client  *http.Client
}

// NewEmailSender creates an EmailSender. An empty baseURL selects the
// production endpoint.
func NewEmailSender(baseURL string, timeout time.Duration) *EmailSender {
	if baseURL == "" {
		baseURL = DefaultEmailBaseURL
	}
	return &EmailSender{baseURL: baseURL, client: newHTTPClient(timeout)}
}

type brevoRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoSendRequest struct {
	Sender      brevoRecipient   `json:"sender"`
	To          []brevoRecipient `json:"to"`
	Subject     string           `json:"subject"`
	HTMLContent string           `json:"htmlContent"`
}

type brevoSendResponse struct {
	MessageID string `json:"messageId"`
}

// Send delivers one email with the given workspace credentials.
func (s *EmailSender) Send(ctx context.Context, creds integration.EmailCredentials, msg EmailMessage) Outcome {
	payload := brevoSendRequest{
		Sender:      brevoRecipient{Email: creds.FromEmail, Name: creds.FromName},
		To:          []brevoRecipient{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTMLBody,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return failure(fmt.Errorf("encoding email request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return failure(fmt.Errorf("building email request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", creds.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return failure(fmt.Errorf("calling email provider: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return failure(fmt.Errorf("email provider returned %d: %s", resp.StatusCode, detail))
	}

	var out brevoSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// Provider accepted the message; a malformed body only loses the ID.
		return success("")
	}
	return success(out.MessageID)
}
