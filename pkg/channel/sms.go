package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/craftdesk/craftdesk/pkg/integration"
)

// DefaultSMSBaseURL is the production endpoint of the SMS provider.
const DefaultSMSBaseURL = "https://api.twilio.com"

// SMSSender delivers text messages through the Twilio REST API.
type SMSSender struct {
	baseURL string
	client  *http.Client
}

// NewSMSSender creates an SMSSender. An empty baseURL selects the
// production endpoint.
func NewSMSSender(baseURL string, timeout time.Duration) *SMSSender {
	if baseURL == "" {
		baseURL = DefaultSMSBaseURL
	}
	return &SMSSender{baseURL: baseURL, client: newHTTPClient(timeout)}
}

type twilioSendResponse struct {
	SID string `json:"sid"`
}

type twilioErrorResponse struct {
	Message string `json:"message"`
}

// Send delivers one SMS with the given workspace credentials.
func (s *SMSSender) Send(ctx context.Context, creds integration.SMSCredentials, to, body string) Outcome {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", creds.FromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, creds.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return failure(fmt.Errorf("building sms request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(creds.AccountSID, creds.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return failure(fmt.Errorf("calling sms provider: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var apiErr twilioErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return failure(fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, apiErr.Message))
		}
		return failure(fmt.Errorf("sms provider returned %d", resp.StatusCode))
	}

	var out twilioSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return success("")
	}
	return success(out.SID)
}
