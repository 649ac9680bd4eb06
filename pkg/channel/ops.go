package channel

import (
	"context"
	"fmt"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/craftdesk/craftdesk/pkg/integration"
)

// OpsSender posts staff heads-up notes to the workspace's Slack
// channel. Unlike the customer-facing channels, credentials vary per
// workspace, so the Slack client is built per call.
type OpsSender struct {
	apiURL  string
	timeout time.Duration
}

// NewOpsSender creates an OpsSender. apiURL overrides the Slack API
// endpoint; empty selects production.
func NewOpsSender(apiURL string, timeout time.Duration) *OpsSender {
	return &OpsSender{apiURL: apiURL, timeout: timeout}
}

// Post sends one plain-text message to the channel named by the
// credentials and returns the message timestamp as provider ID.
func (s *OpsSender) Post(ctx context.Context, creds integration.WebhookCredentials, text string) Outcome {
	opts := []goslack.Option{
		goslack.OptionHTTPClient(newHTTPClient(s.timeout)),
	}
	if s.apiURL != "" {
		opts = append(opts, goslack.OptionAPIURL(s.apiURL))
	}
	client := goslack.New(creds.BotToken, opts...)

	_, ts, err := client.PostMessageContext(ctx, creds.Channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return failure(fmt.Errorf("posting to slack: %w", err))
	}
	return success(ts)
}
