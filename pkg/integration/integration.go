package integration

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies a notification channel an integration provides
// credentials for.
type Type string

const (
	TypeEmail    Type = "email"
	TypeSMS      Type = "sms"
	TypeCalendar Type = "calendar"
	TypeWebhook  Type = "webhook"
)

// Valid reports whether t is a known integration type.
func (t Type) Valid() bool {
	switch t {
	case TypeEmail, TypeSMS, TypeCalendar, TypeWebhook:
		return true
	}
	return false
}

// ErrNotConfigured is returned when a workspace has no active
// integration of the requested type. Callers treat it as "channel
// disabled", not as a failure.
var ErrNotConfigured = errors.New("integration not configured")

// Integration is a workspace-scoped credential record for one channel.
// Credentials holds the raw JSON blob; decode into a typed credential
// struct with the Email/SMS/Calendar/Webhook accessors.
type Integration struct {
	ID          uuid.UUID       `json:"id"`
	WorkspaceID uuid.UUID       `json:"workspace_id"`
	Type        Type            `json:"type"`
	Provider    string          `json:"provider"`
	Credentials json.RawMessage `json:"-"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DefaultProvider returns the provider label for a channel. One
// provider per channel today; the label is stored so the data keeps
// making sense if that changes.
func DefaultProvider(t Type) string {
	switch t {
	case TypeEmail:
		return "brevo"
	case TypeSMS:
		return "twilio"
	case TypeCalendar:
		return "google_calendar"
	case TypeWebhook:
		return "slack"
	}
	return ""
}

// EmailCredentials configures the transactional email provider.
type EmailCredentials struct {
	APIKey    string `json:"api_key"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
}

func (c EmailCredentials) Validate() error {
	if c.APIKey == "" {
		return errors.New("api_key is required")
	}
	if c.FromEmail == "" {
		return errors.New("from_email is required")
	}
	return nil
}

// SMSCredentials configures the SMS provider.
type SMSCredentials struct {
	AccountSID string `json:"account_sid"`
	AuthToken  string `json:"auth_token"`
	FromNumber string `json:"from_number"`
}

func (c SMSCredentials) Validate() error {
	if c.AccountSID == "" {
		return errors.New("account_sid is required")
	}
	if c.AuthToken == "" {
		return errors.New("auth_token is required")
	}
	if c.FromNumber == "" {
		return errors.New("from_number is required")
	}
	return nil
}

// CalendarCredentials holds a stored OAuth grant for the calendar
// provider. Expiry may be zero when the provider did not report one;
// such grants are treated as expired and refreshed before first use.
type CalendarCredentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenURL     string    `json:"token_url"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Scopes       []string  `json:"scopes"`
	Expiry       time.Time `json:"expiry,omitzero"`
	CalendarID   string    `json:"calendar_id"`
}

func (c CalendarCredentials) Validate() error {
	if c.AccessToken == "" && c.RefreshToken == "" {
		return errors.New("access_token or refresh_token is required")
	}
	if c.RefreshToken != "" {
		if c.TokenURL == "" {
			return errors.New("token_url is required with refresh_token")
		}
		if c.ClientID == "" || c.ClientSecret == "" {
			return errors.New("client_id and client_secret are required with refresh_token")
		}
	}
	return nil
}

// WebhookCredentials configures the ops chat channel.
type WebhookCredentials struct {
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel"`
}

func (c WebhookCredentials) Validate() error {
	if c.BotToken == "" {
		return errors.New("bot_token is required")
	}
	if c.Channel == "" {
		return errors.New("channel is required")
	}
	return nil
}

// Email decodes the integration's credentials as EmailCredentials.
func (i Integration) Email() (EmailCredentials, error) {
	var c EmailCredentials
	if err := decodeCredentials(i, TypeEmail, &c); err != nil {
		return EmailCredentials{}, err
	}
	return c, nil
}

// SMS decodes the integration's credentials as SMSCredentials.
func (i Integration) SMS() (SMSCredentials, error) {
	var c SMSCredentials
	if err := decodeCredentials(i, TypeSMS, &c); err != nil {
		return SMSCredentials{}, err
	}
	return c, nil
}

// Calendar decodes the integration's credentials as CalendarCredentials.
func (i Integration) Calendar() (CalendarCredentials, error) {
	var c CalendarCredentials
	if err := decodeCredentials(i, TypeCalendar, &c); err != nil {
		return CalendarCredentials{}, err
	}
	if c.CalendarID == "" {
		c.CalendarID = "primary"
	}
	return c, nil
}

// Webhook decodes the integration's credentials as WebhookCredentials.
func (i Integration) Webhook() (WebhookCredentials, error) {
	var c WebhookCredentials
	if err := decodeCredentials(i, TypeWebhook, &c); err != nil {
		return WebhookCredentials{}, err
	}
	return c, nil
}

func decodeCredentials(i Integration, want Type, dst any) error {
	if i.Type != want {
		return fmt.Errorf("integration is %s, not %s", i.Type, want)
	}
	if err := json.Unmarshal(i.Credentials, dst); err != nil {
		return fmt.Errorf("decoding %s credentials: %w", want, err)
	}
	return nil
}

// Status is the per-type configuration summary shown on the settings
// page. Credentials are never echoed back.
type Status struct {
	Type       Type       `json:"type"`
	Configured bool       `json:"configured"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}
