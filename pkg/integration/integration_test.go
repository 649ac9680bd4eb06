package integration

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEmailCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   EmailCredentials
		wantErr string
	}{
		{
			name:  "valid",
			creds: EmailCredentials{APIKey: "xkeysib-abc", FromEmail: "hello@acme.test", FromName: "Acme"},
		},
		{
			name:    "missing api key",
			creds:   EmailCredentials{FromEmail: "hello@acme.test"},
			wantErr: "api_key",
		},
		{
			name:    "missing from email",
			creds:   EmailCredentials{APIKey: "xkeysib-abc"},
			wantErr: "from_email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			checkValidateErr(t, err, tt.wantErr)
		})
	}
}

func TestSMSCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   SMSCredentials
		wantErr string
	}{
		{
			name:  "valid",
			creds: SMSCredentials{AccountSID: "AC123", AuthToken: "tok", FromNumber: "+15550001111"},
		},
		{
			name:    "missing sid",
			creds:   SMSCredentials{AuthToken: "tok", FromNumber: "+15550001111"},
			wantErr: "account_sid",
		},
		{
			name:    "missing from number",
			creds:   SMSCredentials{AccountSID: "AC123", AuthToken: "tok"},
			wantErr: "from_number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			checkValidateErr(t, err, tt.wantErr)
		})
	}
}

func TestCalendarCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   CalendarCredentials
		wantErr string
	}{
		{
			name:  "access token only",
			creds: CalendarCredentials{AccessToken: "ya29.abc"},
		},
		{
			name: "refresh token with client",
			creds: CalendarCredentials{
				RefreshToken: "1//refresh",
				TokenURL:     "https://oauth2.googleapis.com/token",
				ClientID:     "client",
				ClientSecret: "secret",
			},
		},
		{
			name:    "empty",
			creds:   CalendarCredentials{},
			wantErr: "access_token or refresh_token",
		},
		{
			name:    "refresh token without token url",
			creds:   CalendarCredentials{RefreshToken: "1//refresh", ClientID: "c", ClientSecret: "s"},
			wantErr: "token_url",
		},
		{
			name:    "refresh token without client",
			creds:   CalendarCredentials{RefreshToken: "1//refresh", TokenURL: "https://oauth2.googleapis.com/token"},
			wantErr: "client_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			checkValidateErr(t, err, tt.wantErr)
		})
	}
}

func TestWebhookCredentialsValidate(t *testing.T) {
	if err := (WebhookCredentials{BotToken: "xoxb-1", Channel: "#ops"}).Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if err := (WebhookCredentials{Channel: "#ops"}).Validate(); err == nil {
		t.Fatal("Validate() with missing bot_token = nil, want error")
	}
}

func TestIntegrationCredentialDecoding(t *testing.T) {
	raw, _ := json.Marshal(EmailCredentials{APIKey: "k", FromEmail: "a@b.test", FromName: "A"})
	i := Integration{Type: TypeEmail, Credentials: raw}

	creds, err := i.Email()
	if err != nil {
		t.Fatalf("Email() error = %v", err)
	}
	if creds.FromEmail != "a@b.test" {
		t.Errorf("FromEmail = %q, want %q", creds.FromEmail, "a@b.test")
	}

	// Decoding as the wrong type is rejected.
	if _, err := i.SMS(); err == nil {
		t.Error("SMS() on email integration = nil error, want type mismatch")
	}
}

func TestCalendarDefaultsToPrimary(t *testing.T) {
	raw, _ := json.Marshal(CalendarCredentials{AccessToken: "ya29.abc"})
	i := Integration{Type: TypeCalendar, Credentials: raw}

	creds, err := i.Calendar()
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	if creds.CalendarID != "primary" {
		t.Errorf("CalendarID = %q, want %q", creds.CalendarID, "primary")
	}
}

func TestTypeValid(t *testing.T) {
	for _, typ := range []Type{TypeEmail, TypeSMS, TypeCalendar, TypeWebhook} {
		if !typ.Valid() {
			t.Errorf("Type(%q).Valid() = false, want true", typ)
		}
	}
	if Type("carrier_pigeon").Valid() {
		t.Error(`Type("carrier_pigeon").Valid() = true, want false`)
	}
}

func checkValidateErr(t *testing.T, err error, wantErr string) {
	t.Helper()
	if wantErr == "" {
		if err != nil {
			t.Fatalf("Validate() = %v, want nil", err)
		}
		return
	}
	if err == nil {
		t.Fatalf("Validate() = nil, want error containing %q", wantErr)
	}
	if !strings.Contains(err.Error(), wantErr) {
		t.Fatalf("Validate() = %v, want error containing %q", err, wantErr)
	}
}
