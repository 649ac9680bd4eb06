package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/craftdesk/craftdesk/pkg/integration"
)

// DefaultCalendarBaseURL is the production endpoint of the calendar
// provider.
const DefaultCalendarBaseURL = "https://www.googleapis.com"

// TokenSaver persists refreshed OAuth token material so the next
// delivery does not redo the refresh. A nil saver skips persistence.
type TokenSaver func(ctx context.Context, creds integration.CalendarCredentials) error

// CalendarEvent is one appointment to place on the workspace calendar.
type CalendarEvent struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	TimeZone      string
	AttendeeEmail string
}

// CalendarSender creates events through the Google Calendar v3 API
// using a workspace's stored OAuth grant.
type CalendarSender struct {
	baseURL string
	client  *http.Client
}

// NewCalendarSender creates a CalendarSender. An empty baseURL selects
// the production endpoint.
func NewCalendarSender(baseURL string, timeout time.Duration) *CalendarSender {
	if baseURL == "" {
		baseURL = DefaultCalendarBaseURL
	}
	return &CalendarSender{baseURL: baseURL, client: newHTTPClient(timeout)}
}

type calendarEventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type calendarAttendee struct {
	Email string `json:"email"`
}

type calendarInsertRequest struct {
	Summary     string             `json:"summary"`
	Description string             `json:"description,omitempty"`
	Start       calendarEventTime  `json:"start"`
	End         calendarEventTime  `json:"end"`
	Attendees   []calendarAttendee `json:"attendees,omitempty"`
}

type calendarInsertResponse struct {
	ID string `json:"id"`
}

// CreateEvent inserts one event on the calendar named by the
// credentials. Expired access tokens are refreshed transparently; the
// refreshed token is handed to save for persistence.
func (s *CalendarSender) CreateEvent(ctx context.Context, creds integration.CalendarCredentials, event CalendarEvent, save TokenSaver) Outcome {
	accessToken, refreshed, err := s.freshToken(ctx, creds)
	if err != nil {
		return failure(err)
	}
	if refreshed != nil && save != nil {
		// Persistence failure is not a delivery failure; the refresh
		// just repeats next time.
		_ = save(ctx, *refreshed)
	}

	tz := event.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	payload := calendarInsertRequest{
		Summary:     event.Summary,
		Description: event.Description,
		Start:       calendarEventTime{DateTime: event.Start.Format(time.RFC3339), TimeZone: tz},
		End:         calendarEventTime{DateTime: event.End.Format(time.RFC3339), TimeZone: tz},
	}
	if event.AttendeeEmail != "" {
		payload.Attendees = []calendarAttendee{{Email: event.AttendeeEmail}}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return failure(fmt.Errorf("encoding calendar event: %w", err))
	}

	endpoint := fmt.Sprintf("%s/calendar/v3/calendars/%s/events", s.baseURL, creds.CalendarID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failure(fmt.Errorf("building calendar request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return failure(fmt.Errorf("calling calendar provider: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return failure(fmt.Errorf("calendar provider returned %d: %s", resp.StatusCode, detail))
	}

	var out calendarInsertResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return success("")
	}
	return success(out.ID)
}

// freshToken returns a usable access token, refreshing through the
// stored grant when the current one is expired. The second return is
// non-nil only when a refresh produced new token material.
func (s *CalendarSender) freshToken(ctx context.Context, creds integration.CalendarCredentials) (string, *integration.CalendarCredentials, error) {
	current := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.Expiry,
	}
	if current.Expiry.IsZero() {
		// oauth2 treats a zero expiry as never-expiring; a grant
		// stored without one cannot be trusted, so force a refresh.
		current.Expiry = time.Now().Add(-time.Minute)
	}
	if current.Valid() || creds.RefreshToken == "" {
		return creds.AccessToken, nil, nil
	}

	cfg := oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: creds.TokenURL},
		Scopes:       creds.Scopes,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	tok, err := cfg.TokenSource(ctx, current).Token()
	if err != nil {
		return "", nil, fmt.Errorf("refreshing calendar token: %w", err)
	}
	if tok.AccessToken == creds.AccessToken {
		return tok.AccessToken, nil, nil
	}

	updated := creds
	updated.AccessToken = tok.AccessToken
	updated.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		updated.RefreshToken = tok.RefreshToken
	}
	return tok.AccessToken, &updated, nil
}
