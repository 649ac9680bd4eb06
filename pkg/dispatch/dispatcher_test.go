package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftdesk/craftdesk/pkg/channel"
	"github.com/craftdesk/craftdesk/pkg/contact"
	"github.com/craftdesk/craftdesk/pkg/conversation"
	"github.com/craftdesk/craftdesk/pkg/form"
	"github.com/craftdesk/craftdesk/pkg/integration"
	"github.com/craftdesk/craftdesk/pkg/workspace"
)

type fakeCreds struct {
	byType map[integration.Type]integration.Integration
}

func (f *fakeCreds) FindActive(_ context.Context, _ uuid.UUID, typ integration.Type) (integration.Integration, error) {
	ig, ok := f.byType[typ]
	if !ok {
		return integration.Integration{}, integration.ErrNotConfigured
	}
	return ig, nil
}

type loggedActivity struct {
	ContactID uuid.UUID
	Params    conversation.LogParams
}

type fakeActivity struct {
	logged []loggedActivity
}

func (f *fakeActivity) LogActivity(_ context.Context, _, contactID uuid.UUID, p conversation.LogParams) (conversation.Message, error) {
	f.logged = append(f.logged, loggedActivity{ContactID: contactID, Params: p})
	return conversation.Message{ID: uuid.New()}, nil
}

func (f *fakeActivity) contents() []string {
	out := make([]string, 0, len(f.logged))
	for _, l := range f.logged {
		out = append(out, l.Params.Content)
	}
	return out
}

type fakeForms struct{ forms []form.Form }

func (f *fakeForms) ListActive(context.Context, uuid.UUID) ([]form.Form, error) {
	return f.forms, nil
}

type fakeWorkspaces struct{ ws workspace.Workspace }

func (f *fakeWorkspaces) Get(context.Context, uuid.UUID) (workspace.Workspace, error) {
	return f.ws, nil
}

type fakeTokens struct {
	saved *integration.CalendarCredentials
}

func (f *fakeTokens) SaveCalendarToken(_ context.Context, _ uuid.UUID, creds integration.CalendarCredentials) error {
	f.saved = &creds
	return nil
}

type fakeEmail struct {
	sent    []channel.EmailMessage
	outcome channel.Outcome
}

func (f *fakeEmail) Send(_ context.Context, _ integration.EmailCredentials, msg channel.EmailMessage) channel.Outcome {
	f.sent = append(f.sent, msg)
	return f.outcome
}

type fakeSMS struct {
	to      []string
	bodies  []string
	outcome channel.Outcome
}

func (f *fakeSMS) Send(_ context.Context, _ integration.SMSCredentials, to, body string) channel.Outcome {
	f.to = append(f.to, to)
	f.bodies = append(f.bodies, body)
	return f.outcome
}

type fakeCalendar struct {
	events  []channel.CalendarEvent
	outcome channel.Outcome
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ integration.CalendarCredentials, ev channel.CalendarEvent, _ channel.TokenSaver) channel.Outcome {
	f.events = append(f.events, ev)
	return f.outcome
}

type fakeOps struct {
	texts   []string
	outcome channel.Outcome
}

func (f *fakeOps) Post(_ context.Context, _ integration.WebhookCredentials, text string) channel.Outcome {
	f.texts = append(f.texts, text)
	return f.outcome
}

type fixture struct {
	dispatcher *Dispatcher
	creds      *fakeCreds
	activity   *fakeActivity
	email      *fakeEmail
	sms        *fakeSMS
	calendar   *fakeCalendar
	ops        *fakeOps
	forms      *fakeForms
}

func mustIntegration(t *testing.T, typ integration.Type, creds any) integration.Integration {
	t.Helper()
	raw, err := json.Marshal(creds)
	if err != nil {
		t.Fatalf("encoding credentials: %v", err)
	}
	return integration.Integration{ID: uuid.New(), Type: typ, Credentials: raw, IsActive: true}
}

func newFixture(t *testing.T, configured ...integration.Type) *fixture {
	t.Helper()
	byType := make(map[integration.Type]integration.Integration)
	for _, typ := range configured {
		switch typ {
		case integration.TypeEmail:
			byType[typ] = mustIntegration(t, typ, integration.EmailCredentials{APIKey: "k", FromEmail: "hi@ws.test"})
		case integration.TypeSMS:
			byType[typ] = mustIntegration(t, typ, integration.SMSCredentials{AccountSID: "AC1", AuthToken: "t", FromNumber: "+15550000000"})
		case integration.TypeCalendar:
			byType[typ] = mustIntegration(t, typ, integration.CalendarCredentials{AccessToken: "tok", CalendarID: "primary"})
		case integration.TypeWebhook:
			byType[typ] = mustIntegration(t, typ, integration.WebhookCredentials{BotToken: "xoxb", Channel: "#ops"})
		}
	}

	f := &fixture{
		creds:    &fakeCreds{byType: byType},
		activity: &fakeActivity{},
		email:    &fakeEmail{outcome: channel.Outcome{Success: true, ProviderMessageID: "em-1"}},
		sms:      &fakeSMS{outcome: channel.Outcome{Success: true, ProviderMessageID: "sm-1"}},
		calendar: &fakeCalendar{outcome: channel.Outcome{Success: true, ProviderMessageID: "evt-1"}},
		ops:      &fakeOps{outcome: channel.Outcome{Success: true, ProviderMessageID: "1.2"}},
		forms:    &fakeForms{},
	}
	f.dispatcher = NewDispatcher(Config{
		Credentials:   f.creds,
		Tokens:        &fakeTokens{},
		Activity:      f.activity,
		Forms:         f.forms,
		Workspaces:    &fakeWorkspaces{ws: workspace.Workspace{Name: "Shear Genius"}},
		Email:         f.email,
		SMS:           f.sms,
		Calendar:      f.calendar,
		Ops:           f.ops,
		PublicBaseURL: "https://app.craftdesk.test",
		Logger:        slog.New(slog.DiscardHandler),
	})
	return f
}

func testContact(phone string) contact.Contact {
	return contact.Contact{ID: uuid.New(), Name: "Jo Moss", Email: "jo@example.test", Phone: phone}
}

func bookingEvent(kind Kind, c contact.Contact) Event {
	start := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	return Event{
		Kind:          kind,
		WorkspaceID:   uuid.New(),
		WorkspaceName: "Shear Genius",
		Contact:       c,
		Booking: &BookingInfo{
			BookingID:   uuid.New(),
			ServiceName: "Haircut",
			StartTime:   start,
			EndTime:     start.Add(30 * time.Minute),
			Status:      "pending",
		},
	}
}

func TestBookingCreatedAllChannels(t *testing.T) {
	f := newFixture(t, integration.TypeEmail, integration.TypeSMS, integration.TypeCalendar, integration.TypeWebhook)
	ev := bookingEvent(KindBookingCreated, testContact("+15550002222"))
	f.forms.forms = []form.Form{{Title: "Intake", Slug: "intake"}}

	res := f.dispatcher.Dispatch(context.Background(), ev)

	for _, ch := range []string{ChannelEmail, ChannelSMS, ChannelCalendar, ChannelWebhook} {
		if !res.Sent(ch) {
			t.Errorf("channel %s not sent: %+v", ch, res.Attempts)
		}
	}
	if len(f.email.sent) != 1 {
		t.Fatalf("email sends = %d, want 1", len(f.email.sent))
	}
	if !strings.Contains(f.email.sent[0].HTMLBody, "https://app.craftdesk.test/forms/intake") {
		t.Errorf("confirmation email missing form link: %s", f.email.sent[0].HTMLBody)
	}
	if len(f.calendar.events) != 1 || f.calendar.events[0].AttendeeEmail != "jo@example.test" {
		t.Errorf("calendar events = %+v", f.calendar.events)
	}
	if len(f.ops.texts) != 1 || !strings.Contains(f.ops.texts[0], "Haircut") {
		t.Errorf("ops texts = %q", f.ops.texts)
	}

	got := f.activity.contents()
	want := []string{"Booking confirmation email sent", "Booking confirmation SMS sent"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("activity log = %q, want %q", got, want)
	}
}

func TestBookingCreatedNothingConfigured(t *testing.T) {
	f := newFixture(t)
	ev := bookingEvent(KindBookingCreated, testContact("+15550002222"))

	res := f.dispatcher.Dispatch(context.Background(), ev)

	for _, a := range res.Attempts {
		if !a.Skipped || a.SkipReason != SkipNotConfigured {
			t.Errorf("attempt %+v, want skipped as not configured", a)
		}
	}
	if len(f.email.sent)+len(f.sms.to)+len(f.calendar.events)+len(f.ops.texts) != 0 {
		t.Error("providers were called despite no integrations")
	}
}

func TestBookingCreatedNoPhoneSkipsSMS(t *testing.T) {
	f := newFixture(t, integration.TypeEmail, integration.TypeSMS)
	ev := bookingEvent(KindBookingCreated, testContact(""))

	res := f.dispatcher.Dispatch(context.Background(), ev)

	if res.Sent(ChannelSMS) || res.Failed(ChannelSMS) {
		t.Errorf("sms attempt = %+v, want skipped", res.Attempts)
	}
	if len(f.sms.to) != 0 {
		t.Errorf("sms provider called %d times, want 0", len(f.sms.to))
	}
	if !res.Sent(ChannelEmail) {
		t.Error("email should still send without a phone number")
	}
}

func TestEmailFailureLoggedToTimeline(t *testing.T) {
	f := newFixture(t, integration.TypeEmail)
	f.email.outcome = channel.Outcome{Err: "email provider returned 500"}
	ev := bookingEvent(KindBookingCreated, testContact(""))

	res := f.dispatcher.Dispatch(context.Background(), ev)

	if !res.Failed(ChannelEmail) {
		t.Fatalf("email attempt = %+v, want failure", res.Attempts)
	}
	got := f.activity.contents()
	if len(got) != 1 || !strings.Contains(got[0], "Email send failed") {
		t.Errorf("activity log = %q, want failure entry", got)
	}
	if f.activity.logged[0].Params.Channel != conversation.ChannelSystem {
		t.Errorf("failure logged on channel %s, want system", f.activity.logged[0].Params.Channel)
	}
}

func TestStatusChangeAlwaysLogged(t *testing.T) {
	f := newFixture(t, integration.TypeEmail)
	ev := bookingEvent(KindBookingStatusChanged, testContact(""))
	ev.Booking.Status = "confirmed"
	ev.SendNotification = false

	res := f.dispatcher.Dispatch(context.Background(), ev)

	got := f.activity.contents()
	if len(got) != 1 || got[0] != "Booking status updated to: confirmed" {
		t.Errorf("activity log = %q", got)
	}
	for _, a := range res.Attempts {
		if !a.Skipped || a.SkipReason != SkipDisabled {
			t.Errorf("attempt %+v, want skipped as disabled", a)
		}
	}
	if len(f.email.sent) != 0 {
		t.Error("email sent despite notifications disabled")
	}
}

func TestStatusChangeNotification(t *testing.T) {
	f := newFixture(t, integration.TypeEmail, integration.TypeSMS)
	ev := bookingEvent(KindBookingStatusChanged, testContact("+15550002222"))
	ev.Booking.Status = "cancelled"
	ev.SendNotification = true

	res := f.dispatcher.Dispatch(context.Background(), ev)

	if !res.Sent(ChannelEmail) {
		t.Fatalf("attempts = %+v", res.Attempts)
	}
	if !strings.Contains(f.email.sent[0].Subject, "cancelled") {
		t.Errorf("subject = %q", f.email.sent[0].Subject)
	}
	got := f.activity.contents()
	if len(got) != 2 {
		t.Fatalf("activity entries = %q, want status + email", got)
	}
	if !strings.HasPrefix(got[1], "Status notification email sent: ") {
		t.Errorf("email entry = %q", got[1])
	}
}

// Status changes notify over email only, even when the customer has a
// phone number and the workspace has SMS configured.
func TestStatusChangeDoesNotSMS(t *testing.T) {
	f := newFixture(t, integration.TypeEmail, integration.TypeSMS)
	ev := bookingEvent(KindBookingStatusChanged, testContact("+15550002222"))
	ev.Booking.Status = "confirmed"
	ev.SendNotification = true

	res := f.dispatcher.Dispatch(context.Background(), ev)

	if len(f.sms.to) != 0 {
		t.Errorf("sms provider called %d times, want 0", len(f.sms.to))
	}
	for _, a := range res.Attempts {
		if a.Channel == ChannelSMS {
			t.Errorf("unexpected sms attempt: %+v", a)
		}
	}
}

func TestStatusChangeNoTemplateForPending(t *testing.T) {
	f := newFixture(t, integration.TypeEmail)
	ev := bookingEvent(KindBookingStatusChanged, testContact(""))
	ev.Booking.Status = "pending"
	ev.SendNotification = true

	res := f.dispatcher.Dispatch(context.Background(), ev)

	for _, a := range res.Attempts {
		if !a.Skipped || a.SkipReason != SkipNoTemplate {
			t.Errorf("attempt %+v, want skipped for missing template", a)
		}
	}
	if len(f.email.sent) != 0 {
		t.Error("email sent for a status with no customer template")
	}
}

func TestContactFormSubmission(t *testing.T) {
	f := newFixture(t, integration.TypeEmail)
	ev := Event{
		Kind:          KindContactFormSubmitted,
		WorkspaceID:   uuid.New(),
		WorkspaceName: "Shear Genius",
		Contact:       testContact(""),
		Form:          &FormSubmission{Message: "Do you take walk-ins?"},
	}

	res := f.dispatcher.Dispatch(context.Background(), ev)

	if !res.Sent(ChannelEmail) {
		t.Fatalf("attempts = %+v", res.Attempts)
	}
	got := f.activity.logged
	if len(got) != 2 {
		t.Fatalf("activity entries = %d, want submission + auto-reply", len(got))
	}
	if !got[0].Params.IsFromCustomer || got[0].Params.Content != "Do you take walk-ins?" {
		t.Errorf("first entry = %+v, want customer submission", got[0].Params)
	}
	if got[0].Params.IsRead {
		t.Error("customer submission must land unread")
	}
	if got[1].Params.Content != "Automated welcome email sent" || !got[1].Params.IsAutomated {
		t.Errorf("second entry = %+v", got[1].Params)
	}
	if !got[1].Params.IsRead {
		t.Error("automated entry must land already read")
	}
}

func TestContactFormNotifiesOps(t *testing.T) {
	f := newFixture(t, integration.TypeEmail, integration.TypeWebhook)
	ev := Event{
		Kind:          KindContactFormSubmitted,
		WorkspaceID:   uuid.New(),
		WorkspaceName: "Shear Genius",
		Contact:       testContact(""),
		Form:          &FormSubmission{Message: "Do you take walk-ins?"},
	}

	res := f.dispatcher.Dispatch(context.Background(), ev)

	if !res.Sent(ChannelWebhook) {
		t.Fatalf("attempts = %+v", res.Attempts)
	}
	if len(f.ops.texts) != 1 || !strings.Contains(f.ops.texts[0], "Jo Moss") {
		t.Errorf("ops texts = %q", f.ops.texts)
	}
}

func TestContactFormWithoutEmailSkipsAutoReply(t *testing.T) {
	f := newFixture(t, integration.TypeEmail, integration.TypeWebhook)
	c := testContact("+15550002222")
	c.Email = ""
	ev := Event{
		Kind:          KindContactFormSubmitted,
		WorkspaceID:   uuid.New(),
		WorkspaceName: "Shear Genius",
		Contact:       c,
		Form:          &FormSubmission{Message: "Call me back please"},
	}

	res := f.dispatcher.Dispatch(context.Background(), ev)

	if res.Sent(ChannelEmail) || res.Failed(ChannelEmail) {
		t.Fatalf("attempts = %+v, want email skipped", res.Attempts)
	}
	for _, a := range res.Attempts {
		if a.Channel == ChannelEmail && a.SkipReason != SkipNoEmail {
			t.Errorf("skip reason = %q, want %q", a.SkipReason, SkipNoEmail)
		}
	}
	if len(f.email.sent) != 0 {
		t.Errorf("email provider called %d times for a contact without an address", len(f.email.sent))
	}
	if !res.Sent(ChannelWebhook) {
		t.Error("ops heads-up should not depend on the contact's email")
	}
	got := f.activity.contents()
	if len(got) != 1 || got[0] != "Call me back please" {
		t.Errorf("activity log = %q, want the submission recorded", got)
	}
}

func TestStaffInviteRequiresEmailIntegration(t *testing.T) {
	f := newFixture(t)
	ev := Event{
		Kind:          KindStaffInvited,
		WorkspaceID:   uuid.New(),
		WorkspaceName: "Shear Genius",
		Invite: &StaffInvite{
			Email:        "new@ws.test",
			Name:         "Sam Reed",
			TempPassword: "temp-pass-1",
			Permissions:  []string{"bookings", "inbox"},
		},
	}

	res := f.dispatcher.Dispatch(context.Background(), ev)

	if len(res.Attempts) != 1 {
		t.Fatalf("attempts = %+v", res.Attempts)
	}
	a := res.Attempts[0]
	if a.Skipped || a.Outcome.Success {
		t.Errorf("attempt = %+v, want hard failure when email is unconfigured", a)
	}
	if !strings.Contains(a.Outcome.Err, "not configured") {
		t.Errorf("Err = %q", a.Outcome.Err)
	}
}

func TestStaffInviteSendsCredentials(t *testing.T) {
	f := newFixture(t, integration.TypeEmail)
	ev := Event{
		Kind:          KindStaffInvited,
		WorkspaceID:   uuid.New(),
		WorkspaceName: "Shear Genius",
		Invite: &StaffInvite{
			Email:        "new@ws.test",
			Name:         "Sam Reed",
			TempPassword: "temp-pass-1",
			Permissions:  []string{"bookings", "inbox"},
		},
	}

	res := f.dispatcher.Dispatch(context.Background(), ev)

	if !res.Sent(ChannelEmail) {
		t.Fatalf("attempts = %+v", res.Attempts)
	}
	body := f.email.sent[0].HTMLBody
	if !strings.Contains(body, "temp-pass-1") {
		t.Error("invite email missing temporary password")
	}
	if !strings.Contains(body, "bookings, inbox") {
		t.Error("invite email missing permission list")
	}
	if len(f.activity.logged) != 0 {
		t.Error("staff invites must not appear on a customer timeline")
	}
}

func TestReminderDispatch(t *testing.T) {
	f := newFixture(t, integration.TypeEmail, integration.TypeSMS)
	ev := bookingEvent(KindBookingReminder, testContact("+15550002222"))
	ev.Booking.Status = "confirmed"

	res := f.dispatcher.Dispatch(context.Background(), ev)

	if !res.Sent(ChannelEmail) {
		t.Fatalf("attempts = %+v", res.Attempts)
	}
	if !strings.Contains(f.email.sent[0].Subject, "Reminder") {
		t.Errorf("subject = %q", f.email.sent[0].Subject)
	}
	if len(f.sms.to) != 0 {
		t.Errorf("sms provider called %d times, want reminders over email only", len(f.sms.to))
	}
	got := f.activity.contents()
	if len(got) != 1 || got[0] != "Reminder email sent" {
		t.Errorf("activity log = %q", got)
	}
}

func TestReplyOverEmail(t *testing.T) {
	f := newFixture(t, integration.TypeEmail)

	id, err := f.dispatcher.Reply(context.Background(), uuid.New(), conversation.ChannelEmail, testContact(""), "See you at 2pm")
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if id != "em-1" {
		t.Errorf("provider id = %q", id)
	}
	if !strings.Contains(f.email.sent[0].Subject, "Shear Genius") {
		t.Errorf("subject = %q, want workspace name", f.email.sent[0].Subject)
	}
}

func TestReplyUnconfiguredChannel(t *testing.T) {
	f := newFixture(t)

	_, err := f.dispatcher.Reply(context.Background(), uuid.New(), conversation.ChannelSMS, testContact("+15550002222"), "hi")
	if err == nil {
		t.Fatal("Reply() = nil error, want not configured")
	}
}
