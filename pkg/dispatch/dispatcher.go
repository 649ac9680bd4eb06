package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/craftdesk/craftdesk/internal/telemetry"
	"github.com/craftdesk/craftdesk/pkg/channel"
	"github.com/craftdesk/craftdesk/pkg/contact"
	"github.com/craftdesk/craftdesk/pkg/conversation"
	"github.com/craftdesk/craftdesk/pkg/integration"
)

// Config wires a Dispatcher's collaborators.
type Config struct {
	Credentials CredentialSource
	Tokens      TokenStore
	Activity    ActivityLogger
	Forms       FormLister
	Workspaces  WorkspaceSource

	Email    EmailSender
	SMS      SMSSender
	Calendar CalendarSender
	Ops      OpsSender

	PublicBaseURL string
	Logger        *slog.Logger
}

// Dispatcher routes domain events to the channels a workspace has
// configured.
type Dispatcher struct {
	cfg Config
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{cfg: cfg}
}

// Dispatch fans an event out to its channels. It always returns a
// Result, never an error: delivery problems are captured per attempt
// and the caller's own transaction is unaffected.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Result {
	var res Result
	switch ev.Kind {
	case KindContactFormSubmitted:
		res = d.dispatchContactForm(ctx, ev)
	case KindBookingCreated:
		res = d.dispatchBookingCreated(ctx, ev)
	case KindBookingStatusChanged:
		res = d.dispatchStatusChanged(ctx, ev)
	case KindStaffInvited:
		res = d.dispatchStaffInvite(ctx, ev)
	case KindBookingReminder:
		res = d.dispatchReminder(ctx, ev)
	default:
		d.cfg.Logger.Error("unknown event kind", "kind", ev.Kind)
	}

	for _, a := range res.Attempts {
		d.count(a)
	}
	return res
}

func (d *Dispatcher) count(a Attempt) {
	outcome := "sent"
	switch {
	case a.Skipped:
		outcome = "skipped"
	case !a.Outcome.Success:
		outcome = "failed"
	}
	telemetry.DispatchAttemptsTotal.WithLabelValues(a.Channel, outcome).Inc()
}

func (d *Dispatcher) dispatchContactForm(ctx context.Context, ev Event) Result {
	// The submission itself goes on the timeline first so the thread
	// reads in order even when the auto-reply fails.
	if ev.Form != nil {
		d.log(ctx, ev, conversation.LogParams{
			Channel:        conversation.ChannelEmail,
			Content:        ev.Form.Message,
			IsFromCustomer: true,
		})
	}

	subject, html := autoReplyEmail(ev.WorkspaceName, ev.Contact.Name)
	email := d.attemptEmail(ctx, ev, subject, html)
	d.logEmailOutcome(ctx, ev, email, "Automated welcome email sent")

	ops := d.attemptOps(ctx, ev, opsLeadText(ev.Contact.Name))
	return Result{Attempts: []Attempt{email, ops}}
}

func (d *Dispatcher) dispatchBookingCreated(ctx context.Context, ev Event) Result {
	var attempts []Attempt

	forms, err := d.cfg.Forms.ListActive(ctx, ev.WorkspaceID)
	if err != nil {
		d.cfg.Logger.Error("listing forms for confirmation email", "error", err, "workspace_id", ev.WorkspaceID)
		forms = nil
	}

	subject, html := bookingCreatedEmail(ev.WorkspaceName, ev.Contact.Name, *ev.Booking, forms, d.cfg.PublicBaseURL)
	email := d.attemptEmail(ctx, ev, subject, html)
	d.logEmailOutcome(ctx, ev, email, "Booking confirmation email sent")
	attempts = append(attempts, email)

	sms := d.attemptSMS(ctx, ev, bookingCreatedSMS(ev.WorkspaceName, *ev.Booking))
	d.logSMSOutcome(ctx, ev, sms, "Booking confirmation SMS sent")
	attempts = append(attempts, sms)

	attempts = append(attempts, d.attemptCalendar(ctx, ev))
	attempts = append(attempts, d.attemptOps(ctx, ev, opsBookingText(ev.Contact.Name, *ev.Booking)))

	return Result{Attempts: attempts}
}

func (d *Dispatcher) dispatchStatusChanged(ctx context.Context, ev Event) Result {
	// The status change is always recorded, whether or not the customer
	// hears about it.
	d.log(ctx, ev, conversation.LogParams{
		Channel:     conversation.ChannelSystem,
		Content:     "Booking status updated to: " + ev.Booking.Status,
		IsAutomated: true,
		IsRead:      true,
	})

	if !ev.SendNotification {
		return Result{Attempts: []Attempt{
			{Channel: ChannelEmail, Skipped: true, SkipReason: SkipDisabled},
		}}
	}

	subject, html, ok := statusChangeEmail(ev.WorkspaceName, ev.Contact.Name, *ev.Booking)
	if !ok {
		return Result{Attempts: []Attempt{
			{Channel: ChannelEmail, Skipped: true, SkipReason: SkipNoTemplate},
		}}
	}

	email := d.attemptEmail(ctx, ev, subject, html)
	d.logEmailOutcome(ctx, ev, email, "Status notification email sent: "+subject)
	return Result{Attempts: []Attempt{email}}
}

// dispatchStaffInvite differs from the customer channels: the invite
// is the whole point of the operation, so a missing email integration
// is a failure, not a silent skip.
func (d *Dispatcher) dispatchStaffInvite(ctx context.Context, ev Event) Result {
	inv := ev.Invite
	subject, html := staffInviteEmail(ev.WorkspaceName, *inv, d.cfg.PublicBaseURL)

	ig, err := d.cfg.Credentials.FindActive(ctx, ev.WorkspaceID, integration.TypeEmail)
	if err != nil {
		out := channel.Outcome{Err: "email integration not configured"}
		if !errors.Is(err, integration.ErrNotConfigured) {
			out.Err = err.Error()
		}
		return Result{Attempts: []Attempt{{Channel: ChannelEmail, Outcome: out}}}
	}

	creds, err := ig.Email()
	if err != nil {
		return Result{Attempts: []Attempt{{Channel: ChannelEmail, Outcome: channel.Outcome{Err: err.Error()}}}}
	}

	out := d.cfg.Email.Send(ctx, creds, channel.EmailMessage{
		To:       inv.Email,
		ToName:   inv.Name,
		Subject:  subject,
		HTMLBody: html,
	})
	if !out.Success {
		d.cfg.Logger.Error("staff invite email failed", "error", out.Err, "workspace_id", ev.WorkspaceID, "to", inv.Email)
	}
	return Result{Attempts: []Attempt{{Channel: ChannelEmail, Outcome: out}}}
}

// dispatchReminder is email-only, matching the sweep's contract: one
// reminder email per due booking.
func (d *Dispatcher) dispatchReminder(ctx context.Context, ev Event) Result {
	subject, html := reminderEmail(ev.WorkspaceName, ev.Contact.Name, *ev.Booking)
	email := d.attemptEmail(ctx, ev, subject, html)
	d.logEmailOutcome(ctx, ev, email, "Reminder email sent")
	return Result{Attempts: []Attempt{email}}
}

// Reply implements conversation.Replier: a staff-authored outbound
// message over email or SMS. Unlike Dispatch, delivery failure is an
// error here because the caller needs to tell the staff member.
func (d *Dispatcher) Reply(ctx context.Context, workspaceID uuid.UUID, ch conversation.Channel, to contact.Contact, body string) (string, error) {
	switch ch {
	case conversation.ChannelEmail:
		ig, err := d.cfg.Credentials.FindActive(ctx, workspaceID, integration.TypeEmail)
		if err != nil {
			return "", err
		}
		creds, err := ig.Email()
		if err != nil {
			return "", err
		}
		ws, err := d.cfg.Workspaces.Get(ctx, workspaceID)
		if err != nil {
			return "", fmt.Errorf("getting workspace: %w", err)
		}
		out := d.cfg.Email.Send(ctx, creds, channel.EmailMessage{
			To:       to.Email,
			ToName:   to.Name,
			Subject:  replyEmailSubject(ws.Name),
			HTMLBody: "<p>" + body + "</p>",
		})
		if !out.Success {
			return "", errors.New(out.Err)
		}
		return out.ProviderMessageID, nil

	case conversation.ChannelSMS:
		ig, err := d.cfg.Credentials.FindActive(ctx, workspaceID, integration.TypeSMS)
		if err != nil {
			return "", err
		}
		creds, err := ig.SMS()
		if err != nil {
			return "", err
		}
		out := d.cfg.SMS.Send(ctx, creds, to.Phone, body)
		if !out.Success {
			return "", errors.New(out.Err)
		}
		return out.ProviderMessageID, nil
	}
	return "", fmt.Errorf("cannot reply over channel %q", ch)
}

// attemptEmail sends over the email channel if configured and the
// contact gave an address. A missing integration or address is a
// skip, not a failure.
func (d *Dispatcher) attemptEmail(ctx context.Context, ev Event, subject, html string) Attempt {
	if ev.Contact.Email == "" {
		return Attempt{Channel: ChannelEmail, Skipped: true, SkipReason: SkipNoEmail}
	}
	ig, err := d.cfg.Credentials.FindActive(ctx, ev.WorkspaceID, integration.TypeEmail)
	if errors.Is(err, integration.ErrNotConfigured) {
		return Attempt{Channel: ChannelEmail, Skipped: true, SkipReason: SkipNotConfigured}
	}
	if err != nil {
		return Attempt{Channel: ChannelEmail, Outcome: channel.Outcome{Err: err.Error()}}
	}
	creds, err := ig.Email()
	if err != nil {
		return Attempt{Channel: ChannelEmail, Outcome: channel.Outcome{Err: err.Error()}}
	}

	out := d.cfg.Email.Send(ctx, creds, channel.EmailMessage{
		To:       ev.Contact.Email,
		ToName:   ev.Contact.Name,
		Subject:  subject,
		HTMLBody: html,
	})
	return Attempt{Channel: ChannelEmail, Outcome: out}
}

// attemptSMS sends over the SMS channel when the workspace has it
// configured and the contact has a phone number.
func (d *Dispatcher) attemptSMS(ctx context.Context, ev Event, body string) Attempt {
	if ev.Contact.Phone == "" {
		return Attempt{Channel: ChannelSMS, Skipped: true, SkipReason: SkipNoPhone}
	}
	ig, err := d.cfg.Credentials.FindActive(ctx, ev.WorkspaceID, integration.TypeSMS)
	if errors.Is(err, integration.ErrNotConfigured) {
		return Attempt{Channel: ChannelSMS, Skipped: true, SkipReason: SkipNotConfigured}
	}
	if err != nil {
		return Attempt{Channel: ChannelSMS, Outcome: channel.Outcome{Err: err.Error()}}
	}
	creds, err := ig.SMS()
	if err != nil {
		return Attempt{Channel: ChannelSMS, Outcome: channel.Outcome{Err: err.Error()}}
	}

	out := d.cfg.SMS.Send(ctx, creds, ev.Contact.Phone, body)
	return Attempt{Channel: ChannelSMS, Outcome: out}
}

func (d *Dispatcher) attemptCalendar(ctx context.Context, ev Event) Attempt {
	ig, err := d.cfg.Credentials.FindActive(ctx, ev.WorkspaceID, integration.TypeCalendar)
	if errors.Is(err, integration.ErrNotConfigured) {
		return Attempt{Channel: ChannelCalendar, Skipped: true, SkipReason: SkipNotConfigured}
	}
	if err != nil {
		return Attempt{Channel: ChannelCalendar, Outcome: channel.Outcome{Err: err.Error()}}
	}
	creds, err := ig.Calendar()
	if err != nil {
		return Attempt{Channel: ChannelCalendar, Outcome: channel.Outcome{Err: err.Error()}}
	}

	summary, description := calendarEventSummary(ev.Contact.Name, *ev.Booking)
	save := func(ctx context.Context, updated integration.CalendarCredentials) error {
		return d.cfg.Tokens.SaveCalendarToken(ctx, ig.ID, updated)
	}
	out := d.cfg.Calendar.CreateEvent(ctx, creds, channel.CalendarEvent{
		Summary:       summary,
		Description:   description,
		Start:         ev.Booking.StartTime,
		End:           endOrDefault(*ev.Booking),
		AttendeeEmail: ev.Contact.Email,
	}, save)
	if !out.Success {
		d.cfg.Logger.Error("calendar event failed", "error", out.Err, "workspace_id", ev.WorkspaceID, "booking_id", ev.Booking.BookingID)
	}
	return Attempt{Channel: ChannelCalendar, Outcome: out}
}

func (d *Dispatcher) attemptOps(ctx context.Context, ev Event, text string) Attempt {
	ig, err := d.cfg.Credentials.FindActive(ctx, ev.WorkspaceID, integration.TypeWebhook)
	if errors.Is(err, integration.ErrNotConfigured) {
		return Attempt{Channel: ChannelWebhook, Skipped: true, SkipReason: SkipNotConfigured}
	}
	if err != nil {
		return Attempt{Channel: ChannelWebhook, Outcome: channel.Outcome{Err: err.Error()}}
	}
	creds, err := ig.Webhook()
	if err != nil {
		return Attempt{Channel: ChannelWebhook, Outcome: channel.Outcome{Err: err.Error()}}
	}

	out := d.cfg.Ops.Post(ctx, creds, text)
	if !out.Success {
		d.cfg.Logger.Error("ops post failed", "error", out.Err, "workspace_id", ev.WorkspaceID)
	}
	return Attempt{Channel: ChannelWebhook, Outcome: out}
}

// logEmailOutcome records a delivery (or its failure) on the contact's
// timeline. Failures get an explicit entry so staff can see the
// customer never heard from them. Automated entries land already read;
// there is nothing for staff to catch up on.
func (d *Dispatcher) logEmailOutcome(ctx context.Context, ev Event, a Attempt, sentContent string) {
	switch {
	case a.Skipped:
	case a.Outcome.Success:
		d.log(ctx, ev, conversation.LogParams{
			Channel:           conversation.ChannelEmail,
			Content:           sentContent,
			IsAutomated:       true,
			IsRead:            true,
			ProviderMessageID: a.Outcome.ProviderMessageID,
		})
	default:
		d.cfg.Logger.Error("email send failed", "error", a.Outcome.Err, "workspace_id", ev.WorkspaceID, "contact_id", ev.Contact.ID)
		d.log(ctx, ev, conversation.LogParams{
			Channel:     conversation.ChannelSystem,
			Content:     "Email send failed: " + a.Outcome.Err,
			IsAutomated: true,
			IsRead:      true,
		})
	}
}

func (d *Dispatcher) logSMSOutcome(ctx context.Context, ev Event, a Attempt, sentContent string) {
	switch {
	case a.Skipped:
	case a.Outcome.Success:
		d.log(ctx, ev, conversation.LogParams{
			Channel:           conversation.ChannelSMS,
			Content:           sentContent,
			IsAutomated:       true,
			IsRead:            true,
			ProviderMessageID: a.Outcome.ProviderMessageID,
		})
	default:
		d.cfg.Logger.Error("sms send failed", "error", a.Outcome.Err, "workspace_id", ev.WorkspaceID, "contact_id", ev.Contact.ID)
		d.log(ctx, ev, conversation.LogParams{
			Channel:     conversation.ChannelSystem,
			Content:     "SMS send failed: " + a.Outcome.Err,
			IsAutomated: true,
			IsRead:      true,
		})
	}
}

// log appends to the timeline; a logging failure must not fail the
// dispatch, so it only reaches the structured log.
func (d *Dispatcher) log(ctx context.Context, ev Event, p conversation.LogParams) {
	if ev.Contact.ID == uuid.Nil {
		return
	}
	if _, err := d.cfg.Activity.LogActivity(ctx, ev.WorkspaceID, ev.Contact.ID, p); err != nil {
		d.cfg.Logger.Error("recording activity", "error", err, "workspace_id", ev.WorkspaceID, "contact_id", ev.Contact.ID)
	}
}
