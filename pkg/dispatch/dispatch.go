// Package dispatch fans one domain event out to the notification
// channels a workspace has configured. It decides which channels fire
// for which event, renders the message content, records every delivery
// in the contact's timeline, and never lets a provider failure escape
// to the caller.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/craftdesk/craftdesk/pkg/channel"
	"github.com/craftdesk/craftdesk/pkg/conversation"
	"github.com/craftdesk/craftdesk/pkg/contact"
	"github.com/craftdesk/craftdesk/pkg/form"
	"github.com/craftdesk/craftdesk/pkg/integration"
	"github.com/craftdesk/craftdesk/pkg/workspace"
)

// Kind names the domain event being dispatched.
type Kind string

const (
	KindContactFormSubmitted Kind = "contact_form_submitted"
	KindBookingCreated       Kind = "booking_created"
	KindBookingStatusChanged Kind = "booking_status_changed"
	KindStaffInvited         Kind = "staff_invited"
	KindBookingReminder      Kind = "booking_reminder"
)

// BookingInfo carries the booking fields the templates need.
type BookingInfo struct {
	BookingID      uuid.UUID
	ServiceName    string
	StartTime      time.Time
	EndTime        time.Time
	Status         string
	PreviousStatus string
	Notes          string
}

// FormSubmission carries a public contact form submission.
type FormSubmission struct {
	Message string
}

// StaffInvite carries the invite details for a new staff member.
type StaffInvite struct {
	Email        string
	Name         string
	TempPassword string
	Permissions  []string
}

// Event is one domain occurrence to notify about. WorkspaceName is
// denormalized so the dispatcher does not refetch the workspace on
// every event.
type Event struct {
	Kind          Kind
	WorkspaceID   uuid.UUID
	WorkspaceName string
	Contact       contact.Contact

	// SendNotification gates the customer-facing channels for status
	// changes. Other kinds ignore it.
	SendNotification bool

	Booking *BookingInfo
	Form    *FormSubmission
	Invite  *StaffInvite
}

// Attempt records what happened on one channel for one event.
type Attempt struct {
	Channel    string          `json:"channel"`
	Skipped    bool            `json:"skipped"`
	SkipReason string          `json:"skip_reason,omitempty"`
	Outcome    channel.Outcome `json:"outcome"`
}

// Result collects the per-channel attempts for one event.
type Result struct {
	Attempts []Attempt `json:"attempts"`
}

// Sent reports whether the named channel delivered successfully.
func (r Result) Sent(ch string) bool {
	for _, a := range r.Attempts {
		if a.Channel == ch && !a.Skipped && a.Outcome.Success {
			return true
		}
	}
	return false
}

// Failed reports whether the named channel was attempted and failed.
func (r Result) Failed(ch string) bool {
	for _, a := range r.Attempts {
		if a.Channel == ch && !a.Skipped && !a.Outcome.Success {
			return true
		}
	}
	return false
}

// Error returns the failure description for the named channel, if any.
func (r Result) Error(ch string) string {
	for _, a := range r.Attempts {
		if a.Channel == ch && !a.Skipped {
			return a.Outcome.Err
		}
	}
	return ""
}

// Skip reasons recorded on Attempt.
const (
	SkipNotConfigured = "not_configured"
	SkipNoPhone       = "no_phone"
	SkipNoEmail       = "no_email"
	SkipDisabled      = "notifications_disabled"
	SkipNoTemplate    = "no_template"
)

// Channel labels used in attempts and metrics.
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelCalendar = "calendar"
	ChannelWebhook  = "webhook"
)

// CredentialSource looks up a workspace's active integration for a
// channel. integration.ErrNotConfigured means the channel is off.
type CredentialSource interface {
	FindActive(ctx context.Context, workspaceID uuid.UUID, typ integration.Type) (integration.Integration, error)
}

// TokenStore persists refreshed calendar OAuth tokens.
type TokenStore interface {
	SaveCalendarToken(ctx context.Context, id uuid.UUID, creds integration.CalendarCredentials) error
}

// ActivityLogger records deliveries in the contact's timeline.
type ActivityLogger interface {
	LogActivity(ctx context.Context, workspaceID, contactID uuid.UUID, p conversation.LogParams) (conversation.Message, error)
}

// FormLister returns a workspace's active intake forms for inclusion
// in confirmation emails.
type FormLister interface {
	ListActive(ctx context.Context, workspaceID uuid.UUID) ([]form.Form, error)
}

// WorkspaceSource resolves a workspace for reply subject lines.
type WorkspaceSource interface {
	Get(ctx context.Context, id uuid.UUID) (workspace.Workspace, error)
}

// EmailSender delivers transactional email.
type EmailSender interface {
	Send(ctx context.Context, creds integration.EmailCredentials, msg channel.EmailMessage) channel.Outcome
}

// SMSSender delivers text messages.
type SMSSender interface {
	Send(ctx context.Context, creds integration.SMSCredentials, to, body string) channel.Outcome
}

// CalendarSender places events on the workspace calendar.
type CalendarSender interface {
	CreateEvent(ctx context.Context, creds integration.CalendarCredentials, event channel.CalendarEvent, save channel.TokenSaver) channel.Outcome
}

// OpsSender posts staff heads-up notes.
type OpsSender interface {
	Post(ctx context.Context, creds integration.WebhookCredentials, text string) channel.Outcome
}
