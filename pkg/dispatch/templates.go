package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/craftdesk/craftdesk/pkg/form"
)

// Message content lives here so every channel renders from one place.
// Bodies are deliberately simple HTML; workspaces do not customize
// templates yet.

const timeFormat = "Monday, January 2, 2006 at 3:04 PM"

func firstName(name string) string {
	if name == "" {
		return "there"
	}
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}

func autoReplyEmail(workspaceName, contactName string) (subject, html string) {
	subject = fmt.Sprintf("Thanks for reaching out to %s", workspaceName)
	html = fmt.Sprintf(
		"<p>Hi %s,</p><p>Thanks for getting in touch with %s. We received your message and will get back to you as soon as we can.</p><p>— The %s team</p>",
		firstName(contactName), workspaceName, workspaceName,
	)
	return subject, html
}

func bookingCreatedEmail(workspaceName, contactName string, b BookingInfo, forms []form.Form, publicBaseURL string) (subject, html string) {
	subject = fmt.Sprintf("Booking confirmed: %s", b.ServiceName)

	var sb strings.Builder
	fmt.Fprintf(&sb, "<p>Hi %s,</p>", firstName(contactName))
	fmt.Fprintf(&sb, "<p>Your booking with %s is confirmed.</p>", workspaceName)
	fmt.Fprintf(&sb, "<p><strong>%s</strong><br>%s</p>", b.ServiceName, b.StartTime.Format(timeFormat))
	if b.Notes != "" {
		fmt.Fprintf(&sb, "<p>Notes: %s</p>", b.Notes)
	}
	if len(forms) > 0 {
		sb.WriteString("<p>Please complete the following before your appointment:</p><ul>")
		for _, f := range forms {
			fmt.Fprintf(&sb, `<li><a href="%s/forms/%s">%s</a></li>`, publicBaseURL, f.Slug, f.Title)
		}
		sb.WriteString("</ul>")
	}
	fmt.Fprintf(&sb, "<p>— The %s team</p>", workspaceName)
	return subject, sb.String()
}

func bookingCreatedSMS(workspaceName string, b BookingInfo) string {
	return fmt.Sprintf("%s: your %s booking on %s is confirmed.",
		workspaceName, b.ServiceName, b.StartTime.Format("Jan 2 at 3:04 PM"))
}

// statusChangeEmail returns the customer-facing message for a status
// change. Only confirmed, cancelled and completed have one; other
// transitions are internal and return ok=false.
func statusChangeEmail(workspaceName, contactName string, b BookingInfo) (subject, html string, ok bool) {
	name := firstName(contactName)
	when := b.StartTime.Format(timeFormat)

	switch b.Status {
	case "confirmed":
		subject = fmt.Sprintf("Your booking is confirmed: %s", b.ServiceName)
		html = fmt.Sprintf("<p>Hi %s,</p><p>Good news: your %s booking on %s with %s is confirmed.</p>",
			name, b.ServiceName, when, workspaceName)
	case "cancelled":
		subject = fmt.Sprintf("Your booking was cancelled: %s", b.ServiceName)
		html = fmt.Sprintf("<p>Hi %s,</p><p>Your %s booking on %s with %s has been cancelled. Get in touch if you would like to rebook.</p>",
			name, b.ServiceName, when, workspaceName)
	case "completed":
		subject = fmt.Sprintf("Thanks for visiting %s", workspaceName)
		html = fmt.Sprintf("<p>Hi %s,</p><p>Thanks for coming in for your %s. We hope to see you again soon.</p>",
			name, b.ServiceName)
	default:
		return "", "", false
	}
	return subject, html, true
}

func reminderEmail(workspaceName, contactName string, b BookingInfo) (subject, html string) {
	subject = fmt.Sprintf("Reminder: %s tomorrow", b.ServiceName)
	html = fmt.Sprintf("<p>Hi %s,</p><p>A friendly reminder about your %s with %s on %s.</p><p>— The %s team</p>",
		firstName(contactName), b.ServiceName, workspaceName, b.StartTime.Format(timeFormat), workspaceName)
	return subject, html
}

func staffInviteEmail(workspaceName string, inv StaffInvite, publicBaseURL string) (subject, html string) {
	subject = fmt.Sprintf("You've been invited to join %s", workspaceName)

	var sb strings.Builder
	fmt.Fprintf(&sb, "<p>Hi %s,</p>", firstName(inv.Name))
	fmt.Fprintf(&sb, "<p>You've been invited to join <strong>%s</strong> on Craftdesk.</p>", workspaceName)
	fmt.Fprintf(&sb, "<p>Your temporary password is: <strong>%s</strong></p>", inv.TempPassword)
	fmt.Fprintf(&sb, "<p>Please sign in at <a href=\"%s/login\">%s/login</a> and change it right away.</p>", publicBaseURL, publicBaseURL)
	if len(inv.Permissions) > 0 {
		sb.WriteString("<p>You have access to: ")
		sb.WriteString(strings.Join(inv.Permissions, ", "))
		sb.WriteString("</p>")
	}
	return subject, sb.String()
}

func opsBookingText(contactName string, b BookingInfo) string {
	return fmt.Sprintf("New booking: %s for %s on %s",
		b.ServiceName, contactName, b.StartTime.Format("Jan 2 at 3:04 PM"))
}

func opsLeadText(contactName string) string {
	if contactName == "" {
		contactName = "a new lead"
	}
	return fmt.Sprintf("New contact form message from %s", contactName)
}

func calendarEventSummary(contactName string, b BookingInfo) (summary, description string) {
	summary = fmt.Sprintf("%s — %s", b.ServiceName, contactName)
	description = fmt.Sprintf("Booked via Craftdesk.\nCustomer: %s", contactName)
	if b.Notes != "" {
		description += "\nNotes: " + b.Notes
	}
	return summary, description
}

func replyEmailSubject(workspaceName string) string {
	return fmt.Sprintf("New message from %s", workspaceName)
}

// endOrDefault pads bookings without an explicit end so calendar
// events are never zero-length.
func endOrDefault(b BookingInfo) time.Time {
	if !b.EndTime.IsZero() && b.EndTime.After(b.StartTime) {
		return b.EndTime
	}
	return b.StartTime.Add(time.Hour)
}
