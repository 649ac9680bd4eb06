// Package reminder sends day-before booking reminders. A sweep looks
// for bookings starting 23 to 25 hours from now, so an hourly schedule
// always covers the 24-hour mark with overlap on both sides.
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/craftdesk/craftdesk/internal/telemetry"
	"github.com/craftdesk/craftdesk/pkg/booking"
	"github.com/craftdesk/craftdesk/pkg/contact"
	"github.com/craftdesk/craftdesk/pkg/dispatch"
	"github.com/craftdesk/craftdesk/pkg/workspace"
)

const (
	windowStart = 23 * time.Hour
	windowEnd   = 25 * time.Hour
)

// BookingSource lists bookings due a reminder.
type BookingSource interface {
	ListDueReminders(ctx context.Context, from, to time.Time) ([]booking.Detail, error)
}

// WorkspaceSource resolves workspace names for the reminder templates.
type WorkspaceSource interface {
	Get(ctx context.Context, id uuid.UUID) (workspace.Workspace, error)
}

// Notifier fans a domain event out to the notification channels.
type Notifier interface {
	Dispatch(ctx context.Context, ev dispatch.Event) dispatch.Result
}

// Guard suppresses duplicate reminders. MarkSent returns true the
// first time a booking is marked within the guard's retention window;
// Unmark releases the marker so a failed send can be retried by a
// later sweep.
type Guard interface {
	MarkSent(ctx context.Context, bookingID uuid.UUID) (bool, error)
	Unmark(ctx context.Context, bookingID uuid.UUID) error
}

// Sweeper runs the reminder sweep.
type Sweeper struct {
	bookings   BookingSource
	workspaces WorkspaceSource
	notifier   Notifier
	guard      Guard // nil disables dedup
	now        func() time.Time
	logger     *slog.Logger
}

// NewSweeper creates a Sweeper. guard may be nil, in which case
// overlapping sweeps can remind the same booking twice.
func NewSweeper(bookings BookingSource, workspaces WorkspaceSource, notifier Notifier, guard Guard, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		bookings:   bookings,
		workspaces: workspaces,
		notifier:   notifier,
		guard:      guard,
		now:        time.Now,
		logger:     logger,
	}
}

// Run executes one sweep and returns how many bookings got at least
// one reminder out. A failure on one booking never stops the rest.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	started := s.now()
	defer func() {
		telemetry.ReminderSweepDuration.Observe(time.Since(started).Seconds())
	}()

	now := s.now().UTC()
	due, err := s.bookings.ListDueReminders(ctx, now.Add(windowStart), now.Add(windowEnd))
	if err != nil {
		return 0, err
	}

	names := make(map[uuid.UUID]string)
	sent := 0
	for _, d := range due {
		name, ok := names[d.WorkspaceID]
		if !ok {
			ws, err := s.workspaces.Get(ctx, d.WorkspaceID)
			if err != nil {
				s.logger.Error("getting workspace for reminder", "error", err, "workspace_id", d.WorkspaceID, "booking_id", d.ID)
				continue
			}
			name = ws.Name
			names[d.WorkspaceID] = name
		}

		// The marker is taken before sending so overlapping sweeps
		// cannot both send; a failed send releases it below.
		reserved := false
		if s.guard != nil {
			first, err := s.guard.MarkSent(ctx, d.ID)
			if err != nil {
				// Guard trouble must not silence reminders; send anyway.
				s.logger.Error("reminder dedup guard", "error", err, "booking_id", d.ID)
			} else if !first {
				continue
			} else {
				reserved = true
			}
		}

		res := s.notifier.Dispatch(ctx, dispatch.Event{
			Kind:          dispatch.KindBookingReminder,
			WorkspaceID:   d.WorkspaceID,
			WorkspaceName: name,
			Contact: contact.Contact{
				ID:          d.ContactID,
				WorkspaceID: d.WorkspaceID,
				Name:        d.ContactName,
				Email:       d.ContactEmail,
				Phone:       d.ContactPhone,
			},
			Booking: &dispatch.BookingInfo{
				BookingID:   d.ID,
				ServiceName: d.ServiceName,
				StartTime:   d.StartTime,
				EndTime:     d.EndTime,
				Status:      string(d.Status),
			},
		})
		if res.Sent(dispatch.ChannelEmail) {
			sent++
			telemetry.RemindersSentTotal.Inc()
			continue
		}
		if reserved {
			if err := s.guard.Unmark(ctx, d.ID); err != nil {
				s.logger.Error("releasing reminder marker", "error", err, "booking_id", d.ID)
			}
		}
	}

	s.logger.Info("reminder sweep finished", "due", len(due), "sent", sent)
	return sent, nil
}
