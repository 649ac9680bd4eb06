package reminder

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftdesk/craftdesk/pkg/booking"
	"github.com/craftdesk/craftdesk/pkg/channel"
	"github.com/craftdesk/craftdesk/pkg/dispatch"
	"github.com/craftdesk/craftdesk/pkg/workspace"
)

// fakeBookings applies the [from, to) filter itself so the tests
// exercise the window math the sweep passes down.
type fakeBookings struct {
	all      []booking.Detail
	lastFrom time.Time
	lastTo   time.Time
	err      error
}

func (f *fakeBookings) ListDueReminders(_ context.Context, from, to time.Time) ([]booking.Detail, error) {
	f.lastFrom, f.lastTo = from, to
	if f.err != nil {
		return nil, f.err
	}
	var out []booking.Detail
	for _, d := range f.all {
		if !d.StartTime.Before(from) && d.StartTime.Before(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeWorkspaces struct{}

func (fakeWorkspaces) Get(_ context.Context, id uuid.UUID) (workspace.Workspace, error) {
	return workspace.Workspace{ID: id, Name: "Shear Genius"}, nil
}

type fakeNotifier struct {
	events []dispatch.Event
	fail   bool
}

func (f *fakeNotifier) Dispatch(_ context.Context, ev dispatch.Event) dispatch.Result {
	f.events = append(f.events, ev)
	if f.fail {
		return dispatch.Result{Attempts: []dispatch.Attempt{
			{Channel: dispatch.ChannelEmail, Outcome: channel.Outcome{Err: "boom"}},
		}}
	}
	return dispatch.Result{Attempts: []dispatch.Attempt{
		{Channel: dispatch.ChannelEmail, Outcome: channel.Outcome{Success: true}},
	}}
}

type fakeGuard struct {
	marked map[uuid.UUID]bool
	err    error
}

func (f *fakeGuard) MarkSent(_ context.Context, id uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.marked[id] {
		return false, nil
	}
	f.marked[id] = true
	return true, nil
}

func (f *fakeGuard) Unmark(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	delete(f.marked, id)
	return nil
}

func dueBooking(startIn time.Duration, now time.Time) booking.Detail {
	return booking.Detail{
		Booking: booking.Booking{
			ID:          uuid.New(),
			WorkspaceID: uuid.New(),
			ContactID:   uuid.New(),
			Status:      booking.StatusConfirmed,
			StartTime:   now.Add(startIn),
		},
		ContactName:  "Jo Moss",
		ContactEmail: "jo@example.test",
		ServiceName:  "Haircut",
	}
}

func newSweeper(bookings *fakeBookings, notifier *fakeNotifier, guard Guard, now time.Time) *Sweeper {
	s := NewSweeper(bookings, fakeWorkspaces{}, notifier, guard, slog.New(slog.DiscardHandler))
	s.now = func() time.Time { return now }
	return s
}

func TestSweepWindowBoundaries(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		startIn time.Duration
		want    bool
	}{
		{"just before the window", 23*time.Hour - time.Minute, false},
		{"window opens inclusive", 23 * time.Hour, true},
		{"middle of the window", 24 * time.Hour, true},
		{"window closes exclusive", 25 * time.Hour, false},
		{"just past the window", 25*time.Hour + time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings := &fakeBookings{all: []booking.Detail{dueBooking(tt.startIn, now)}}
			notifier := &fakeNotifier{}

			sent, err := newSweeper(bookings, notifier, nil, now).Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := sent == 1; got != tt.want {
				t.Errorf("sent = %d, want reminded=%v", sent, tt.want)
			}
		})
	}
}

func TestSweepPassesWindowToStore(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	bookings := &fakeBookings{}

	if _, err := newSweeper(bookings, &fakeNotifier{}, nil, now).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !bookings.lastFrom.Equal(now.Add(23 * time.Hour)) {
		t.Errorf("from = %v, want now+23h", bookings.lastFrom)
	}
	if !bookings.lastTo.Equal(now.Add(25 * time.Hour)) {
		t.Errorf("to = %v, want now+25h", bookings.lastTo)
	}
}

func TestSweepWithoutGuardRemindsAgain(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	bookings := &fakeBookings{all: []booking.Detail{dueBooking(24*time.Hour, now)}}
	notifier := &fakeNotifier{}
	sweeper := newSweeper(bookings, notifier, nil, now)

	for range 2 {
		if _, err := sweeper.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	if len(notifier.events) != 2 {
		t.Errorf("dispatches = %d, want 2 without a guard", len(notifier.events))
	}
}

func TestSweepGuardSuppressesDuplicates(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	bookings := &fakeBookings{all: []booking.Detail{dueBooking(24*time.Hour, now)}}
	notifier := &fakeNotifier{}
	guard := &fakeGuard{marked: make(map[uuid.UUID]bool)}
	sweeper := newSweeper(bookings, notifier, guard, now)

	first, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if first != 1 || second != 0 {
		t.Errorf("sent = %d then %d, want 1 then 0", first, second)
	}
	if len(notifier.events) != 1 {
		t.Errorf("dispatches = %d, want 1", len(notifier.events))
	}
}

func TestSweepGuardFailureStillSends(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	bookings := &fakeBookings{all: []booking.Detail{dueBooking(24*time.Hour, now)}}
	notifier := &fakeNotifier{}
	guard := &fakeGuard{err: errors.New("redis down")}

	sent, err := newSweeper(bookings, notifier, guard, now).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want reminder despite guard failure", sent)
	}
}

func TestSweepGuardReleasedOnFailedSend(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	bookings := &fakeBookings{all: []booking.Detail{dueBooking(24*time.Hour, now)}}
	notifier := &fakeNotifier{fail: true}
	guard := &fakeGuard{marked: make(map[uuid.UUID]bool)}
	sweeper := newSweeper(bookings, notifier, guard, now)

	sent, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sent != 0 {
		t.Fatalf("sent = %d, want 0 when the send fails", sent)
	}
	if len(guard.marked) != 0 {
		t.Error("failed send left the dedup marker in place")
	}

	notifier.fail = false
	sent, err = sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want the retry to go out", sent)
	}
}

func TestSweepCountsOnlyDeliveredReminders(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	bookings := &fakeBookings{all: []booking.Detail{
		dueBooking(24*time.Hour, now),
		dueBooking(24*time.Hour, now),
	}}
	notifier := &fakeNotifier{fail: true}

	sent, err := newSweeper(bookings, notifier, nil, now).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d, want 0 when every channel fails", sent)
	}
	if len(notifier.events) != 2 {
		t.Errorf("dispatches = %d, want every due booking attempted", len(notifier.events))
	}
}

func TestSweepStoreError(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	bookings := &fakeBookings{err: errors.New("connection refused")}

	if _, err := newSweeper(bookings, &fakeNotifier{}, nil, now).Run(context.Background()); err == nil {
		t.Fatal("Run() = nil error, want store error surfaced")
	}
}
