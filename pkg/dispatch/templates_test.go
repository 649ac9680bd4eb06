package dispatch

import (
	"strings"
	"testing"
	"time"
)

func TestStatusChangeEmailCoverage(t *testing.T) {
	b := BookingInfo{ServiceName: "Haircut", StartTime: time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)}

	for _, status := range []string{"confirmed", "cancelled", "completed"} {
		b.Status = status
		subject, html, ok := statusChangeEmail("Shear Genius", "Jo Moss", b)
		if !ok {
			t.Errorf("status %q has no template", status)
			continue
		}
		if subject == "" || html == "" {
			t.Errorf("status %q produced empty content", status)
		}
	}

	for _, status := range []string{"pending", "no_show"} {
		b.Status = status
		if _, _, ok := statusChangeEmail("Shear Genius", "Jo Moss", b); ok {
			t.Errorf("status %q should have no customer-facing template", status)
		}
	}
}

func TestFirstName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jo Moss", "Jo"},
		{"Jo", "Jo"},
		{"", "there"},
	}
	for _, tt := range tests {
		if got := firstName(tt.in); got != tt.want {
			t.Errorf("firstName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEndOrDefault(t *testing.T) {
	start := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)

	b := BookingInfo{StartTime: start}
	if got := endOrDefault(b); !got.Equal(start.Add(time.Hour)) {
		t.Errorf("zero end = %v, want start+1h", got)
	}

	b.EndTime = start.Add(30 * time.Minute)
	if got := endOrDefault(b); !got.Equal(b.EndTime) {
		t.Errorf("explicit end = %v, want %v", got, b.EndTime)
	}
}

func TestBookingCreatedEmailFormLinks(t *testing.T) {
	b := BookingInfo{ServiceName: "Haircut", StartTime: time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)}

	_, html := bookingCreatedEmail("Shear Genius", "Jo Moss", b, nil, "https://app.test")
	if strings.Contains(html, "<ul>") {
		t.Error("email lists forms when there are none")
	}
}
