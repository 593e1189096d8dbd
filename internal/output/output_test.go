package output

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/checkin/internal/models"
)

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-2 * 24 * time.Hour), "2d ago"},
	}
	for _, tc := range tests {
		if got := FormatTimeAgo(tc.at); got != tc.want {
			t.Errorf("FormatTimeAgo(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}

	old := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	if got := FormatTimeAgo(old); got != "2024-06-15" {
		t.Errorf("FormatTimeAgo(old) = %q", got)
	}
}

func TestFormatState(t *testing.T) {
	for _, s := range []models.ParticipantState{
		models.StateComplete, models.StatePending, models.StateUnpaid,
		models.StateRejected, models.StateWithdrawn, "mystery",
	} {
		if got := FormatState(s); !strings.Contains(got, "["+string(s)+"]") {
			t.Errorf("FormatState(%s) = %q", s, got)
		}
	}
}

func TestFormatParticipantShortTruncatesName(t *testing.T) {
	p := &models.Participant{
		ID:       3,
		FullName: strings.Repeat("Bartholomew ", 6),
		State:    models.StatePending,
	}
	got := FormatParticipantShort(p)
	if !strings.Contains(got, "…") {
		t.Errorf("long name not truncated: %q", got)
	}
	if !strings.Contains(got, "[pending]") || !strings.Contains(got, "not checked in") {
		t.Errorf("missing state or badge: %q", got)
	}

	short := FormatParticipantShort(&models.Participant{ID: 4, FullName: "Ada", CheckedIn: true, Deleted: true})
	if !strings.Contains(short, "✓ checked in") || !strings.Contains(short, "[deleted]") {
		t.Errorf("short = %q", short)
	}
}

func TestFormatParticipantLong(t *testing.T) {
	at := time.Now().Add(-2 * time.Hour)
	p := &models.Participant{
		ID:             9,
		FullName:       "Grace Hopper",
		State:          models.StateComplete,
		CheckedIn:      true,
		CheckedInDt:    &at,
		OccupiedSlots:  2,
		Price:          25,
		FormattedPrice: "€25.00",
		IsPaid:         true,
		Notes:          "speaker",
	}
	got := ansi.Strip(FormatParticipantLong(p))
	for _, want := range []string{"#9: Grace Hopper", "2h ago", "Slots: 2", "€25.00 (paid)", "Notes:", "speaker"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}

	plain := ansi.Strip(FormatParticipantLong(&models.Participant{ID: 1, FullName: "A", Price: 5, Currency: "CHF"}))
	if !strings.Contains(plain, "5.00 CHF (unpaid)") {
		t.Errorf("price fallback missing:\n%s", plain)
	}
	if strings.Contains(plain, "Notes:") || strings.Contains(plain, "Slots:") {
		t.Errorf("optional sections should be omitted:\n%s", plain)
	}
}

func TestFormatEventAndRegform(t *testing.T) {
	ev := &models.Event{ID: 1, IndicoID: 42, Title: "Summer school",
		Date: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	if got := ansi.Strip(FormatEventShort(ev)); !strings.Contains(got, "2026-07-01") || !strings.Contains(got, "remote:42") {
		t.Errorf("event = %q", got)
	}

	rf := &models.Regform{ID: 2, Title: "Main", IsOpen: true, RegistrationCount: 10, CheckedInCount: 4}
	if got := ansi.Strip(FormatRegformShort(rf)); !strings.Contains(got, "4/10 checked in  open") {
		t.Errorf("regform = %q", got)
	}
}

func TestFormatAlert(t *testing.T) {
	got := ansi.Strip(FormatAlert("Something went wrong when updating events", "Response status: 500"))
	if !strings.Contains(got, "updating events") || !strings.Contains(got, "Response status: 500") {
		t.Errorf("alert = %q", got)
	}
}

func TestRegistrationMarkdown(t *testing.T) {
	sections := []models.Section{
		{Title: "Personal data", Fields: []models.SectionField{
			{Title: "Email", Data: "ada@example.org"},
			{Title: "Newsletter", Data: true},
			{Title: "Age", Data: float64(36)},
			{Title: "Phone", Data: ""},
			{Title: "Diet", Data: map[string]any{"vegan": true}},
		}},
		{Title: "Empty section"},
	}
	got := RegistrationMarkdown(sections)
	for _, want := range []string{
		"## Personal data",
		"- **Email**: ada@example.org",
		"- **Newsletter**: yes",
		"- **Age**: 36",
		"- **Phone**: -",
		"- **Diet**: `{\"vegan\":true}`",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Empty section") {
		t.Error("sections without fields should be skipped")
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	got, err := RenderMarkdownWithWidth("   ", 40)
	if err != nil || got != "" {
		t.Errorf("RenderMarkdownWithWidth(blank) = %q, %v", got, err)
	}
}

func TestSectionHeader(t *testing.T) {
	if got := SectionHeader("registration forms"); got != "\nREGISTRATION FORMS:\n" {
		t.Errorf("SectionHeader = %q", got)
	}
}
