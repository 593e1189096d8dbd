// Package output provides styled terminal output helpers (success, error,
// alerts, event and participant formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/checkin/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	alertStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)
	stateStyles = map[models.ParticipantState]lipgloss.Style{
		models.StateComplete:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.StatePending:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.StateUnpaid:    lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		models.StateRejected:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.StateWithdrawn: lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
)

// nameWidth is the column width of names in one-line listings.
const nameWidth = 32

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...any) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// JSON outputs data as JSON
func JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeDatabaseError = "database_error"
	ErrCodeSyncFailed    = "sync_failed"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	data, _ := json.Marshal(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
	fmt.Println(string(data))
}

// FormatAlert renders a surfaced sync failure as a bordered box.
func FormatAlert(title, content string) string {
	return alertStyle.Render(titleStyle.Render(title) + "\n" + content)
}

// FormatState formats a participant state with color
func FormatState(s models.ParticipantState) string {
	style, ok := stateStyles[s]
	if !ok {
		return fmt.Sprintf("[%s]", s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// CheckinBadge returns "✓ checked in" or "○ not checked in".
func CheckinBadge(p *models.Participant) string {
	if p.CheckedIn {
		return successStyle.Render("✓ checked in")
	}
	return subtleStyle.Render("○ not checked in")
}

func deletedMarker(deleted bool) string {
	if deleted {
		return "  " + errorStyle.Render("[deleted]")
	}
	return ""
}

// FormatEventShort formats an event on one line
func FormatEventShort(e *models.Event) string {
	date := "no date"
	if !e.Date.IsZero() {
		date = e.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%s  %s  %s%s",
		titleStyle.Render(fmt.Sprintf("#%d", e.ID)),
		e.Title,
		subtleStyle.Render(fmt.Sprintf("%s  remote:%d", date, e.IndicoID)),
		deletedMarker(e.Deleted))
}

// FormatRegformShort formats a registration form on one line
func FormatRegformShort(r *models.Regform) string {
	open := "closed"
	if r.IsOpen {
		open = "open"
	}
	return fmt.Sprintf("%s  %s  %s%s",
		titleStyle.Render(fmt.Sprintf("#%d", r.ID)),
		r.Title,
		subtleStyle.Render(fmt.Sprintf("%d/%d checked in  %s", r.CheckedInCount, r.RegistrationCount, open)),
		deletedMarker(r.Deleted))
}

// FormatParticipantShort formats a participant on one line, names
// truncated to a fixed column.
func FormatParticipantShort(p *models.Participant) string {
	name := ansi.Truncate(p.FullName, nameWidth, "…")
	pad := nameWidth - ansi.StringWidth(name)
	if pad < 0 {
		pad = 0
	}
	return fmt.Sprintf("%s  %s%s  %s  %s%s",
		titleStyle.Render(fmt.Sprintf("#%-5d", p.ID)),
		name, strings.Repeat(" ", pad),
		FormatState(p.State),
		CheckinBadge(p),
		deletedMarker(p.Deleted))
}

// FormatParticipantLong formats the header block of a participant detail view.
// Registration data is rendered separately; see RegistrationMarkdown.
func FormatParticipantLong(p *models.Participant) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("#%d: %s", p.ID, p.FullName)))
	sb.WriteString(deletedMarker(p.Deleted))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "State: %s | %s\n", FormatState(p.State), CheckinBadge(p))
	if p.CheckedIn && p.CheckedInDt != nil {
		fmt.Fprintf(&sb, "Checked in: %s (%s)\n", p.CheckedInDt.Local().Format("2006-01-02 15:04"), FormatTimeAgo(*p.CheckedInDt))
	}
	if !p.RegistrationDate.IsZero() {
		fmt.Fprintf(&sb, "Registered: %s\n", p.RegistrationDate.Local().Format("2006-01-02 15:04"))
	}
	if p.OccupiedSlots > 1 {
		fmt.Fprintf(&sb, "Slots: %d\n", p.OccupiedSlots)
	}
	if p.Price > 0 {
		paid := "unpaid"
		if p.IsPaid {
			paid = "paid"
		}
		price := p.FormattedPrice
		if price == "" {
			price = fmt.Sprintf("%.2f %s", p.Price, p.Currency)
		}
		fmt.Fprintf(&sb, "Price: %s (%s)\n", price, paid)
	}
	if p.Notes != "" {
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render("Notes:"))
		sb.WriteString("\n")
		sb.WriteString(p.Notes)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nREGISTRATION FORMS:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}
