package models

import (
	"encoding/json"
	"time"
)

// ParticipantState represents a registration's state on the server
type ParticipantState string

const (
	StateComplete  ParticipantState = "complete"
	StatePending   ParticipantState = "pending"
	StateUnpaid    ParticipantState = "unpaid"
	StateRejected  ParticipantState = "rejected"
	StateWithdrawn ParticipantState = "withdrawn"
)

// IsValid reports whether s is a known participant state
func (s ParticipantState) IsValid() bool {
	switch s {
	case StateComplete, StatePending, StateUnpaid, StateRejected, StateWithdrawn:
		return true
	}
	return false
}

// Fields is a partial record keyed by column name.
// It is the payload of every local update.
type Fields map[string]any

// Change is a single bulk-update instruction addressed by local ID
type Change struct {
	Key    int64  `json:"key"`
	Fields Fields `json:"changes"`
}

// Server is a remote check-in service the device is paired with
type Server struct {
	ID        int64  `json:"id"`
	BaseURL   string `json:"base_url"`
	ClientID  string `json:"client_id"`
	Scope     string `json:"scope"`
	AuthToken string `json:"-"`
}

// Event is the root of the synced hierarchy
type Event struct {
	ID       int64     `json:"id"`
	IndicoID int64     `json:"indico_id"`
	ServerID int64     `json:"server_id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Deleted  bool      `json:"deleted"`
}

// RemoteKey returns the server-side identifier
func (e Event) RemoteKey() int64 { return e.IndicoID }

// Regform is a registration form owned by an event
type Regform struct {
	ID                int64  `json:"id"`
	IndicoID          int64  `json:"indico_id"`
	EventID           int64  `json:"event_id"`
	Title             string `json:"title"`
	IsOpen            bool   `json:"is_open"`
	RegistrationCount int    `json:"registration_count"`
	CheckedInCount    int    `json:"checked_in_count"`
	Deleted           bool   `json:"deleted"`
}

// RemoteKey returns the server-side identifier
func (r Regform) RemoteKey() int64 { return r.IndicoID }

// Participant is a single registration in a regform.
// Notes never leave the device.
type Participant struct {
	ID               int64            `json:"id"`
	IndicoID         int64            `json:"indico_id"`
	RegformID        int64            `json:"regform_id"`
	FullName         string           `json:"full_name"`
	RegistrationDate time.Time        `json:"registration_date"`
	RegistrationData json.RawMessage  `json:"registration_data,omitempty"`
	State            ParticipantState `json:"state"`
	CheckinSecret    string           `json:"checkin_secret"`
	CheckedIn        bool             `json:"checked_in"`
	CheckedInDt      *time.Time       `json:"checked_in_dt,omitempty"`
	OccupiedSlots    int              `json:"occupied_slots"`
	Price            float64          `json:"price"`
	Currency         string           `json:"currency"`
	FormattedPrice   string           `json:"formatted_price"`
	IsPaid           bool             `json:"is_paid"`
	Notes            string           `json:"notes"`
	Deleted          bool             `json:"deleted"`
}

// RemoteKey returns the server-side identifier
func (p Participant) RemoteKey() int64 { return p.IndicoID }

// Section is one block of the registration form as filled in by a participant.
// Field shapes are configured per server, so values are kept untyped.
type Section struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Fields      []SectionField `json:"fields"`
}

// SectionField is a single answered field of a Section
type SectionField struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	InputType string `json:"inputType,omitempty"`
	Data      any    `json:"data"`
}

// Sections decodes the registration data for display. Unknown keys are ignored.
func (p Participant) Sections() ([]Section, error) {
	if len(p.RegistrationData) == 0 {
		return nil, nil
	}
	var sections []Section
	if err := json.Unmarshal(p.RegistrationData, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}
