package syncclient

import (
	"encoding/json"
	"time"

	"github.com/marcus/checkin/internal/models"
)

// EventData is the check-in API representation of an event.
type EventData struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	StartDt time.Time `json:"startDt"`
}

// RemoteKey implements reconcile.Keyed.
func (d EventData) RemoteKey() int64 { return d.ID }

// RegformData is the check-in API representation of a registration form.
type RegformData struct {
	ID                int64  `json:"id"`
	EventID           int64  `json:"eventId"`
	Title             string `json:"title"`
	IsOpen            bool   `json:"isOpen"`
	RegistrationCount int    `json:"registrationCount"`
	CheckedInCount    int    `json:"checkedInCount"`
}

// RemoteKey implements reconcile.Keyed.
func (d RegformData) RemoteKey() int64 { return d.ID }

// ParticipantData is the check-in API representation of a registration.
type ParticipantData struct {
	ID               int64                   `json:"id"`
	RegformID        int64                   `json:"regformId"`
	EventID          int64                   `json:"eventId"`
	FullName         string                  `json:"fullName"`
	RegistrationDate time.Time               `json:"registrationDate"`
	RegistrationData json.RawMessage         `json:"registrationData"`
	State            models.ParticipantState `json:"state"`
	CheckinSecret    string                  `json:"checkinSecret"`
	CheckedIn        bool                    `json:"checkedIn"`
	CheckedInDt      *time.Time              `json:"checkedInDt"`
	OccupiedSlots    int                     `json:"occupiedSlots"`
	Price            float64                 `json:"price"`
	Currency         string                  `json:"currency"`
	FormattedPrice   string                  `json:"formattedPrice"`
	IsPaid           bool                    `json:"isPaid"`
}

// RemoteKey implements reconcile.Keyed.
func (d ParticipantData) RemoteKey() int64 { return d.ID }
