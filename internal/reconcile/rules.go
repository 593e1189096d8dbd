package reconcile

import (
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/syncclient"
)

// EventFields projects the remote-owned columns of an event.
func EventFields(d syncclient.EventData) models.Fields {
	return models.Fields{
		"indico_id": d.ID,
		"title":     d.Title,
		"date":      d.StartDt,
	}
}

// RegformFields projects the remote-owned columns of a registration form.
func RegformFields(d syncclient.RegformData) models.Fields {
	return models.Fields{
		"indico_id":          d.ID,
		"title":              d.Title,
		"is_open":            d.IsOpen,
		"registration_count": d.RegistrationCount,
		"checked_in_count":   d.CheckedInCount,
	}
}

// ParticipantFields projects the remote-owned columns of a participant.
// Notes and the parent reference are local and never projected.
func ParticipantFields(d syncclient.ParticipantData) models.Fields {
	return models.Fields{
		"indico_id":         d.ID,
		"full_name":         d.FullName,
		"registration_date": d.RegistrationDate,
		"registration_data": d.RegistrationData,
		"state":             d.State,
		"checkin_secret":    d.CheckinSecret,
		"checked_in":        d.CheckedIn,
		"checked_in_dt":     d.CheckedInDt,
		"occupied_slots":    d.OccupiedSlots,
		"price":             d.Price,
		"currency":          d.Currency,
		"formatted_price":   d.FormattedPrice,
		"is_paid":           d.IsPaid,
	}
}

// RegformRule reconciles the forms of one event. Forms discovered upstream
// are not inserted; flip AllowInsert to change that.
func RegformRule(eventID int64) Rule[models.Regform, syncclient.RegformData] {
	return Rule[models.Regform, syncclient.RegformData]{
		LocalID:     func(r models.Regform) int64 { return r.ID },
		Project:     RegformFields,
		AllowInsert: false,
		Insert: func(d syncclient.RegformData) models.Regform {
			return models.Regform{
				IndicoID:          d.ID,
				EventID:           eventID,
				Title:             d.Title,
				IsOpen:            d.IsOpen,
				RegistrationCount: d.RegistrationCount,
				CheckedInCount:    d.CheckedInCount,
			}
		},
	}
}

// ParticipantRule reconciles the participants of one regform. New
// participants start with empty notes and are bound to regformID.
func ParticipantRule(regformID int64) Rule[models.Participant, syncclient.ParticipantData] {
	return Rule[models.Participant, syncclient.ParticipantData]{
		LocalID:     func(p models.Participant) int64 { return p.ID },
		Project:     ParticipantFields,
		AllowInsert: true,
		Insert:      func(d syncclient.ParticipantData) models.Participant { return NewParticipant(regformID, d) },
	}
}

// NewParticipant builds the local record for a participant first seen upstream.
func NewParticipant(regformID int64, d syncclient.ParticipantData) models.Participant {
	return models.Participant{
		IndicoID:         d.ID,
		RegformID:        regformID,
		FullName:         d.FullName,
		RegistrationDate: d.RegistrationDate,
		RegistrationData: d.RegistrationData,
		State:            d.State,
		CheckinSecret:    d.CheckinSecret,
		CheckedIn:        d.CheckedIn,
		CheckedInDt:      d.CheckedInDt,
		OccupiedSlots:    d.OccupiedSlots,
		Price:            d.Price,
		Currency:         d.Currency,
		FormattedPrice:   d.FormattedPrice,
		IsPaid:           d.IsPaid,
		Notes:            "",
		Deleted:          false,
	}
}
