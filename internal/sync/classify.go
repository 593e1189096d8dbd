package sync

import (
	"fmt"
	"net/http"

	"github.com/marcus/checkin/internal/syncclient"
)

// Disposition is what the orchestrator does with a fetch outcome.
type Disposition int

const (
	// Apply writes the fetched data.
	Apply Disposition = iota
	// SoftDelete marks the local entity deleted; the remote no longer has it.
	SoftDelete
	// Ignore keeps local data as-is; the device is offline or the call was cancelled.
	Ignore
	// Surface reports the failure to the user.
	Surface
)

func (d Disposition) String() string {
	switch d {
	case Apply:
		return "apply"
	case SoftDelete:
		return "soft-delete"
	case Ignore:
		return "ignore"
	case Surface:
		return "surface"
	}
	return fmt.Sprintf("Disposition(%d)", int(d))
}

// Classify maps a fetch outcome to a disposition. Single-entity fetches
// treat 404 as SoftDelete; list fetches treat it like any other failure.
func Classify(o syncclient.Outcome) Disposition {
	switch {
	case o.OK:
		return Apply
	case o.Network, o.Aborted:
		return Ignore
	case o.Status == http.StatusNotFound:
		return SoftDelete
	}
	return Surface
}

// Alert is a user-facing error report.
type Alert struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AlertFunc receives alerts. It is called from the syncing goroutine.
type AlertFunc func(Alert)

// HandleError routes a failed outcome: network failures and cancellations are
// swallowed, anything else becomes exactly one alert titled msg.
func HandleError(o syncclient.Outcome, msg string, alert AlertFunc) {
	if o.Network || o.Aborted {
		return
	}
	content := fmt.Sprintf("Response status: %d", o.Status)
	if o.Err != nil {
		content = o.Err.Error()
	}
	if alert != nil {
		alert(Alert{Title: msg, Content: content})
	}
}

// Alert titles, one per sync operation.
const (
	msgEvents       = "Something went wrong when updating events"
	msgRegforms     = "Something went wrong when updating registration forms"
	msgRegform      = "Something went wrong when updating registration form"
	msgParticipants = "Something went wrong when updating participants"
	msgParticipant  = "Something went wrong when updating participant"
)
