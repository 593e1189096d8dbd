package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	stdsync "sync"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/output"
	"github.com/marcus/checkin/internal/suggest"
	checkinsync "github.com/marcus/checkin/internal/sync"
	"github.com/marcus/checkin/internal/syncclient"
	"github.com/marcus/checkin/internal/syncconfig"
	"github.com/spf13/pflag"
)

// openStore opens the local store, printing the error for the user.
func openStore() (*db.DB, error) {
	database, err := db.Open(getDataDir())
	if err != nil {
		output.Error("%v", err)
		return nil, err
	}
	return database, nil
}

// parseID parses a positive local or remote ID argument.
func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

var participantStates = []string{
	string(models.StateComplete), string(models.StatePending), string(models.StateUnpaid),
	string(models.StateRejected), string(models.StateWithdrawn),
}

// stateFilter is a repeatable --state flag restricting participant lists.
type stateFilter []models.ParticipantState

var _ pflag.Value = (*stateFilter)(nil)

func (f *stateFilter) String() string {
	parts := make([]string, len(*f))
	for i, s := range *f {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func (f *stateFilter) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		s := models.ParticipantState(strings.ToLower(strings.TrimSpace(part)))
		if !s.IsValid() {
			return fmt.Errorf("unknown state %q%s", part, suggest.Hint(part, participantStates))
		}
		*f = append(*f, s)
	}
	return nil
}

func (f *stateFilter) Type() string { return "state" }

// Match reports whether s passes the filter. An empty filter passes all.
func (f stateFilter) Match(s models.ParticipantState) bool {
	if len(f) == 0 {
		return true
	}
	for _, want := range f {
		if want == s {
			return true
		}
	}
	return false
}

// alertLog collects alerts raised during a sync run. Safe for concurrent use.
type alertLog struct {
	mu     stdsync.Mutex
	alerts []checkinsync.Alert
}

func (l *alertLog) add(a checkinsync.Alert) {
	l.mu.Lock()
	l.alerts = append(l.alerts, a)
	l.mu.Unlock()
}

func (l *alertLog) list() []checkinsync.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]checkinsync.Alert(nil), l.alerts...)
}

// drain returns the collected alerts and forgets them.
func (l *alertLog) drain() []checkinsync.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.alerts
	l.alerts = nil
	return out
}

// printAlerts writes each alert to stderr.
func printAlerts(alerts []checkinsync.Alert) {
	for _, a := range alerts {
		fmt.Fprintln(os.Stderr, output.FormatAlert(a.Title, a.Content))
	}
}

// newSyncer wires the local store to the configured servers.
func newSyncer(database *db.DB, alert checkinsync.AlertFunc) *checkinsync.Syncer {
	dir := syncclient.NewDirectory(database, syncconfig.GetFetchTimeout(), syncconfig.GetUserAgent())
	return checkinsync.New(database, dir, alert,
		checkinsync.WithConcurrency(syncconfig.GetSyncConcurrency()))
}
