package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/output"
	checkinsync "github.com/marcus/checkin/internal/sync"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [event-id]",
	Short: "Bring local data up to date",
	Long: `Fetches every event on this device, then its registration forms, then
their participants, and applies the differences locally. With an event ID
only that event is synced.

Unreachable servers are skipped silently; other failures are reported and
do not stop the rest of the run.`,
	GroupID: "sync",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		var alerts alertLog
		s := newSyncer(database, alerts.add)

		var res passResult
		if len(args) == 1 {
			eventID, err := parseID("event", args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}
			ev, err := database.GetEvent(ctx, eventID)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			start := time.Now()
			res = passResult{Events: 1, Err: syncEventTree(ctx, s, database, *ev), Duration: time.Since(start)}
		} else {
			res = runPass(ctx, s, database)
		}
		res.Alerts = alerts.list()

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			if res.Err != nil {
				output.JSONError(output.ErrCodeSyncFailed, res.Err.Error())
				return res.Err
			}
			return output.JSON(res.summary())
		}

		printAlerts(res.Alerts)
		if res.Err != nil {
			output.Error("sync failed: %v", res.Err)
			return res.Err
		}
		if ctx.Err() != nil {
			output.Warning("sync interrupted")
			return nil
		}
		output.Success("SYNCED %d event(s) in %s", res.Events, res.Duration.Round(time.Millisecond))
		if n := len(res.Alerts); n > 0 {
			output.Warning("%d problem(s) reported", n)
		}
		return nil
	},
}

// passResult describes one sync pass.
type passResult struct {
	Events   int
	Alerts   []checkinsync.Alert
	Duration time.Duration
	Err      error
}

type passSummary struct {
	Events     int                 `json:"events"`
	DurationMS int64               `json:"duration_ms"`
	Alerts     []checkinsync.Alert `json:"alerts"`
}

func (r passResult) summary() passSummary {
	alerts := r.Alerts
	if alerts == nil {
		alerts = []checkinsync.Alert{}
	}
	return passSummary{Events: r.Events, DurationMS: r.Duration.Milliseconds(), Alerts: alerts}
}

// runPass syncs everything once. Alerts are collected by the syncer's
// AlertFunc, not here.
func runPass(ctx context.Context, s *checkinsync.Syncer, database *db.DB) passResult {
	start := time.Now()
	err := s.SyncAll(ctx)
	res := passResult{Err: err, Duration: time.Since(start)}
	if evs, lerr := database.ListEvents(ctx, false); lerr == nil {
		res.Events = len(evs)
	}
	return res
}

// syncEventTree syncs one event, its regforms and their participants.
// An event that turns out to be deleted upstream stops the walk.
func syncEventTree(ctx context.Context, s *checkinsync.Syncer, database *db.DB, ev models.Event) error {
	if err := s.SyncEvent(ctx, ev); err != nil {
		return err
	}
	fresh, err := database.GetEvent(ctx, ev.ID)
	if err != nil {
		return err
	}
	if fresh.Deleted {
		output.Warning("event #%d was deleted on the server", ev.ID)
		return nil
	}
	if err := s.SyncRegforms(ctx, *fresh); err != nil {
		return err
	}
	rfs, err := database.ListRegforms(ctx, fresh.ID, false)
	if err != nil {
		return err
	}
	for _, rf := range rfs {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.SyncParticipants(ctx, *fresh, rf); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("json", false, "Machine-readable JSON")
}

