package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/live"
	"github.com/marcus/checkin/internal/output"
	checkinsync "github.com/marcus/checkin/internal/sync"
	"github.com/marcus/checkin/internal/syncconfig"
	"github.com/spf13/cobra"
)

// watchDebounce groups bursts of database file writes.
const watchDebounce = 250 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sync periodically and stream changes over a websocket",
	Long: `Runs a sync pass now and then on every interval, and pushes every local
change to websocket clients on /ws. Changes made by other checkin
processes on the same data directory are picked up too.

Message types: hello, change, alert, sync_complete.`,
	GroupID: "sync",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = syncconfig.GetServeAddr()
		}
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			interval = syncconfig.GetSyncInterval()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		srv := live.NewServer(addr)
		if err := srv.Start(); err != nil {
			output.Error("%v", err)
			return err
		}
		defer func() {
			if err := srv.Stop(); err != nil {
				slog.Error("serve: stop", "err", err)
			}
		}()
		unforward := srv.Forward(database)
		defer unforward()

		w, err := watchStore(database)
		if err != nil {
			// Same-process changes still flow; only cross-process ones are lost.
			slog.Warn("serve: cannot watch store files", "err", err)
		} else {
			defer w.Stop()
		}

		fmt.Printf("Serving on ws://%s/ws, syncing every %s\n", srv.Addr(), interval)
		var alerts alertLog
		s := newSyncer(database, alertBroadcaster(srv, &alerts))
		serveLoop(ctx, interval, func(ctx context.Context) {
			res := runPass(ctx, s, database)
			res.Alerts = alerts.drain()
			broadcastPass(srv, res)
		})
		slog.Info("serve: shutting down")
		return nil
	},
}

// serveLoop runs pass immediately, then on every tick, until ctx is done.
// Passes never overlap.
func serveLoop(ctx context.Context, interval time.Duration, pass func(context.Context)) {
	pass(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pass(ctx)
		}
	}
}

// watchStore turns writes to the database files by other processes into
// external change notifications.
func watchStore(database *db.DB) (*live.Watcher, error) {
	path := db.Path(database.BaseDir())
	names := []string{filepath.Base(path), filepath.Base(path) + "-wal"}
	w, err := live.NewWatcher(filepath.Dir(path), names, watchDebounce, database.NotifyExternal)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}

func alertBroadcaster(srv *live.Server, log *alertLog) checkinsync.AlertFunc {
	return func(a checkinsync.Alert) {
		log.add(a)
		msg, err := live.NewMessage(live.MessageAlert, live.AlertData{Title: a.Title, Content: a.Content})
		if err != nil {
			return
		}
		srv.Broadcast(msg)
	}
}

func broadcastPass(srv *live.Server, res passResult) {
	data := live.SyncCompleteData{Events: res.Events, Alerts: len(res.Alerts), Duration: res.Duration}
	if res.Err != nil {
		data.Error = res.Err.Error()
		slog.Error("serve: sync pass failed", "err", res.Err)
	}
	msg, err := live.NewMessage(live.MessageSyncComplete, data)
	if err != nil {
		return
	}
	srv.Broadcast(msg)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	serveCmd.Flags().Duration("interval", 0, "Time between sync passes (default from config)")
}
