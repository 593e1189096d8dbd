package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marcus/checkin/internal/dateparse"
	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/output"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:     "event",
	Short:   "Manage events",
	GroupID: "core",
}

var eventAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an event to this device",
	Long: `Adds an event and its registration forms, as found on a paired server,
then syncs them. Registration forms are only ever added here: sync keeps
them up to date but never discovers new ones.

Examples:
  checkin event add --server 1 --event 4242 --regform 17 --regform 18
  checkin event add --server 1 --event 4242 --regform 17 --no-sync`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverID, _ := cmd.Flags().GetInt64("server")
		indicoID, _ := cmd.Flags().GetInt64("event")
		regformIDs, _ := cmd.Flags().GetInt64Slice("regform")
		title, _ := cmd.Flags().GetString("title")
		dateStr, _ := cmd.Flags().GetString("date")
		noSync, _ := cmd.Flags().GetBool("no-sync")

		ev := &models.Event{ServerID: serverID, IndicoID: indicoID, Title: title}
		if dateStr != "" {
			d, err := dateparse.Parse(dateStr, time.Now())
			if err != nil {
				output.Error("invalid --date: %v", err)
				return err
			}
			ev.Date = d
		}

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		if err := addEvent(ctx, database, ev, regformIDs); err != nil {
			output.Error("%v", err)
			return err
		}
		fmt.Printf("ADDED event #%d (remote %d) with %d registration form(s)\n", ev.ID, ev.IndicoID, len(regformIDs))

		if noSync {
			return nil
		}
		var alerts alertLog
		s := newSyncer(database, alerts.add)
		if err := syncEventTree(ctx, s, database, *ev); err != nil {
			output.Error("sync failed: %v", err)
			return err
		}
		printAlerts(alerts.list())
		return nil
	},
}

// addEvent stores ev and one regform row per remote regform ID. Titles and
// counts stay empty until the next sync fills them in.
func addEvent(ctx context.Context, database *db.DB, ev *models.Event, regformIDs []int64) error {
	if ev.IndicoID <= 0 {
		return errors.New("--event is required")
	}
	if _, err := database.GetServer(ctx, ev.ServerID); err != nil {
		return err
	}
	if existing, err := database.FindEvent(ctx, ev.ServerID, ev.IndicoID); err == nil {
		return fmt.Errorf("event %d already added as #%d", ev.IndicoID, existing.ID)
	} else if !errors.Is(err, db.ErrNotFound) {
		return err
	}
	if strings.TrimSpace(ev.Title) == "" {
		ev.Title = fmt.Sprintf("Event %d", ev.IndicoID)
	}

	if err := database.CreateEvent(ctx, ev); err != nil {
		return err
	}
	for _, rid := range regformIDs {
		if rid <= 0 {
			return fmt.Errorf("invalid regform id %d", rid)
		}
		rf := &models.Regform{
			IndicoID: rid,
			EventID:  ev.ID,
			Title:    fmt.Sprintf("Registration form %d", rid),
		}
		if err := database.CreateRegform(ctx, rf); err != nil {
			return err
		}
	}
	return nil
}

var eventListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List events on this device",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		evs, err := database.ListEvents(cmd.Context(), all)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(evs)
		}
		if len(evs) == 0 {
			fmt.Println("No events. Add one with: checkin event add")
			return nil
		}
		for i := range evs {
			fmt.Println(output.FormatEventShort(&evs[i]))
		}
		return nil
	},
}

var regformCmd = &cobra.Command{
	Use:     "regform",
	Short:   "Inspect registration forms",
	GroupID: "core",
}

var regformListCmd = &cobra.Command{
	Use:     "list <event-id>",
	Aliases: []string{"ls"},
	Short:   "List the registration forms of an event",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventID, err := parseID("event", args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		all, _ := cmd.Flags().GetBool("all")

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		ev, err := database.GetEvent(cmd.Context(), eventID)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		rfs, err := database.ListRegforms(cmd.Context(), ev.ID, all)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(rfs)
		}
		fmt.Println(output.FormatEventShort(ev))
		if len(rfs) == 0 {
			fmt.Println("  (no registration forms)")
			return nil
		}
		for i := range rfs {
			fmt.Println("  " + output.FormatRegformShort(&rfs[i]))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventCmd, regformCmd)
	eventCmd.AddCommand(eventAddCmd, eventListCmd)
	regformCmd.AddCommand(regformListCmd)

	eventAddCmd.Flags().Int64("server", 1, "Local server ID")
	eventAddCmd.Flags().Int64("event", 0, "Event ID on the server (required)")
	eventAddCmd.Flags().Int64Slice("regform", nil, "Registration form ID on the server (repeatable)")
	eventAddCmd.Flags().String("title", "", "Title shown until the first sync")
	eventAddCmd.Flags().String("date", "", "Event date (YYYY-MM-DD, today, -2d, friday...)")
	eventAddCmd.Flags().Bool("no-sync", false, "Do not contact the server")

	eventListCmd.Flags().BoolP("all", "a", false, "Include events deleted upstream")
	eventListCmd.Flags().Bool("json", false, "Machine-readable JSON")

	regformListCmd.Flags().BoolP("all", "a", false, "Include forms deleted upstream")
	regformListCmd.Flags().Bool("json", false, "Machine-readable JSON")
}
