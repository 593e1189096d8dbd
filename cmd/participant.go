package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/input"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/output"
	"github.com/spf13/cobra"
)

var participantCmd = &cobra.Command{
	Use:     "participant",
	Aliases: []string{"p"},
	Short:   "Inspect participants and edit their notes",
	GroupID: "core",
}

var listStates stateFilter

var participantListCmd = &cobra.Command{
	Use:     "list <regform-id>",
	Aliases: []string{"ls"},
	Short:   "List the participants of a registration form",
	Long: `Lists participants sorted by name.

Examples:
  checkin participant list 3
  checkin participant list 3 --state complete,unpaid
  checkin participant list 3 --checked-in=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		regformID, err := parseID("regform", args[0])
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

		ps, err := database.ListParticipants(cmd.Context(), regformID, all)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		var checkedIn *bool
		if cmd.Flags().Changed("checked-in") {
			v, _ := cmd.Flags().GetBool("checked-in")
			checkedIn = &v
		}
		ps = filterParticipants(ps, listStates, checkedIn)

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(ps)
		}
		if len(ps) == 0 {
			fmt.Println("No participants")
			return nil
		}
		for i := range ps {
			fmt.Println(output.FormatParticipantShort(&ps[i]))
		}
		return nil
	},
}

func filterParticipants(ps []models.Participant, states stateFilter, checkedIn *bool) []models.Participant {
	out := ps[:0:0]
	for _, p := range ps {
		if !states.Match(p.State) {
			continue
		}
		if checkedIn != nil && p.CheckedIn != *checkedIn {
			continue
		}
		out = append(out, p)
	}
	return out
}

var participantShowCmd = &cobra.Command{
	Use:   "show <participant-id>",
	Short: "Show a participant with their registration data",
	Long: `Shows a participant. With --sync the event, the form and the participant
are refreshed from the server first; offline, the local copy is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("participant", args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		p, err := database.GetParticipant(ctx, id)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if refresh, _ := cmd.Flags().GetBool("sync"); refresh {
			rf, err := database.GetRegform(ctx, p.RegformID)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			var alerts alertLog
			s := newSyncer(database, alerts.add)
			if err := s.SyncParticipantPage(ctx, rf.EventID, rf.ID, p.ID); err != nil {
				output.Error("sync failed: %v", err)
				return err
			}
			printAlerts(alerts.list())
			if p, err = database.GetParticipant(ctx, id); err != nil {
				output.Error("%v", err)
				return err
			}
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(p)
		}
		return printParticipant(p)
	},
}

func printParticipant(p *models.Participant) error {
	fmt.Print(output.FormatParticipantLong(p))

	sections, err := p.Sections()
	if err != nil {
		output.Warning("registration data is unreadable: %v", err)
		return nil
	}
	md := output.RegistrationMarkdown(sections)
	if md == "" {
		return nil
	}
	rendered, err := output.RenderMarkdown(md)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	fmt.Print(rendered)
	return nil
}

var participantNoteCmd = &cobra.Command{
	Use:   "note <participant-id> [text...]",
	Short: "Set the local notes of a participant",
	Long: `Replaces the notes of a participant. Notes stay on this device and are
kept across syncs. Use --clear to remove them.

Examples:
  checkin participant note 12 needs a printed badge
  checkin participant note 12 @notes.txt
  echo "arrives late" | checkin participant note 12 -`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("participant", args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		clearNotes, _ := cmd.Flags().GetBool("clear")
		notes, err := input.Join(args[1:], os.Stdin)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if notes == "" && !clearNotes {
			err := errors.New("note text is required (or --clear)")
			output.Error("%v", err)
			return err
		}

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.UpdateParticipantNotes(cmd.Context(), id, notes); err != nil {
			output.Error("%v", err)
			return err
		}
		if notes == "" {
			fmt.Printf("CLEARED notes of #%d\n", id)
		} else {
			fmt.Printf("NOTED #%d\n", id)
		}
		return nil
	},
}

var ticketCmd = &cobra.Command{
	Use:     "ticket <secret>",
	Short:   "Look up a participant by ticket secret",
	GroupID: "core",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		p, err := database.FindParticipantBySecret(cmd.Context(), strings.TrimSpace(args[0]))
		if errors.Is(err, db.ErrNotFound) {
			output.Error("no participant holds this ticket")
			return err
		}
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(p)
		}
		return printParticipant(p)
	},
}

func init() {
	rootCmd.AddCommand(participantCmd, ticketCmd)
	participantCmd.AddCommand(participantListCmd, participantShowCmd, participantNoteCmd)

	participantListCmd.Flags().Var(&listStates, "state", "Only show these states (complete, pending, unpaid, rejected, withdrawn)")
	participantListCmd.Flags().Bool("checked-in", false, "Only show participants with this check-in status")
	participantListCmd.Flags().BoolP("all", "a", false, "Include participants deleted upstream")
	participantListCmd.Flags().Bool("json", false, "Machine-readable JSON")

	participantShowCmd.Flags().Bool("sync", false, "Refresh from the server first")
	participantShowCmd.Flags().Bool("json", false, "Machine-readable JSON")

	participantNoteCmd.Flags().Bool("clear", false, "Remove the notes")

	ticketCmd.Flags().Bool("json", false, "Machine-readable JSON")
}
