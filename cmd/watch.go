package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/marcus/checkin/internal/events"
	"github.com/marcus/checkin/internal/live"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/output"
	"github.com/spf13/cobra"
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\x1b[H\x1b[2J"

var participantWatchCmd = &cobra.Command{
	Use:   "watch <regform-id>",
	Short: "Follow the participant list of a form as it changes",
	Long: `Prints the participant list of a registration form and prints it again
whenever it changes, whether through a sync, a note, or another checkin
process. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		regformID, err := parseID("regform", args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		rf, err := database.GetRegform(ctx, regformID)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if w, err := watchStore(database); err == nil {
			defer w.Stop()
		}

		read := func(ctx context.Context) ([]models.Participant, error) {
			return database.ListParticipants(ctx, rf.ID, false)
		}
		done := live.Query(ctx,
			database,
			[]events.EntityType{events.EntityParticipants},
			read,
			func(ps []models.Participant, err error) {
				fmt.Print(clearScreen)
				fmt.Println(output.SectionHeader(rf.Title))
				if err != nil {
					output.Error("%v", err)
					return
				}
				fmt.Print(renderParticipantList(ps))
			})
		<-done
		return nil
	},
}

func renderParticipantList(ps []models.Participant) string {
	if len(ps) == 0 {
		return "No participants\n"
	}
	var (
		sb      strings.Builder
		checked int
	)
	for i := range ps {
		if ps[i].CheckedIn {
			checked++
		}
		sb.WriteString(output.FormatParticipantShort(&ps[i]))
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n%d/%d checked in\n", checked, len(ps))
	return sb.String()
}

func init() {
	participantCmd.AddCommand(participantWatchCmd)
}
