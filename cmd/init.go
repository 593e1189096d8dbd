package cmd

import (
	"fmt"
	"os"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/output"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the local store",
	Long:    `Creates the data directory and the SQLite database. Safe to run again: pending schema migrations are applied.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := getDataDir()
		_, statErr := os.Stat(db.Path(dir))

		database, err := db.Initialize(dir)
		if err != nil {
			output.Error("failed to initialize database: %v", err)
			return err
		}
		defer database.Close()

		v, err := database.GetSchemaVersion()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if statErr == nil {
			output.Info("%s already exists (schema v%d)", db.Path(dir), v)
			return nil
		}
		fmt.Printf("INITIALIZED %s (schema v%d)\n", db.Path(dir), v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
