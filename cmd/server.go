package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/output"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errURLRequired = errors.New("server URL is required")

var serverCmd = &cobra.Command{
	Use:     "server",
	Short:   "Manage check-in servers",
	GroupID: "core",
}

var serverAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Pair with a check-in server",
	Long: `Stores a server's base URL and access token. Missing values are
prompted for when running in a terminal.

Examples:
  checkin server add --url https://events.example.org --token abc123
  checkin server add                 # interactive`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &models.Server{}
		s.BaseURL, _ = cmd.Flags().GetString("url")
		s.ClientID, _ = cmd.Flags().GetString("client-id")
		s.Scope, _ = cmd.Flags().GetString("scope")
		s.AuthToken, _ = cmd.Flags().GetString("token")

		if (s.BaseURL == "" || s.AuthToken == "") && term.IsTerminal(int(os.Stdin.Fd())) {
			if err := serverForm(s).Run(); err != nil {
				return err
			}
		}

		if err := normalizeServer(s); err != nil {
			output.Error("%v", err)
			return err
		}

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.CreateServer(cmd.Context(), s); err != nil {
			output.Error("failed to add server: %v", err)
			return err
		}
		fmt.Printf("ADDED server #%d %s\n", s.ID, s.BaseURL)
		return nil
	},
}

var serverListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List paired servers",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		servers, err := database.ListServers(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return output.JSON(servers)
		}
		if len(servers) == 0 {
			fmt.Println("No servers. Add one with: checkin server add")
			return nil
		}
		for _, s := range servers {
			line := fmt.Sprintf("#%d  %s", s.ID, s.BaseURL)
			if s.ClientID != "" {
				line += fmt.Sprintf("  client:%s", s.ClientID)
			}
			fmt.Println(line)
		}
		return nil
	},
}

// serverForm prompts for the fields of s that are still empty.
func serverForm(s *models.Server) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Value(&s.BaseURL).
				Placeholder("https://events.example.org").
				Validate(func(v string) error {
					_, err := parseServerURL(v)
					return err
				}),
			huh.NewInput().
				Title("Client ID").
				Value(&s.ClientID),
			huh.NewInput().
				Title("Scope").
				Value(&s.Scope).
				Placeholder("registrants"),
			huh.NewInput().
				Title("Access token").
				Value(&s.AuthToken).
				EchoMode(huh.EchoModePassword),
		).Title("Pair server"),
	)
}

func parseServerURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errURLRequired
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: want http(s)://host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// normalizeServer validates s and canonicalizes its URL.
func normalizeServer(s *models.Server) error {
	base, err := parseServerURL(s.BaseURL)
	if err != nil {
		return err
	}
	s.BaseURL = base
	s.ClientID = strings.TrimSpace(s.ClientID)
	s.Scope = strings.TrimSpace(s.Scope)
	s.AuthToken = strings.TrimSpace(s.AuthToken)
	return nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.AddCommand(serverAddCmd, serverListCmd)

	serverAddCmd.Flags().String("url", "", "Server base URL")
	serverAddCmd.Flags().String("client-id", "", "OAuth client ID")
	serverAddCmd.Flags().String("scope", "", "OAuth scope")
	serverAddCmd.Flags().String("token", "", "Access token")

	serverListCmd.Flags().Bool("json", false, "Machine-readable JSON")
}
