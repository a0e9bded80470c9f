package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/engramd/internal/monitor"
	"github.com/fyrsmithlabs/engramd/internal/services"
)

func newStatuslineCmd(a *app) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "statusline",
		Short: "Print a one-line status for editor status bars",
		Long: `Print engram counts as a single line suitable for an editor or
agent status bar. Reads the local store unless --server is given.

Examples:
  engram statusline
  engram statusline --server http://localhost:9191`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var st *services.Status
			if serverURL != "" {
				s, err := monitor.NewStatusClient(serverURL).Status(cmd.Context())
				if err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), formatStatusline(nil))
					return nil
				}
				st = s
			} else {
				reg, err := a.open()
				if err != nil {
					return err
				}
				st, err = services.GetStatus(cmd.Context(), reg)
				if err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatStatusline(st))
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "query a running engramd instead of the local store")
	return cmd
}

// formatStatusline renders st compactly. A nil status means unreachable.
func formatStatusline(st *services.Status) string {
	if st == nil {
		return "\033[31m\U0001f534\033[0m engramd unreachable"
	}

	parts := []string{getHealthIcon(st)}
	parts = append(parts, fmt.Sprintf("\U0001f9e0%d/%d", st.ByStatus["active"], st.Engrams))
	if c := st.ByStatus["candidate"]; c > 0 {
		parts = append(parts, fmt.Sprintf("\U0001f331%d", c))
	}
	if st.Packs > 0 {
		parts = append(parts, fmt.Sprintf("\U0001f4e6%d", st.Packs))
	}
	parts = append(parts, fmt.Sprintf("\U0001f4d3%d", st.JournalEntries))
	return strings.Join(parts, " │ ")
}

// getHealthIcon is yellow while follow-ups are pending.
func getHealthIcon(st *services.Status) string {
	if len(st.Recommendations) > 0 || st.ByHealth["retirement_candidate"] > 0 {
		return "\U0001f7e1"
	}
	return "\U0001f7e2"
}
