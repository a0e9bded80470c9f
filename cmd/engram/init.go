package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the storage root",
		Long: `Create the directories, an empty engram store and a commented
config.yaml in the resolved storage root. Existing files are never
overwritten.

Examples:
  # Initialize ~/Datacore
  engram init

  # Initialize a project-local root
  engram init --core ./.engrams`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := a.layout()
			if err != nil {
				return err
			}
			firstRun, err := layout.Init()
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			out := map[string]any{
				"mode":      layout.Mode,
				"path":      layout.BasePath,
				"first_run": firstRun,
			}
			return a.render(cmd, out, func(w io.Writer) {
				if firstRun {
					fmt.Fprintf(w, "Initialized %s storage at %s\n", layout.Mode, layout.BasePath)
					return
				}
				fmt.Fprintf(w, "Storage already initialized at %s\n", layout.BasePath)
			})
		},
	}
}
