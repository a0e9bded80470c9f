// Package main implements the engram CLI for manual operations against a
// local engram store.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/engramd/internal/config"
	"github.com/fyrsmithlabs/engramd/internal/logging"
	"github.com/fyrsmithlabs/engramd/internal/services"
	"github.com/fyrsmithlabs/engramd/internal/store"
)

// version information (set via ldflags during build)
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the persistent flags shared by every command.
type app struct {
	dataPath string
	corePath string
	jsonOut  bool
	verbose  bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "engram",
		Short: "CLI for the engram store",
		Long: `engram manages learned engrams, notes and engram packs in the local
storage root used by engramd.

The storage root is resolved from --data/--core, then DATACORE_PATH and
DATACORE_CORE_PATH, then ~/Data (full) or ~/Datacore (core).`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.dataPath, "data", "", "full storage root")
	root.PersistentFlags().StringVar(&a.corePath, "core", "", "core storage root")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print results as JSON")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newInitCmd(a),
		newLearnCmd(a),
		newPromoteCmd(a),
		newForgetCmd(a),
		newFeedbackCmd(a),
		newInjectCmd(a),
		newRecallCmd(a),
		newStatusCmd(a),
		newSearchCmd(a),
		newCaptureCmd(a),
		newScrubCmd(a),
		newPacksCmd(a),
		newStatuslineCmd(a),
		newMonitorCmd(),
	)
	return root
}

// layout resolves the storage root without touching the disk.
func (a *app) layout() (*store.Layout, error) {
	fullPath, corePath := a.dataPath, a.corePath
	if fullPath == "" && corePath == "" {
		boot, err := config.Load("")
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		fullPath, corePath = boot.Storage.Path, boot.Storage.CorePath
	}
	layout, err := store.Detect(fullPath, corePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect storage: %w", err)
	}
	return layout, nil
}

// open initializes the storage root if needed and builds the services.
func (a *app) open() (services.Registry, error) {
	layout, err := a.layout()
	if err != nil {
		return nil, err
	}
	if _, err := layout.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	cfg, err := config.Load(layout.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logCfg, err := logging.NewConfig(level, "console")
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return services.Build(layout, cfg, logger.Underlying(), version)
}

// render writes v as indented JSON when --json is set, otherwise calls text.
func (a *app) render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	if a.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(cmd.OutOrStdout())
	return nil
}

// readInput returns the named file, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}
