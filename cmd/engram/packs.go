package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/engramd/internal/packs"
)

func newPacksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packs",
		Short: "Install, export and discover engram packs",
	}
	cmd.AddCommand(
		newPacksListCmd(a),
		newPacksInstallCmd(a),
		newPacksExportCmd(a),
		newPacksDiscoverCmd(a),
		newPacksVerifyCmd(a),
	)
	return cmd
}

func newPacksListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed packs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.open()
			if err != nil {
				return err
			}
			installed, err := reg.Packs().Installed(cmd.Context())
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(installed))
			for id := range installed {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			return a.render(cmd, installed, func(w io.Writer) {
				if len(ids) == 0 {
					fmt.Fprintln(w, "No packs installed.")
					return
				}
				for _, id := range ids {
					m := installed[id]
					fmt.Fprintf(w, "%s  %s  v%s  %s\n", id, m.Name, m.Version, trustLabel(reg.Packs().Trusted(m.Creator)))
				}
			})
		},
	}
}

func newPacksInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install <dir|git-url>",
		Short: "Install or upgrade a pack",
		Long: `Install a pack from a local directory or a git URL. The same
version is left untouched; a different version replaces the installed one.

Examples:
  engram packs install ./go-practices
  engram packs install https://github.com/example/engram-packs.git`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.open()
			if err != nil {
				return err
			}
			res, err := reg.Packs().Install(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd, res, func(w io.Writer) {
				switch res.Status {
				case packs.StatusUpgraded:
					fmt.Fprintf(w, "Upgraded %s %s -> %s\n", res.PackID, res.PreviousVersion, res.Version)
				case packs.StatusAlreadyCurrent:
					fmt.Fprintf(w, "%s %s is already installed\n", res.PackID, res.Version)
				default:
					fmt.Fprintf(w, "Installed %s %s\n", res.PackID, res.Version)
				}
				fmt.Fprintf(w, "Creator: %s (%s)\n", orDash(res.Creator), trustLabel(res.Trusted))
			})
		},
	}
}

func newPacksExportCmd(a *app) *cobra.Command {
	var req packs.ExportRequest

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export public engrams as a new pack",
		Long: `Export active public or template engrams as a pack. Without
--confirm only a preview is printed. Secrets are redacted from the
exported statements.

Examples:
  engram packs export --name "Go Practices" --tags go
  engram packs export --name "Go Practices" --tags go --confirm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.open()
			if err != nil {
				return err
			}
			res, err := reg.Packs().Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.render(cmd, res, func(w io.Writer) {
				if res.Preview != nil {
					fmt.Fprintf(w, "Would export %d engram(s) to %s:\n", res.Preview.Count, res.Preview.PackPath)
					for _, s := range res.Preview.Statements {
						fmt.Fprintf(w, "  - %s\n", s)
					}
					fmt.Fprintln(w, "Re-run with --confirm to write the pack.")
				} else {
					fmt.Fprintf(w, "Exported %d engram(s) as %s to %s\n", res.Count, res.PackID, res.PackPath)
				}
				if res.Redactions > 0 {
					fmt.Fprintf(w, "Redacted %d secret(s).\n", res.Redactions)
				}
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "pack name (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "pack description")
	cmd.Flags().StringSliceVar(&req.IDs, "ids", nil, "export exactly these engram IDs")
	cmd.Flags().StringSliceVar(&req.FilterTags, "tags", nil, "export engrams carrying any of these tags")
	cmd.Flags().StringVar(&req.FilterDomain, "domain", "", "export engrams of this domain")
	cmd.Flags().BoolVar(&req.Confirm, "confirm", false, "write the pack")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPacksDiscoverCmd(a *app) *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "discover [query]",
		Short: "Search the pack registry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.open()
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			found, err := reg.Packs().Discover(cmd.Context(), query, tags)
			if err != nil {
				return err
			}
			return a.render(cmd, found, func(w io.Writer) {
				if len(found) == 0 {
					fmt.Fprintln(w, "No packs found.")
					return
				}
				for _, d := range found {
					state := "available"
					switch {
					case d.Upgradeable:
						state = "upgrade " + d.InstalledVersion + " -> " + d.Version
					case d.Installed:
						state = "installed"
					}
					fmt.Fprintf(w, "%s  v%s  [%s]  %s\n", d.ID, d.Version, state, d.Description)
				}
			})
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "only packs carrying any of these tags")
	return cmd
}

func newPacksVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <pack-id>",
		Short: "Check an installed pack against its install checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.open()
			if err != nil {
				return err
			}
			res, err := reg.Packs().Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.render(cmd, res, func(w io.Writer) {
				if res.Valid {
					fmt.Fprintf(w, "%s: checksum ok\n", res.PackID)
					return
				}
				fmt.Fprintf(w, "%s: checksum mismatch\n  expected %s\n  actual   %s\n", res.PackID, res.Expected, res.Actual)
			}); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("pack %s was modified after install", res.PackID)
			}
			return nil
		},
	}
}

func trustLabel(trusted bool) string {
	if trusted {
		return "trusted"
	}
	return "untrusted"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
