package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

func newScrubCmd(a *app) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "scrub [file|-]",
		Short: "Redact secrets from a file or stdin",
		Long: `Redact secrets using the configured rules and the storage root's
.gitleaks.toml allowlist.

Examples:
  # Scrub a file
  engram scrub .env

  # Scrub from stdin
  cat output.log | engram scrub -

  # Fail when anything would be redacted
  engram scrub --check notes.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			reg, err := a.open()
			if err != nil {
				return err
			}
			scrubber := reg.Scrubber()
			if scrubber == nil {
				return errors.New("secret scrubbing is not configured")
			}

			res := scrubber.Scrub(content)
			if check {
				if res.HasFindings() {
					rules := make([]string, 0, len(res.ByRule))
					for id := range res.ByRule {
						rules = append(rules, id)
					}
					sort.Strings(rules)
					for _, id := range rules {
						cmd.PrintErrf("%s: %d\n", id, res.ByRule[id])
					}
					return fmt.Errorf("%d secret(s) found", len(res.Findings))
				}
				return nil
			}

			return a.render(cmd, res, func(w io.Writer) {
				fmt.Fprint(w, res.Scrubbed)
			})
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "report findings instead of printing scrubbed content")
	return cmd
}
