package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/engramd/internal/notes"
)

func newSearchCmd(a *app) *cobra.Command {
	var scope string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search journal entries and knowledge notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := notes.ParseScope(scope)
			if err != nil {
				return err
			}
			reg, err := a.open()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = reg.Config().Search.MaxResults
			}

			hits, err := reg.Notes().Search(strings.Join(args, " "), notes.SearchOptions{
				Scope:         sc,
				Limit:         limit,
				SnippetLength: reg.Config().Search.SnippetLength,
			})
			if err != nil {
				return err
			}
			return a.render(cmd, hits, func(w io.Writer) {
				if len(hits) == 0 {
					fmt.Fprintln(w, "No matches.")
					return
				}
				for _, h := range hits {
					fmt.Fprintf(w, "%s (%d)\n  %s\n", h.Path, h.Score, strings.ReplaceAll(h.Snippet, "\n", " "))
				}
			})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "all", "journal, knowledge or all")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (default from config)")
	return cmd
}

func newCaptureCmd(a *app) *cobra.Command {
	var in notes.CaptureInput
	var kind string

	cmd := &cobra.Command{
		Use:   "capture [file|-]",
		Short: "Append to the journal or write a knowledge note",
		Long: `Capture content from a file or stdin. Journal captures append a
timestamped section to today's entry; knowledge captures write a new note
with YAML frontmatter.

Examples:
  echo "Fixed the flaky watcher test" | engram capture
  engram capture notes.md --type knowledge --title "Watcher debounce"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(content) == "" {
				return errors.New("nothing to capture")
			}
			reg, err := a.open()
			if err != nil {
				return err
			}

			in.Type = notes.Kind(kind)
			in.Content = content
			path, err := reg.Notes().Capture(in)
			if err != nil {
				return err
			}
			out := map[string]any{"path": path, "type": in.Type}
			return a.render(cmd, out, func(w io.Writer) {
				fmt.Fprintf(w, "Captured to %s\n", path)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "type", string(notes.KindJournal), "journal or knowledge")
	cmd.Flags().StringVar(&in.Title, "title", "", "knowledge note title")
	cmd.Flags().StringSliceVar(&in.Tags, "tags", nil, "comma-separated tags")
	return cmd
}
