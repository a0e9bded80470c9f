package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/services"
)

func newLearnCmd(a *app) *cobra.Command {
	var in engram.LearnInput
	var kind, visibility string

	cmd := &cobra.Command{
		Use:   "learn <statement>",
		Short: "Record a new engram",
		Long: `Record a new personal engram. It starts as a candidate unless
engrams.auto_promote is set.

Examples:
  engram learn "Wrap errors with %w when adding context" --tags go,errors
  engram learn "Use the staging bucket for fixtures" --scope project:api --type procedural`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.open()
			if err != nil {
				return err
			}
			in.Statement = strings.Join(args, " ")
			in.Type = engram.Kind(kind)
			in.Visibility = engram.Visibility(visibility)

			e, err := reg.Engrams().Learn(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.render(cmd, e, func(w io.Writer) {
				fmt.Fprintf(w, "Learned %s (%s)\n", e.ID, e.Status)
			})
		},
	}

	cmd.Flags().StringVar(&kind, "type", "", "behavioral, terminological, procedural or architectural")
	cmd.Flags().StringVar(&in.Scope, "scope", "", "scope such as global or project:name")
	cmd.Flags().StringSliceVar(&in.Tags, "tags", nil, "comma-separated tags")
	cmd.Flags().StringVar(&in.Domain, "domain", "", "knowledge domain")
	cmd.Flags().StringVar(&in.Rationale, "rationale", "", "why the engram holds")
	cmd.Flags().StringVar(&visibility, "visibility", "", "private, public or template")
	return cmd
}

func newPromoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <id>...",
		Short: "Activate candidate engrams",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.open()
			if err != nil {
				return err
			}
			res, err := reg.Engrams().Promote(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.render(cmd, res, func(w io.Writer) {
				for _, e := range res.Promoted {
					fmt.Fprintf(w, "Promoted %s\n", e.ID)
				}
				for _, ie := range res.Errors {
					fmt.Fprintf(w, "Skipped %s: %s\n", ie.ID, ie.Error)
				}
			})
		},
	}
}

func newForgetCmd(a *app) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "forget [id]",
		Short: "Retire an engram",
		Long: `Retire an engram by ID, or by searching statements, IDs and tags.
A search matching several engrams lists them and retires nothing.

Examples:
  engram forget ENG-2026-0412-003
  engram forget --search "staging bucket"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (search != "") {
				return errors.New("provide exactly one of an id or --search")
			}
			reg, err := a.open()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				e, err := reg.Engrams().Forget(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.render(cmd, e, func(w io.Writer) {
					fmt.Fprintf(w, "Retired %s\n", e.ID)
				})
			}

			res, err := reg.Engrams().ForgetSearch(cmd.Context(), search)
			if errors.Is(err, engram.ErrAmbiguous) && res != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d engrams match %q; retire one by ID:\n", res.TotalMatches, search)
				for _, e := range res.Matches {
					fmt.Fprintf(out, "  %s  %s\n", e.ID, e.Statement)
				}
				return err
			}
			if err != nil {
				return err
			}
			return a.render(cmd, res.Retired, func(w io.Writer) {
				fmt.Fprintf(w, "Retired %s: %s\n", res.Retired.ID, res.Retired.Statement)
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "retire the single engram matching this text")
	return cmd
}

// feedbackView is the printable outcome of one signal.
type feedbackView struct {
	EngramID string           `json:"engram_id"`
	Signal   engram.Signal    `json:"signal"`
	Source   string           `json:"source,omitempty"`
	Counts   *engram.Feedback `json:"counts,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func newFeedbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <id> <positive|negative|neutral> [<id> <signal>]...",
		Short: "Record feedback on injected engrams",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return errors.New("expected id and signal pairs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			signals := make([]engram.FeedbackSignal, 0, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				sig, err := engram.ParseSignal(args[i+1])
				if err != nil {
					return err
				}
				signals = append(signals, engram.FeedbackSignal{EngramID: args[i], Signal: sig})
			}

			reg, err := a.open()
			if err != nil {
				return err
			}
			res, err := reg.Engrams().FeedbackBatch(cmd.Context(), signals)
			if err != nil {
				return err
			}

			views := make([]feedbackView, 0, len(res.Results))
			for _, item := range res.Results {
				v := feedbackView{EngramID: item.EngramID, Signal: item.Signal, Source: item.Source}
				if item.Err != nil {
					v.Error = item.Err.Error()
				} else {
					counts := item.Counts
					v.Counts = &counts
				}
				views = append(views, v)
			}
			return a.render(cmd, views, func(w io.Writer) {
				for _, v := range views {
					if v.Error != "" {
						fmt.Fprintf(w, "%s: %s\n", v.EngramID, v.Error)
						continue
					}
					fmt.Fprintf(w, "%s: %s recorded (+%d/-%d/=%d)\n",
						v.EngramID, v.Signal, v.Counts.Positive, v.Counts.Negative, v.Counts.Neutral)
				}
				fmt.Fprintf(w, "Summary: %d positive, %d negative, %d neutral\n",
					res.Summary.Positive, res.Summary.Negative, res.Summary.Neutral)
			})
		},
	}
}

func newInjectCmd(a *app) *cobra.Command {
	var req engram.InjectRequest
	var minRelevance float64

	cmd := &cobra.Command{
		Use:   "inject <prompt>",
		Short: "Select engrams for a prompt within a token budget",
		Long: `Score personal and pack engrams against a prompt and print the
directives and considerations that fit the token budget. Selected
personal engrams are reinforced.

Examples:
  engram inject "refactor the config loader"
  engram inject "write the release notes" --max-tokens 400 --scope project:docs`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.open()
			if err != nil {
				return err
			}
			req.Prompt = strings.Join(args, " ")
			if cmd.Flags().Changed("min-relevance") {
				req.MinRelevance = &minRelevance
			}

			res, err := reg.Engrams().Inject(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.render(cmd, res, func(w io.Writer) {
				if res.Count == 0 {
					fmt.Fprintln(w, "No relevant engrams.")
					return
				}
				fmt.Fprint(w, res.Text)
				if !strings.HasSuffix(res.Text, "\n") {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "\n%d engram(s), ~%d tokens\n", res.Count, res.TokensUsed)
			})
		},
	}
	cmd.Flags().StringVar(&req.Scope, "scope", "", "only engrams matching this scope")
	cmd.Flags().IntVar(&req.MaxTokens, "max-tokens", 0, "token budget (default from config)")
	cmd.Flags().Float64Var(&minRelevance, "min-relevance", 0, "minimum score (default from config)")
	return cmd
}

func newRecallCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recall <topic>",
		Short: "List engrams related to a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.open()
			if err != nil {
				return err
			}
			hits, err := reg.Engrams().Recall(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			return a.render(cmd, hits, func(w io.Writer) {
				if len(hits) == 0 {
					fmt.Fprintln(w, "No matching engrams.")
					return
				}
				for _, h := range hits {
					fmt.Fprintf(w, "%s  [%d]  %s\n", h.ID, h.Score, h.Statement)
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", engram.DefaultRecallLimit, "maximum results")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engram, pack and note counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.open()
			if err != nil {
				return err
			}
			st, err := services.GetStatus(cmd.Context(), reg)
			if err != nil {
				return err
			}
			return a.render(cmd, st, func(w io.Writer) {
				fmt.Fprintf(w, "engram %s (%s storage at %s)\n", st.Version, st.Mode, reg.Layout().BasePath)
				fmt.Fprintf(w, "Engrams:    %d (active %d, candidate %d, dormant %d, retired %d)\n",
					st.Engrams, st.ByStatus["active"], st.ByStatus["candidate"], st.ByStatus["dormant"], st.ByStatus["retired"])
				fmt.Fprintf(w, "Health:     %d active, %d fading, %d dormant, %d retirement candidates\n",
					st.ByHealth["active"], st.ByHealth["fading"], st.ByHealth["dormant"], st.ByHealth["retirement_candidate"])
				fmt.Fprintf(w, "Packs:      %d (%d engrams)\n", st.Packs, st.PackEngrams)
				fmt.Fprintf(w, "Notes:      %d journal, %d knowledge\n", st.JournalEntries, st.KnowledgeNotes)
				if st.Modules > 0 {
					fmt.Fprintf(w, "Modules:    %d\n", st.Modules)
				}
				if st.ScalingHint != "" {
					fmt.Fprintf(w, "\n%s\n", st.ScalingHint)
				}
				for _, r := range st.Recommendations {
					fmt.Fprintf(w, "- %s\n", r)
				}
			})
		},
	}
}
