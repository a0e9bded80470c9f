// Package hints builds the next-step suggestions attached to tool output.
package hints

import (
	"fmt"
	"strings"
)

// Hints suggests a follow-up to the calling agent.
type Hints struct {
	Next    string   `json:"next,omitempty"`
	Related []string `json:"related,omitempty"`
	Warning string   `json:"warning,omitempty"`
}

// Empty reports whether h carries nothing to show.
func (h Hints) Empty() bool {
	return h.Next == "" && len(h.Related) == 0 && h.Warning == ""
}

// Builder gates hints on configuration.
type Builder struct {
	enabled bool
}

// NewBuilder returns a Builder; a disabled one returns nil for every hint.
func NewBuilder(enabled bool) *Builder {
	return &Builder{enabled: enabled}
}

// Build returns h, or nil when hints are disabled or h is empty.
func (b *Builder) Build(h Hints) *Hints {
	if b == nil || !b.enabled || h.Empty() {
		return nil
	}
	return &h
}

// Tool names referenced by hints.
const (
	ToolLearn         = "datacore.learn"
	ToolPromote       = "datacore.promote"
	ToolForget        = "datacore.forget"
	ToolFeedback      = "datacore.feedback"
	ToolInject        = "datacore.inject"
	ToolRecall        = "datacore.recall"
	ToolSearch        = "datacore.search"
	ToolCapture       = "datacore.capture"
	ToolIngest        = "datacore.ingest"
	ToolStatus        = "datacore.status"
	ToolDiscover      = "datacore.discover"
	ToolInstall       = "datacore.install"
	ToolExport        = "datacore.export"
	ToolSessionStart  = "datacore.session.start"
	ToolSessionEnd    = "datacore.session.end"
	ToolModulesList   = "datacore.modules.list"
	ToolModulesInfo   = "datacore.modules.info"
	ToolModulesHealth = "datacore.modules.health"
)

func (b *Builder) Learn(active bool) *Hints {
	if active {
		return b.Build(Hints{
			Next:    "Engram is active and will appear in inject results.",
			Related: []string{ToolInject, ToolFeedback},
		})
	}
	return b.Build(Hints{
		Next:    "Engram saved as candidate. Promote it with " + ToolPromote + " once it proves useful.",
		Related: []string{ToolPromote, ToolStatus},
	})
}

func (b *Builder) Promote(promoted int) *Hints {
	next := "No engrams were promoted. Check the errors above."
	if promoted > 0 {
		next = fmt.Sprintf("Promoted %d engram(s). They will now appear in inject results.", promoted)
	}
	return b.Build(Hints{Next: next, Related: []string{ToolInject, ToolStatus}})
}

func (b *Builder) NotFound() *Hints {
	return b.Build(Hints{
		Next:    "Engram not found. Use " + ToolSearch + " or " + ToolStatus + " to find valid IDs.",
		Related: []string{ToolSearch, ToolStatus},
	})
}

func (b *Builder) Ambiguous(total int) *Hints {
	return b.Build(Hints{
		Next:    fmt.Sprintf("%d engrams match. Call %s again with an exact engram ID.", total, ToolForget),
		Related: []string{ToolForget},
	})
}

// Inject lists the injected personal IDs so the agent can send feedback.
func (b *Builder) Inject(ids []string) *Hints {
	next := "After task, call " + ToolFeedback + " on helpful/unhelpful engrams."
	if len(ids) > 0 {
		next += " Injected: " + strings.Join(ids, ", ")
	}
	h := Hints{Next: next, Related: []string{ToolFeedback, ToolSessionEnd}}
	if len(ids) == 0 {
		h.Warning = "No engrams matched. Learn some with " + ToolLearn + "."
	}
	return b.Build(h)
}

func (b *Builder) FeedbackBatch(positive, negative, neutral int) *Hints {
	return b.Build(Hints{
		Next:    fmt.Sprintf("Batch feedback recorded: %d positive, %d negative, %d neutral.", positive, negative, neutral),
		Related: []string{ToolSessionEnd, ToolStatus},
	})
}

func (b *Builder) Recall() *Hints {
	return b.Build(Hints{
		Next:    "Use " + ToolFeedback + " on helpful engrams, or " + ToolLearn + " to create new ones.",
		Related: []string{ToolFeedback, ToolLearn},
	})
}

func (b *Builder) SessionStart(hasTask bool) *Hints {
	if hasTask {
		return b.Build(Hints{
			Next:    "Work on your task. End with " + ToolSessionEnd + ".",
			Related: []string{ToolSessionEnd, ToolFeedback},
		})
	}
	return b.Build(Hints{
		Next:    "No task specified, showing journal and candidates only. Call " + ToolInject + " when ready.",
		Related: []string{ToolInject, ToolSessionEnd},
	})
}

func (b *Builder) SessionEnd(created int, status string) *Hints {
	next := "Session captured."
	if created > 0 {
		next = fmt.Sprintf("Session captured. %d engram(s) created as %s.", created, status)
	}
	return b.Build(Hints{Next: next, Related: []string{ToolSessionStart, ToolStatus}})
}

// Export warns when secrets were redacted from the exported text.
func (b *Builder) Export(preview bool, redactions int) *Hints {
	h := Hints{Related: []string{ToolDiscover, ToolInstall}}
	if preview {
		h.Next = "Review the preview, then call " + ToolExport + " again with confirm: true."
	} else {
		h.Next = "Pack written. Share the directory or publish it to a registry."
	}
	if redactions > 0 {
		h.Warning = fmt.Sprintf("%d secret(s) were redacted from exported text.", redactions)
	}
	return b.Build(h)
}

// Install warns about packs from untrusted publishers.
func (b *Builder) Install(trusted bool) *Hints {
	h := Hints{
		Next:    "Pack engrams on on_match packs now take part in " + ToolInject + ".",
		Related: []string{ToolInject, ToolStatus},
	}
	if !trusted {
		h.Warning = "Publisher is not in packs.trusted_publishers. Review the pack before relying on it."
	}
	return b.Build(h)
}
