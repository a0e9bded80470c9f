package engram

import (
	"strings"
)

// Verbosity thresholds for injected text.
const (
	fullDetailBelow  = 10
	attributionBelow = 30
)

// FormatInjection renders the selection as markdown. Detail drops as the
// total count grows: statement with rationale and contraindications under
// 10 results, statement with pack attribution under 30, bare statement beyond.
func FormatInjection(directives, consider []Scored) string {
	total := len(directives) + len(consider)
	var lines []string
	if len(directives) > 0 {
		lines = append(lines, "## DIRECTIVES\n")
		for _, s := range directives {
			lines = append(lines, formatEngram(s, total))
		}
	}
	if len(consider) > 0 {
		lines = append(lines, "\n## ALSO CONSIDER\n")
		for _, s := range consider {
			lines = append(lines, formatEngram(s, total))
		}
	}
	return strings.Join(lines, "\n")
}

func formatEngram(s Scored, total int) string {
	e := s.Engram
	switch {
	case total < fullDetailBelow:
		var b strings.Builder
		b.WriteString("- **" + e.Statement + "**")
		if e.Rationale != "" {
			b.WriteString("\n  _" + e.Rationale + "_")
		}
		if len(e.Contraindications) > 0 {
			b.WriteString("\n  Except: " + strings.Join(e.Contraindications, ", "))
		}
		return b.String()
	case total < attributionBelow:
		if s.Source != "" {
			return "- " + e.Statement + " [" + s.Source + "]"
		}
		return "- " + e.Statement
	default:
		return "- " + e.Statement
	}
}
