// Package monitor renders a terminal dashboard over a running engramd.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/services"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
)

// Model is the bubbletea dashboard model.
type Model struct {
	serverURL  string
	interval   time.Duration
	started    time.Time
	lastUpdate time.Time
	status     *services.Status
	err        error
	quitting   bool

	// Engram totals from previous polls, oldest first.
	totalHistory  []float64
	activeHistory []float64

	healthProgress progress.Model
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a dashboard polling serverURL every interval.
func NewModel(serverURL string, interval time.Duration) Model {
	return Model{
		serverURL: serverURL,
		interval:  interval,
		started:   time.Now(),
		healthProgress: progress.New(
			progress.WithGradient("#ff0000", "#00ff00"),
			progress.WithWidth(40),
		),
		totalHistory:  make([]float64, 0, historySize),
		activeHistory: make([]float64, 0, historySize),
	}
}

// Run starts the dashboard on the terminal and blocks until the user quits.
func Run(serverURL string, interval time.Duration) error {
	_, err := tea.NewProgram(NewModel(serverURL, interval), tea.WithAltScreen()).Run()
	return err
}

// healthBadge grades the share of active engrams that have decayed to
// retirement candidates.
func healthBadge(st *services.Status) string {
	active := st.ByStatus[string(engram.StatusActive)]
	if active == 0 {
		return dimStyle.Render("○ EMPTY")
	}
	stale := float64(st.ByHealth[string(engram.HealthRetirementCandidate)]) / float64(active)
	switch {
	case stale < 0.1:
		return healthyStyle.Render("✓ HEALTHY")
	case stale < 0.3:
		return warningStyle.Render("⚠ FADING")
	default:
		return errorStyle.Render("✗ STALE")
	}
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}

type tickMsg time.Time
type statusMsg *services.Status
type errMsg error

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.interval),
		fetchStatus(m.serverURL),
	)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchStatus(serverURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		st, err := NewStatusClient(serverURL).Status(ctx)
		if err != nil {
			return errMsg(err)
		}
		return statusMsg(st)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetchStatus(m.serverURL)
		}

	case tickMsg:
		return m, tea.Batch(
			tick(m.interval),
			fetchStatus(m.serverURL),
		)

	case statusMsg:
		st := (*services.Status)(msg)
		m.totalHistory = appendToHistory(m.totalHistory, float64(st.Engrams))
		m.activeHistory = appendToHistory(m.activeHistory, float64(st.ByStatus[string(engram.StatusActive)]))
		m.status = st
		m.lastUpdate = time.Now()
		m.err = nil
		return m, nil

	case errMsg:
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	return m.renderDashboard()
}

func (m Model) renderError() string {
	header := headerStyle.Render(" engramd Monitor ")

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(errorStyle.Render("⚠ Cannot reach engramd") + "\n\n")
	b.WriteString(dimStyle.Render("URL: ") + valueStyle.Render(m.serverURL) + "\n")
	b.WriteString(dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n\n")
	b.WriteString(dimStyle.Render("Start the server with the HTTP API enabled (server.enabled: true).") + "\n\n")
	b.WriteString(footerStyle.Render("[q] quit  [r] retry") + "\n")

	return containerStyle.Render(header + "\n" + b.String())
}

func (m Model) renderDashboard() string {
	var b strings.Builder

	lastUpdate := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdate = m.lastUpdate.Format("3:04:05 PM")
	}
	b.WriteString(headerStyle.Render(" engramd Monitor ") + "\n")

	st := m.status
	if st == nil {
		b.WriteString(dimStyle.Render("Waiting for first status...") + "\n")
		b.WriteString("\n" + m.footer())
		return containerStyle.Render(b.String())
	}

	b.WriteString(fmt.Sprintf("%s   %s   %s   %s\n",
		healthBadge(st),
		dimStyle.Render("Watching:"),
		valueStyle.Render(FormatDuration(int64(time.Since(m.started).Seconds()))),
		dimStyle.Render(lastUpdate)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("version %s, %s mode", st.Version, st.Mode)) + "\n")

	b.WriteString("\n" + sectionStyle.Render("┃ Engrams") + "\n")
	b.WriteString(labelStyle.Render("  Total: ") +
		valueStyle.Render(fmt.Sprintf("%d", st.Engrams)) +
		"   " + dimStyle.Render(m.delta(m.totalHistory)) +
		"   " + createSparkline(m.totalHistory) + "\n")
	active := st.ByStatus[string(engram.StatusActive)]
	b.WriteString(labelStyle.Render("  Active: ") +
		valueStyle.Render(FormatShare(active, st.Engrams)) +
		"   " + createSparkline(m.activeHistory) + "\n")
	for _, s := range []engram.Status{engram.StatusCandidate, engram.StatusDormant, engram.StatusRetired} {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %s: ", capitalize(string(s)))) +
			valueStyle.Render(FormatShare(st.ByStatus[string(s)], st.Engrams)) + "\n")
	}

	b.WriteString("\n" + sectionStyle.Render("┃ Decay Health") + "\n")
	healthy := 0.0
	if active > 0 {
		healthy = float64(st.ByHealth[string(engram.HealthActive)]) / float64(active)
	}
	b.WriteString(labelStyle.Render("  Strong: ") +
		m.healthProgress.ViewAs(healthy) +
		" " + dimStyle.Render(FormatPercentage(healthy)) + "\n")
	for _, h := range []engram.HealthState{engram.HealthFading, engram.HealthDormant, engram.HealthRetirementCandidate} {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %s: ", capitalize(strings.ReplaceAll(string(h), "_", " ")))) +
			valueStyle.Render(fmt.Sprintf("%d", st.ByHealth[string(h)])) + "\n")
	}

	b.WriteString("\n" + sectionStyle.Render("┃ Packs & Notes") + "\n")
	b.WriteString(labelStyle.Render("  Packs: ") + valueStyle.Render(fmt.Sprintf("%d", st.Packs)) +
		dimStyle.Render(fmt.Sprintf(" (%d engrams)", st.PackEngrams)) + "\n")
	b.WriteString(labelStyle.Render("  Journal: ") + valueStyle.Render(fmt.Sprintf("%d", st.JournalEntries)) +
		labelStyle.Render("  Knowledge: ") + valueStyle.Render(fmt.Sprintf("%d", st.KnowledgeNotes)) + "\n")

	if st.ScalingHint != "" || len(st.Recommendations) > 0 {
		b.WriteString("\n" + sectionStyle.Render("┃ Recommendations") + "\n")
		if st.ScalingHint != "" {
			b.WriteString("  " + warningStyle.Render("⚠ ") + st.ScalingHint + "\n")
		}
		for _, r := range st.Recommendations {
			b.WriteString("  " + dimStyle.Render("• ") + r + "\n")
		}
	}

	b.WriteString("\n" + m.footer())
	return containerStyle.Render(b.String())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (m Model) delta(history []float64) string {
	if len(history) < 2 {
		return FormatDelta(0)
	}
	return FormatDelta(int(history[len(history)-1] - history[len(history)-2]))
}

func (m Model) footer() string {
	return footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))
}
