package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseValidating
	PhaseProcessing
	PhaseStatistics
	PhaseComplete
)

// Messages pushed into the TUI by the orchestrator goroutine.
type (
	phaseChangeMsg struct {
		phase Phase
	}
	dateStartMsg struct {
		index int
		date  time.Time
	}
	dateCompleteMsg struct {
		index  int
		result DateResult
	}
	runCompleteMsg struct {
		summary RunSummary
	}
	runFailedMsg struct {
		err error
	}
)

var (
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Margin(0, 2)

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Margin(0, 2)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFAA00")).
				Bold(true).
				Margin(0, 2)

	progressInfoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#888888")).
				Margin(0, 2)
)

type progressModel struct {
	phase           Phase
	dates           []time.Time
	currentIndex    int
	currentDate     time.Time
	overallProgress progress.Model
	currentSpinner  spinner.Model
	currentStage    string
	results         []DateResult
	messages        []string
	startTime       time.Time
	config          *Config
	cancel          context.CancelFunc
	done            bool
	width           int
	height          int
}

func newProgressModel(cancel context.CancelFunc, config *Config, dates []time.Time) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	overallProg := progress.New(
		progress.WithScaledGradient("#FF7CCB", "#FDFF8C"),
		progress.WithWidth(60),
	)

	return progressModel{
		phase:           PhaseConnecting,
		dates:           dates,
		overallProgress: overallProg,
		currentSpinner:  s,
		currentStage:    "Initializing...",
		results:         make([]DateResult, 0, len(dates)),
		messages:        make([]string, 0),
		startTime:       time.Now(),
		config:          config,
		cancel:          cancel,
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		m.currentSpinner.Tick,
		tea.EnterAltScreen,
	)
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)
	case spinner.TickMsg:
		return m.handleSpinnerTickMsg(msg)
	case progress.FrameMsg:
		return m.handleProgressFrameMsg(msg)
	case phaseChangeMsg:
		return m.handlePhaseChangeMsg(msg)
	case dateStartMsg:
		return m.handleDateStartMsg(msg)
	case dateCompleteMsg:
		return m.handleDateCompleteMsg(msg)
	case runCompleteMsg:
		return m.handleRunCompleteMsg(msg)
	case runFailedMsg:
		return m.handleRunFailedMsg(msg)
	}
	return m, nil
}

func (m progressModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" || msg.String() == "q" {
		// Cancellation takes effect at the next date boundary; the date in
		// flight finishes or rolls back first.
		if m.cancel != nil {
			m.cancel()
		}
		m.done = true
		return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)
	}
	return m, nil
}

func (m progressModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.overallProgress.Width = msg.Width - 10
	return m, nil
}

func (m progressModel) handleSpinnerTickMsg(msg spinner.TickMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.currentSpinner, cmd = m.currentSpinner.Update(msg)
	return m, cmd
}

func (m progressModel) handleProgressFrameMsg(msg progress.FrameMsg) (tea.Model, tea.Cmd) {
	overallModel, cmd := m.overallProgress.Update(msg)
	if om, ok := overallModel.(progress.Model); ok {
		m.overallProgress = om
	}
	return m, cmd
}

func (m progressModel) handlePhaseChangeMsg(msg phaseChangeMsg) (tea.Model, tea.Cmd) {
	m.phase = msg.phase

	switch msg.phase { //nolint:exhaustive // PhaseComplete arrives via runCompleteMsg
	case PhaseConnecting:
		m.currentStage = "Connecting to database..."
	case PhaseValidating:
		m.addMessage(fmt.Sprintf("✅ Connected to Oracle at %s", m.config.Database.Host))
		m.currentStage = "Validating configuration and structure..."
	case PhaseProcessing:
		m.addMessage("✅ Preconditions passed, staging table clear")
		m.addMessage(fmt.Sprintf("🚀 Archiving %d partition date(s)", len(m.dates)))
		m.currentStage = ""
	case PhaseStatistics:
		m.currentStage = "Refreshing optimizer statistics..."
	}
	return m, nil
}

func (m progressModel) handleDateStartMsg(msg dateStartMsg) (tea.Model, tea.Cmd) {
	m.currentIndex = msg.index
	m.currentDate = msg.date
	m.currentStage = "Archiving " + msg.date.Format("2006-01-02")
	return m, nil
}

func (m progressModel) handleDateCompleteMsg(msg dateCompleteMsg) (tea.Model, tea.Cmd) {
	m.results = append(m.results, msg.result)
	m.currentIndex = msg.index + 1
	m.currentStage = ""

	day := msg.result.Date.Format("2006-01-02")
	switch {
	case msg.result.Error != nil:
		m.addMessage(fmt.Sprintf("❌ %s - %v", day, msg.result.Error))
	case msg.result.Skipped:
		m.addMessage(fmt.Sprintf("⏭  %s - %s", day, msg.result.SkipReason))
	case msg.result.DroppedEmpty:
		m.addMessage(fmt.Sprintf("⏭  %s - empty partition dropped", day))
	case msg.result.Status == StatusWarning:
		m.addMessage(fmt.Sprintf("⚠️  %s - archived %d rows, count mismatch", day, msg.result.Records))
	default:
		m.addMessage(fmt.Sprintf("✅ %s - archived %d rows in %.1fs", day, msg.result.Records, msg.result.Duration.Seconds()))
	}

	if len(m.dates) > 0 {
		percent := float64(m.currentIndex) / float64(len(m.dates))
		return m, m.overallProgress.SetPercent(percent)
	}
	return m, nil
}

func (m progressModel) handleRunCompleteMsg(msg runCompleteMsg) (tea.Model, tea.Cmd) {
	m.phase = PhaseComplete
	m.done = true
	return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)
}

func (m progressModel) handleRunFailedMsg(msg runFailedMsg) (tea.Model, tea.Cmd) {
	m.addMessage(fmt.Sprintf("❌ %v", msg.err))
	m.done = true
	return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)
}

func (m *progressModel) addMessage(msg string) {
	m.messages = append(m.messages, msg)
	if len(m.messages) > 10 {
		m.messages = m.messages[len(m.messages)-10:]
	}
}

func (m progressModel) renderBanner() []string {
	var sections []string

	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF7CCB")).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))

	const boxWidth = 66
	const indent = "   "

	makeLine := func(content string) string {
		visibleWidth := lipgloss.Width(content)
		targetWidth := boxWidth - 4
		padding := targetWidth - visibleWidth
		if padding < 0 {
			padding = 0
		}
		return fmt.Sprintf("%s║  %s%s║", indent, content, strings.Repeat(" ", padding))
	}

	topBorder := indent + "╔" + strings.Repeat("═", boxWidth-2) + "╗"
	bottomBorder := indent + "╚" + strings.Repeat("═", boxWidth-2) + "╝"

	sections = append(sections, "")
	sections = append(sections, topBorder)
	sections = append(sections, makeLine(""))
	sections = append(sections, makeLine("              "+titleStyle.Render("Partition Exchanger")))
	sections = append(sections, makeLine(""))
	sections = append(sections, makeLine("   "+subtitleStyle.Render("Atomic partition archival via two-hop exchange")))
	sections = append(sections, makeLine(""))
	sections = append(sections, bottomBorder)
	sections = append(sections, "")

	return sections
}

func (m progressModel) renderMessages() []string {
	var sections []string
	sections = append(sections, helpStyle.Render("   Log:"))
	if len(m.messages) == 0 {
		sections = append(sections, "     (waiting for operations...)")
	} else {
		for _, msg := range m.messages {
			sections = append(sections, "     "+msg)
		}
	}
	return sections
}

func (m progressModel) renderSeparator() []string {
	separatorWidth := 80
	if m.width > 0 && m.width < 200 {
		separatorWidth = m.width - 6
	}
	separator := "   " + strings.Repeat("─", separatorWidth)
	return []string{"", lipgloss.NewStyle().Foreground(lipgloss.Color("#444")).Render(separator), ""}
}

func (m progressModel) renderInitialPhase() []string {
	var sections []string
	if m.currentStage != "" {
		stageInfo := fmt.Sprintf("   %s %s", m.currentSpinner.View(), m.currentStage)
		sections = append(sections, stageStyle.Render(stageInfo))
	} else {
		sections = append(sections, stageStyle.Render("   "+m.currentSpinner.View()+" Initializing..."))
	}
	return sections
}

func (m progressModel) renderProcessingPhase() []string {
	var sections []string
	if len(m.dates) > 0 {
		sections = append(sections, tableHeaderStyle.Render("   Archiving Partitions"))
		sections = append(sections, "")

		overallInfo := fmt.Sprintf("   Overall: %d/%d dates", m.currentIndex, len(m.dates))
		sections = append(sections, progressInfoStyle.Render(overallInfo))

		viewProgress := m.overallProgress.ViewAs(float64(m.currentIndex) / float64(len(m.dates)))
		sections = append(sections, "   "+viewProgress)

		if m.currentStage != "" {
			stageInfo := fmt.Sprintf("   %s %s", m.currentSpinner.View(), m.currentStage)
			sections = append(sections, "")
			sections = append(sections, stageStyle.Render(stageInfo))
		}

		sections = append(sections, "")
		sections = append(sections, m.renderRecentResults()...)
	}
	return sections
}

func (m progressModel) renderRecentResults() []string {
	var sections []string
	if len(m.results) > 0 {
		sections = append(sections, tableHeaderStyle.Render("   Recent Results"))
		sections = append(sections, "")

		startIndex := 0
		if len(m.results) > 5 {
			startIndex = len(m.results) - 5
		}

		for _, result := range m.results[startIndex:] {
			day := result.Date.Format("2006-01-02")
			var line string
			switch {
			case result.Skipped:
				line = fmt.Sprintf("   ⏭  %s - %s", day, result.SkipReason)
			case result.DroppedEmpty:
				line = fmt.Sprintf("   ⏭  %s - empty, dropped", day)
			case result.Error != nil:
				line = fmt.Sprintf("   ❌ %s - Error: %v", day, result.Error)
			default:
				line = fmt.Sprintf("   ✅ %s - %d rows via %s", day, result.Records, result.SourcePartition)
			}
			sections = append(sections, line)
		}
		sections = append(sections, "")
	}
	return sections
}

func (m progressModel) View() string {
	if m.done && m.phase == PhaseComplete {
		return ""
	}

	var sections []string

	sections = append(sections, m.renderBanner()...)
	sections = append(sections, m.renderMessages()...)
	sections = append(sections, m.renderSeparator()...)

	switch m.phase { //nolint:exhaustive // PhaseComplete renders nothing
	case PhaseConnecting, PhaseValidating, PhaseStatistics:
		sections = append(sections, m.renderInitialPhase()...)
	case PhaseProcessing:
		sections = append(sections, m.renderProcessingPhase()...)
	}

	sections = append(sections, "")
	sections = append(sections, helpStyle.Render("   Press Ctrl+C or 'q' to quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
