package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/mindstate/internal/catalog"
	"github.com/danielpatrickdp/mindstate/internal/display"
	"github.com/danielpatrickdp/mindstate/internal/engine"
	"github.com/danielpatrickdp/mindstate/internal/source"
)

// #region styles

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12)

	stateStyle = lipgloss.NewStyle().
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203"))

	barFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	barEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)
)

// #endregion styles

// #region model

type tickMsg time.Time

type monitorModel struct {
	eng   *engine.Engine
	sim   *source.Simulator
	start time.Time

	interval time.Duration
	latest   display.Model
	hasModel bool
}

func newMonitorModel() (monitorModel, error) {
	config := engine.DefaultConfig()
	eng, err := engine.New(config, catalog.Default())
	if err != nil {
		return monitorModel{}, err
	}
	return monitorModel{
		eng:      eng,
		sim:      source.NewSimulator(source.DefaultSimulatorConfig()),
		start:    time.Now(),
		interval: config.TickInterval,
	}, nil
}

func (m monitorModel) Init() tea.Cmd {
	return m.tick()
}

func (m monitorModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.eng.Reset(time.Now())
			return m, nil
		}

	case tickMsg:
		now := time.Time(msg)
		m.eng.Ingest(m.sim.At(now.Sub(m.start)))
		m.latest = m.eng.Tick(now)
		m.hasModel = true
		return m, m.tick()
	}
	return m, nil
}

// #endregion model

// #region view

func (m monitorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("mindstate monitor"))
	b.WriteString("\n\n")

	if !m.hasModel {
		b.WriteString(dimStyle.Render("waiting for first tick..."))
		b.WriteString("\n")
		return frameStyle.Render(b.String())
	}

	st := m.latest.State
	nameStyle := stateStyle
	if st.Color != "" {
		nameStyle = nameStyle.Foreground(lipgloss.Color(st.Color))
	}

	row(&b, "state", fmt.Sprintf("%s %s", nameStyle.Render(st.Name), dimStyle.Render("("+st.ID+")")))
	row(&b, "confidence", fmt.Sprintf("%s %5.1f", confidenceBar(st.Confidence), st.Confidence))
	row(&b, "tier", fmt.Sprintf("%s %s", st.Tier, dimStyle.Render(m.latest.Transition)))
	row(&b, "duration", st.DurationLabel)

	if ch := m.latest.Challenger; ch != nil {
		row(&b, "challenger", fmt.Sprintf("%s %5.1f %s",
			ch.Name, ch.Confidence,
			dimStyle.Render("leading "+display.FormatDuration(ch.LeadDuration))))
	}

	af := m.latest.Affect
	row(&b, "affect", fmt.Sprintf("%s  v %+.2f  a %+.2f  c %+.2f",
		af.TopLabel, af.Valence, af.Arousal, af.Control))

	if flags := traceFlags(m.latest.Trace); flags != "" {
		row(&b, "flags", warnStyle.Render(flags))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("tick %d  ·  q quit  ·  r reset", m.latest.Trace.Tick)))
	b.WriteString("\n")

	return frameStyle.Render(b.String())
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func confidenceBar(confidence float32) string {
	const width = 20
	filled := int(confidence / 100 * width)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return barFillStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

func traceFlags(tr display.Trace) string {
	var flags []string
	if tr.EmergencyActive {
		flags = append(flags, "emergency")
	}
	if tr.Ambiguous {
		flags = append(flags, "ambiguous")
	}
	if tr.MotionHold {
		flags = append(flags, "motion hold")
	}
	if tr.SwitchedFrom != "" {
		flags = append(flags, "switched from "+tr.SwitchedFrom)
	}
	return strings.Join(flags, "  ")
}

// #endregion view

func main() {
	m, err := newMonitorModel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
