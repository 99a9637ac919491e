// Package tui renders a live dashboard for an embedding run. The
// coordinator feeds it per-cycle stats through Program.Send; headless
// runs skip it entirely.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GallTech/rag-lab/internal/pipeline"
)

// CycleMsg carries one finished cycle's stats into the model.
type CycleMsg pipeline.CycleStats

// DoneMsg ends the dashboard when the run finishes or fails.
type DoneMsg struct {
	Total int
	Err   error
}

// Model is the Bubble Tea model for the embedding dashboard.
type Model struct {
	spinner  spinner.Model
	bar      progress.Model
	cancel   func()
	pending  int64 // chunks pending when the run started
	done     int
	cycles   int
	lastRate float64
	started  time.Time
	err      error
	finished bool
}

// New creates a dashboard model. pending is the number of unembedded
// chunks at startup, used to scale the progress bar; cancel stops the
// run when the user quits.
func New(pending int64, cancel func()) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	return Model{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		cancel:  cancel,
		pending: pending,
		started: time.Now(),
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd { return m.spinner.Tick }

// Update handles cycle stats, completion, resize and key events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w := msg.Width - 4
		if w > 60 {
			w = 60
		}
		if w > 0 {
			m.bar.Width = w
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
	case CycleMsg:
		m.cycles++
		m.done = msg.TotalProcessed
		m.lastRate = pipeline.CycleStats(msg).Rate()
		return m, nil
	case DoneMsg:
		m.finished = true
		m.done = msg.Total
		m.err = msg.Err
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// Err returns the run error carried by the final DoneMsg, if any.
func (m Model) Err() error { return m.err }

// View renders the dashboard.
func (m Model) View() string {
	header := headerStyle.Render("raglab embed")
	pct := 0.0
	if m.pending > 0 {
		pct = float64(m.done) / float64(m.pending)
		if pct > 1 {
			pct = 1
		}
	}
	stats := fmt.Sprintf("cycles %d  embedded %d/%d  %.1f chunks/s  elapsed %s",
		m.cycles, m.done, m.pending, m.lastRate, time.Since(m.started).Round(time.Second))

	var status string
	switch {
	case m.err != nil:
		status = errStyle.Render("error: " + m.err.Error())
	case m.finished:
		status = okStyle.Render("all chunks embedded")
	default:
		status = m.spinner.View() + " embedding... press q to stop after this cycle"
	}
	return header + "\n\n" + m.bar.ViewAs(pct) + "\n" + statStyle.Render(stats) + "\n" + status + "\n"
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)
