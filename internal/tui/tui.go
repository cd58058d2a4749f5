// Package tui is the interactive timer screen: the stopwatch on top and the
// grouped daily history below.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Tiliavir/timeplan/internal/apperr"
	"github.com/Tiliavir/timeplan/internal/history"
	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/stopwatch"
	"github.com/Tiliavir/timeplan/internal/store"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	dayStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4A90E2"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

type tickMsg stopwatch.Snapshot

type loadedMsg struct {
	entries []model.TimeEntry
	err     error
}

type opDoneMsg struct {
	stopped bool
	err     error
}

// Model is the bubbletea model of the timer screen.
type Model struct {
	ctx   context.Context
	repo  store.EntryRepository
	sw    *stopwatch.Machine
	loc   *time.Location
	clock func() time.Time

	input   textinput.Model
	history history.Snapshot
	err     error
	fatal   bool
	busy    bool
}

// New builds the screen. sw must write through repo.
func New(ctx context.Context, repo store.EntryRepository, sw *stopwatch.Machine, loc *time.Location) Model {
	ti := textinput.New()
	ti.Placeholder = "What are you working on?"
	ti.CharLimit = 200
	ti.Width = 50
	ti.Focus()

	if loc == nil {
		loc = time.Local
	}
	return Model{ctx: ctx, repo: repo, sw: sw, loc: loc, clock: time.Now, input: ti}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.load())
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.repo.ListTimeEntries(m.ctx)
		return loadedMsg{entries: entries, err: err}
	}
}

func (m Model) toggle() tea.Cmd {
	if m.sw.Snapshot().State == stopwatch.Running {
		return func() tea.Msg {
			_, err := m.sw.Stop(m.ctx)
			return opDoneMsg{stopped: true, err: err}
		}
	}
	desc := strings.TrimSpace(m.input.Value())
	return func() tea.Msg {
		return opDoneMsg{err: m.sw.Start(m.ctx, desc)}
	}
}

func (m Model) commitDescription() tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: m.sw.CommitDescription(m.ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "q":
			if !m.input.Focused() {
				return m, tea.Quit
			}
		case "enter":
			if m.fatal || m.busy {
				return m, nil
			}
			m.busy = true
			return m, m.toggle()
		case "tab":
			if m.busy {
				return m, nil
			}
			if m.input.Focused() {
				m.input.Blur()
				if m.sw.Snapshot().State == stopwatch.Running {
					return m, m.commitDescription()
				}
				return m, nil
			}
			return m, m.input.Focus()
		}

	case tickMsg:
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.history = history.FromEntries(msg.entries, m.loc)
		if err := m.sw.Load(msg.entries); err != nil {
			m.err = err
			m.fatal = errors.Is(err, stopwatch.ErrMultipleRunning)
			return m, nil
		}
		if snap := m.sw.Snapshot(); snap.State == stopwatch.Running {
			m.input.SetValue(snap.Description)
		}
		return m, nil

	case opDoneMsg:
		m.busy = false
		m.err = msg.err
		if msg.err != nil {
			// A failed description commit reverted inside the machine.
			if snap := m.sw.Snapshot(); snap.State == stopwatch.Running {
				m.input.SetValue(snap.Description)
			}
			return m, nil
		}
		if msg.stopped {
			m.input.SetValue("")
		}
		return m, m.load()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Focused() && m.sw.Snapshot().State == stopwatch.Running {
		m.sw.SetDescription(m.input.Value())
	}
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tp timer"))
	b.WriteString("\n\n")

	snap := m.sw.Snapshot()
	if snap.State == stopwatch.Running {
		fmt.Fprintf(&b, "%s  %s\n", runningStyle.Render("● "+snap.ElapsedText()), "since "+timecalc.FormatClock(snap.Entry.Start.In(m.loc)))
	} else {
		b.WriteString(idleStyle.Render("○ 00:00:00") + "\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(apperr.Message(m.err)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.historyView())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter start/stop • tab save description • esc quit"))
	return b.String()
}

func (m Model) historyView() string {
	switch {
	case !m.history.Loaded:
		return "Loading…\n"
	case m.history.Empty():
		return "Better start tracking...\n"
	}

	now := m.clock().In(m.loc)
	var b strings.Builder
	for _, day := range m.history.Days {
		fmt.Fprintf(&b, "%s  %s\n", dayStyle.Render(day.Label(now)), timecalc.FormatHHMMSS(day.Total()))
		for _, e := range day.Entries {
			start := e.Start.In(m.loc)
			stop := e.Stop.In(m.loc)
			fmt.Fprintf(&b, "  %s - %s  %s  %s\n",
				timecalc.FormatClock(start), timecalc.FormatClock(stop),
				timecalc.FormatDuration(start, stop), e.Description)
		}
	}
	return b.String()
}

// Run starts the timer screen and blocks until the user quits.
func Run(ctx context.Context, repo store.EntryRepository, interval time.Duration, loc *time.Location) error {
	var p *tea.Program
	sw := stopwatch.New(repo,
		stopwatch.WithInterval(interval),
		stopwatch.WithTickHandler(func(s stopwatch.Snapshot) {
			p.Send(tickMsg(s))
		}),
	)
	defer sw.Close()

	p = tea.NewProgram(New(ctx, repo, sw, loc), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.fatal {
		return fm.err
	}
	return nil
}
