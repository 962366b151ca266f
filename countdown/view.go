package countdown

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tnicklin/birthday_countdown/clock"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	digitStyle     = lipgloss.NewStyle().Bold(true).Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("212"))
	labelStyle     = lipgloss.NewStyle().Faint(true)
	statusStyle    = lipgloss.NewStyle().Faint(true).MarginTop(1)
	celebrateStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")).Padding(1, 4).Border(lipgloss.DoubleBorder())
)

var unitLabels = [4]string{"days", "hours", "minutes", "seconds"}

type tickMsg time.Time

// SyncedMsg tells the view that the clock was corrected.
type SyncedMsg struct {
	Offset   time.Duration
	SyncTime time.Time
	Source   string
}

// Model is the bubbletea model for the countdown screen.
type Model struct {
	clock   clock.Countdown
	target  time.Time
	title   string
	message string
	syncs   <-chan SyncedMsg

	phase     Phase
	remaining time.Duration
	synced    bool
	restored  bool
	offset    time.Duration
	source    string
}

// ModelParams holds dependencies for NewModel.
type ModelParams struct {
	Clock   clock.Countdown
	Target  time.Time
	Title   string
	Message string
	// Offset is the correction already in effect, e.g. one restored from
	// the store. It is shown until the first SyncedMsg.
	Offset time.Duration
	// Syncs delivers clock corrections; nil if the clock is never corrected.
	// Closing it stops the receiver.
	Syncs <-chan SyncedMsg
}

// NewModel creates a Model and computes its first frame.
func NewModel(p ModelParams) Model {
	c := p.Clock
	if c == nil {
		c = clock.System()
	}
	m := Model{
		clock:    c,
		target:   p.Target,
		title:    p.Title,
		message:  p.Message,
		syncs:    p.Syncs,
		restored: p.Offset != 0,
		offset:   p.Offset,
	}
	m.refresh()
	return m
}

// Phase returns the phase as of the last refresh.
func (m Model) Phase() Phase { return m.phase }

// Remaining returns the remaining time as of the last refresh.
func (m Model) Remaining() time.Duration { return m.remaining }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.waitForSync())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		m.refresh()
		return m, m.tick()
	case SyncedMsg:
		m.synced = true
		m.offset = msg.Offset
		m.source = msg.Source
		m.refresh()
		return m, m.waitForSync()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	if m.phase == PhaseCelebration {
		b.WriteString(celebrateStyle.Render(m.message))
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status()))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	digits := Split(m.remaining).Digits()
	boxes := make([]string, 0, len(digits))
	for i, d := range digits {
		boxes = append(boxes, lipgloss.JoinVertical(lipgloss.Center,
			digitStyle.Render(d),
			labelStyle.Render(unitLabels[i]),
		))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")
	b.WriteString(Humanize(m.remaining))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status()))
	b.WriteString("\n")
	return b.String()
}

func (m Model) status() string {
	if !m.synced {
		if m.restored {
			return fmt.Sprintf("restored offset %+dms, not yet synchronized · q to quit", m.offset.Milliseconds())
		}
		return "local clock, not yet synchronized · q to quit"
	}
	return fmt.Sprintf("synchronized via %s (offset %+dms) · q to quit", m.source, m.offset.Milliseconds())
}

func (m *Model) refresh() {
	m.remaining = m.clock.TimeRemaining(m.target)
	m.phase = PhaseAt(m.clock, m.target)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(RefreshInterval(m.remaining), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) waitForSync() tea.Cmd {
	if m.syncs == nil {
		return nil
	}
	syncs := m.syncs
	return func() tea.Msg {
		msg, ok := <-syncs
		if !ok {
			return nil
		}
		return msg
	}
}

// Run shows the countdown until the user quits or ctx is done.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
