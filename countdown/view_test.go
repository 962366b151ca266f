package countdown

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tnicklin/birthday_countdown/clock"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) TimeRemaining(target time.Time) time.Duration { return clock.Remaining(f, target) }

func (f *fakeClock) HasReached(target time.Time) bool { return clock.Reached(f, target) }

var target = time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC)

func TestModelCountdownView(t *testing.T) {
	c := &fakeClock{now: target.Add(-(2*day + 5*time.Minute + time.Second))}
	m := NewModel(ModelParams{Clock: c, Target: target, Title: "Almost there", Message: "Happy Birthday!"})

	if m.Phase() != PhaseCountdown {
		t.Fatalf("Phase() = %v, want countdown", m.Phase())
	}

	view := m.View()
	for _, want := range []string{"Almost there", "02", "05", "01", "2 days, 0 hours, 5 minutes, 1 second", "not yet synchronized"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Happy Birthday!") {
		t.Error("celebration shown before target")
	}
}

func TestModelTickReachesCelebration(t *testing.T) {
	c := &fakeClock{now: target.Add(-time.Second)}
	m := NewModel(ModelParams{Clock: c, Target: target, Message: "Happy Birthday!"})

	c.now = target
	updated, cmd := m.Update(tickMsg(c.now))
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}

	got := updated.(Model)
	if got.Phase() != PhaseCelebration {
		t.Fatalf("Phase() = %v, want celebration", got.Phase())
	}
	if got.Remaining() != 0 {
		t.Fatalf("Remaining() = %v, want 0", got.Remaining())
	}
	if !strings.Contains(got.View(), "Happy Birthday!") {
		t.Fatalf("celebration view missing message:\n%s", got.View())
	}
}

func TestModelSyncedMsgRefreshesImmediately(t *testing.T) {
	c := &fakeClock{now: target.Add(-time.Minute)}
	syncs := make(chan SyncedMsg, 1)
	m := NewModel(ModelParams{Clock: c, Target: target, Syncs: syncs})

	// The corrected clock jumps past the target between ticks.
	c.now = target.Add(time.Second)
	updated, cmd := m.Update(SyncedMsg{Offset: 61 * time.Second, Source: "primary"})
	if cmd == nil {
		t.Fatal("expected a command waiting for the next sync")
	}

	got := updated.(Model)
	if got.Phase() != PhaseCelebration {
		t.Fatalf("Phase() = %v, want celebration right after sync", got.Phase())
	}
	if !strings.Contains(got.View(), "synchronized via primary (offset +61000ms)") {
		t.Fatalf("status not updated:\n%s", got.View())
	}

	syncs <- SyncedMsg{Source: "fallback-1"}
	if msg, ok := cmd().(SyncedMsg); !ok || msg.Source != "fallback-1" {
		t.Fatalf("waitForSync delivered %#v", msg)
	}
}

func TestModelQuit(t *testing.T) {
	m := NewModel(ModelParams{Target: target})

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: expected tea.QuitMsg", key.String())
		}
	}
}

func TestModelWithoutSyncChannel(t *testing.T) {
	m := NewModel(ModelParams{Target: target})
	if cmd := m.waitForSync(); cmd != nil {
		t.Fatal("waitForSync() should be nil without a channel")
	}
	if m.Init() == nil {
		t.Fatal("Init() should start ticking")
	}
}

func TestPhaseAt(t *testing.T) {
	c := &fakeClock{now: target}
	if got := PhaseAt(c, target); got != PhaseCelebration {
		t.Fatalf("PhaseAt(target) = %v, want celebration", got)
	}
	if got := PhaseAt(c, target.Add(time.Millisecond)); got != PhaseCountdown {
		t.Fatalf("PhaseAt(future) = %v, want countdown", got)
	}
}

func TestModelShowsRestoredOffsetUntilSync(t *testing.T) {
	c := &fakeClock{now: target.Add(-time.Hour)}
	m := NewModel(ModelParams{Clock: c, Target: target, Offset: 1850 * time.Millisecond})

	if view := m.View(); !strings.Contains(view, "restored offset +1850ms") {
		t.Fatalf("view missing restored offset:\n%s", view)
	}

	updated, _ := m.Update(SyncedMsg{Offset: 2 * time.Second, Source: "primary"})
	view := updated.(Model).View()
	if strings.Contains(view, "restored offset") {
		t.Fatalf("restored status still shown after sync:\n%s", view)
	}
	if !strings.Contains(view, "synchronized via primary (offset +2000ms)") {
		t.Fatalf("status not updated:\n%s", view)
	}
}

func TestModelZeroOffsetIsLocalClock(t *testing.T) {
	m := NewModel(ModelParams{Target: target})
	if view := m.View(); !strings.Contains(view, "local clock, not yet synchronized") {
		t.Fatalf("unexpected status:\n%s", view)
	}
}

func TestWaitForSyncEndsWhenChannelClosed(t *testing.T) {
	syncs := make(chan SyncedMsg)
	m := NewModel(ModelParams{Target: target, Syncs: syncs})

	cmd := m.waitForSync()
	if cmd == nil {
		t.Fatal("expected a command waiting for syncs")
	}

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	close(syncs)

	select {
	case msg := <-done:
		if msg != nil {
			t.Fatalf("waitForSync delivered %#v after close, want nil", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waitForSync did not return after the channel was closed")
	}
}
