package viz

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/spinsim/internal/experiment"
)

func TestProgressModelUpdate(t *testing.T) {
	m := NewProgress("fid", 4, nil)

	var tm tea.Model = m
	for i := 1; i <= 3; i++ {
		tm, _ = tm.Update(PartitionMsg{Partition: i, Partitions: 4, Spins: 10, Failed: i - 1, Elapsed: time.Duration(i) * time.Millisecond})
	}
	m = tm.(ProgressModel)

	if m.done != 3 || m.spins != 30 || m.failed != 3 {
		t.Errorf("counts = %d done, %d spins, %d failed", m.done, m.spins, m.failed)
	}
	if m.Fraction() != 0.75 {
		t.Errorf("Fraction = %g, want 0.75", m.Fraction())
	}
	if view := m.View(); !strings.Contains(view, "3/4") || !strings.Contains(view, "fid") {
		t.Errorf("view missing progress:\n%s", view)
	}
}

func TestProgressModelFinished(t *testing.T) {
	tm, cmd := NewProgress("run", 1, nil).Update(FinishedMsg{Err: errors.New("boom")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	m := tm.(ProgressModel)
	if !m.finished || !strings.Contains(m.View(), "boom") {
		t.Errorf("finished view:\n%s", m.View())
	}

	if _, cmd := m.Update(tickMsg(time.Now())); cmd != nil {
		t.Error("tick after finish should not reschedule")
	}
}

func TestProgressModelCancel(t *testing.T) {
	called := false
	m := NewProgress("run", 2, func() { called = true })

	tm, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !called || cmd == nil {
		t.Error("q should cancel and quit")
	}
	if !strings.Contains(tm.(ProgressModel).View(), "cancelled") {
		t.Error("view should report cancellation")
	}
}

func TestFractionNoPartitions(t *testing.T) {
	if f := NewProgress("x", 0, nil).Fraction(); f != 0 {
		t.Errorf("Fraction = %g", f)
	}
}

func TestWatch(t *testing.T) {
	want := &experiment.Result{Partitions: 2}
	var out bytes.Buffer

	res, err := Watch(context.Background(), &out, "test", 2,
		func(ctx context.Context, progress func(experiment.Progress)) (*experiment.Result, error) {
			progress(experiment.Progress{Partition: 1, Partitions: 2, Spins: 1})
			progress(experiment.Progress{Partition: 2, Partitions: 2, Spins: 1})
			return want, nil
		}, tea.WithInput(nil), tea.WithoutRenderer())
	if err != nil {
		t.Fatal(err)
	}
	if res != want {
		t.Errorf("Watch returned %+v", res)
	}
}

func TestWatchError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Watch(context.Background(), &bytes.Buffer{}, "test", 1,
		func(ctx context.Context, progress func(experiment.Progress)) (*experiment.Result, error) {
			return nil, boom
		}, tea.WithInput(nil), tea.WithoutRenderer())
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want boom", err)
	}
}

func TestSparkline(t *testing.T) {
	got := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8)
	if got != "▁▂▃▄▅▆▇█" {
		t.Errorf("Sparkline = %q", got)
	}
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("empty Sparkline = %q", got)
	}
	if got := []rune(Sparkline([]float64{1, 1, 1, 1}, 2)); len(got) != 2 || got[0] != '▁' {
		t.Errorf("flat Sparkline = %q", string(got))
	}
}

func TestProgressBarClamp(t *testing.T) {
	for _, p := range []float64{-1, 0.5, 2} {
		bar := ProgressBar(p, 10)
		if n := strings.Count(bar, "█") + strings.Count(bar, "░"); n != 10 {
			t.Errorf("ProgressBar(%g) has %d cells", p, n)
		}
	}
}
