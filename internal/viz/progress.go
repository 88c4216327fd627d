package viz

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/spinsim/internal/experiment"
)

const barWidth = 40

type (
	// PartitionMsg reports one finished partition.
	PartitionMsg experiment.Progress

	// FinishedMsg ends the program once the experiment returns.
	FinishedMsg struct {
		Result *experiment.Result
		Err    error
	}

	tickMsg time.Time
)

// ProgressModel shows partition completion for a running experiment.
type ProgressModel struct {
	title      string
	partitions int
	done       int
	spins      int
	failed     int
	durations  []float64
	started    time.Time
	elapsed    time.Duration
	frame      int
	finished   bool
	cancelled  bool
	err        error
	cancel     context.CancelFunc
	width      int
}

// NewProgress returns a model expecting partitions updates. cancel is called
// when the user quits early and may be nil.
func NewProgress(title string, partitions int, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{
		title:      title,
		partitions: partitions,
		started:    time.Now(),
		cancel:     cancel,
		width:      80,
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m ProgressModel) Init() tea.Cmd { return tick() }

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case PartitionMsg:
		m.done++
		m.spins += msg.Spins
		m.failed += msg.Failed
		m.durations = append(m.durations, msg.Elapsed.Seconds())
		if msg.Partitions > 0 {
			m.partitions = msg.Partitions
		}
	case FinishedMsg:
		m.finished = true
		m.err = msg.Err
		m.elapsed = time.Since(m.started)
		if msg.Result != nil {
			m.elapsed = msg.Result.Elapsed
		}
		return m, tea.Quit
	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.frame++
		m.elapsed = time.Since(m.started)
		return m, tick()
	}
	return m, nil
}

// Fraction returns the share of partitions finished.
func (m ProgressModel) Fraction() float64 {
	if m.partitions == 0 {
		return 0
	}
	return float64(m.done) / float64(m.partitions)
}

func (m ProgressModel) View() string {
	var b strings.Builder

	status := StatusRunning.Render(Spinner(m.frame) + " running")
	switch {
	case m.finished && m.err != nil:
		status = StatusFailed.Render("✗ failed")
	case m.finished:
		status = StatusRunning.Render("✓ done")
	case m.cancelled:
		status = StatusFailed.Render("✗ cancelled")
	}
	fmt.Fprintf(&b, "%s  %s\n\n", TitleStyle.Render(m.title), status)

	fmt.Fprintf(&b, "%s %s\n", ProgressBar(m.Fraction(), barWidth),
		MetricValue.Render(fmt.Sprintf("%d/%d", m.done, m.partitions)))
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n",
		MetricLabel.Render("spins"), MetricValue.Render(fmt.Sprint(m.spins)),
		MetricLabel.Render("failed"), MetricValue.Render(fmt.Sprint(m.failed)),
		MetricLabel.Render("elapsed"), MetricValue.Render(m.elapsed.Round(time.Millisecond).String()))

	if len(m.durations) > 1 {
		fmt.Fprintf(&b, "%s %s\n", MetricLabel.Render("partition time"),
			SparklineChart(m.durations, min(len(m.durations), barWidth)))
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\n%s\n", StatusFailed.Render(m.err.Error()))
	}
	if !m.finished {
		fmt.Fprintf(&b, "\n%s\n", KeyHint.Render("q: cancel"))
	}
	return b.String()
}

type outcome struct {
	res *experiment.Result
	err error
}

// Watch runs fn while rendering its progress to out. fn must report each
// finished partition through the callback it is given and return once ctx
// is done.
func Watch(ctx context.Context, out io.Writer, title string, partitions int,
	fn func(ctx context.Context, progress func(experiment.Progress)) (*experiment.Result, error),
	opts ...tea.ProgramOption) (*experiment.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithOutput(out), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewProgress(title, partitions, cancel), opts...)

	done := make(chan outcome, 1)
	go func() {
		res, err := fn(ctx, func(pr experiment.Progress) { p.Send(PartitionMsg(pr)) })
		done <- outcome{res, err}
		p.Send(FinishedMsg{Result: res, Err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-done
		return nil, err
	}
	o := <-done
	return o.res, o.err
}
