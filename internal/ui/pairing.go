package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Pairing defaults
const (
	DefaultPairWindow   = 30 * time.Second
	DefaultPairTimeout  = 2 * time.Minute
	DefaultPollInterval = 500 * time.Millisecond

	// maxPollFailures consecutive failed polls end the flow.
	maxPollFailures = 3
)

var (
	// ErrPairCancelled is returned when the user quits the pairing screen.
	ErrPairCancelled = errors.New("pairing cancelled")
	// ErrPairTimeout is returned when the button was never pressed.
	ErrPairTimeout = errors.New("pairing window did not open")
)

// PairFlow describes one interactive pairing attempt. IsOpen reports whether
// the sensor's pairing window is open; Pair requests and confirms an id.
type PairFlow struct {
	Sensor       string
	Window       time.Duration // how long the sensor keeps the window open
	Timeout      time.Duration // how long to wait for the button
	PollInterval time.Duration

	IsOpen func(ctx context.Context) (bool, error)
	Pair   func(ctx context.Context) (string, error)
}

type pairState int

const (
	pairWaiting pairState = iota
	pairRequesting
	pairDone
	pairFailed
	pairCancelled
)

type pollDueMsg struct{}

type pollResultMsg struct {
	open bool
	err  error
}

type clockMsg time.Time

type pairResultMsg struct {
	id  string
	err error
}

type pairModel struct {
	ctx   context.Context
	flow  PairFlow
	state pairState

	started  time.Time
	openedAt time.Time
	now      time.Time
	failures int

	id  string
	err error

	spinner spinner.Model
	bar     progress.Model
}

func newPairModel(ctx context.Context, flow PairFlow, now time.Time) pairModel {
	if flow.Window <= 0 {
		flow.Window = DefaultPairWindow
	}
	if flow.Timeout <= 0 {
		flow.Timeout = DefaultPairTimeout
	}
	if flow.PollInterval <= 0 {
		flow.PollInterval = DefaultPollInterval
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = PromptStyle

	return pairModel{
		ctx:     ctx,
		flow:    flow,
		started: now,
		now:     now,
		spinner: sp,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
	}
}

func (m pairModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll(), clockTick())
}

func (m pairModel) poll() tea.Cmd {
	return func() tea.Msg {
		open, err := m.flow.IsOpen(m.ctx)
		return pollResultMsg{open: open, err: err}
	}
}

func (m pairModel) pair() tea.Cmd {
	return func() tea.Msg {
		id, err := m.flow.Pair(m.ctx)
		return pairResultMsg{id: id, err: err}
	}
}

func clockTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func (m pairModel) finished() bool {
	return m.state == pairDone || m.state == pairFailed || m.state == pairCancelled
}

func (m pairModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.state = pairCancelled
			m.err = ErrPairCancelled
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.finished() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case clockMsg:
		m.now = time.Time(msg)
		if m.state == pairWaiting && m.now.Sub(m.started) >= m.flow.Timeout {
			m.state = pairFailed
			m.err = ErrPairTimeout
			return m, tea.Quit
		}
		if m.finished() {
			return m, nil
		}
		return m, clockTick()

	case pollDueMsg:
		if m.state != pairWaiting {
			return m, nil
		}
		return m, m.poll()

	case pollResultMsg:
		if m.state != pairWaiting {
			return m, nil
		}
		if msg.err != nil {
			m.failures++
			if m.failures >= maxPollFailures {
				m.state = pairFailed
				m.err = msg.err
				return m, tea.Quit
			}
		} else {
			m.failures = 0
			if msg.open {
				m.state = pairRequesting
				m.openedAt = m.now
				return m, m.pair()
			}
		}
		return m, tea.Tick(m.flow.PollInterval, func(time.Time) tea.Msg { return pollDueMsg{} })

	case pairResultMsg:
		if msg.err != nil {
			m.state = pairFailed
			m.err = msg.err
		} else {
			m.state = pairDone
			m.id = msg.id
		}
		return m, tea.Quit
	}
	return m, nil
}

// remaining is the fraction of the pairing window left, 0..1.
func (m pairModel) remaining() float64 {
	left := m.flow.Window - m.now.Sub(m.openedAt)
	if left <= 0 {
		return 0
	}
	return float64(left) / float64(m.flow.Window)
}

func (m pairModel) View() string {
	if m.finished() {
		return ""
	}

	muted := lipgloss.NewStyle().Foreground(MutedColor)
	var b strings.Builder
	b.WriteString(PromptStyle.Render(fmt.Sprintf("%s  PAIRING  ─  %s", WarningMarker, m.flow.Sensor)))
	b.WriteString("\n\n")

	switch m.state {
	case pairWaiting:
		left := (m.flow.Timeout - m.now.Sub(m.started)).Round(time.Second)
		b.WriteString(m.spinner.View() + " Press and release the button on the sensor\n\n")
		b.WriteString(muted.Render(fmt.Sprintf("  waiting %s more · q to cancel", left)))
	case pairRequesting:
		b.WriteString("  Window open, pairing...\n\n")
		b.WriteString("  " + m.bar.ViewAs(m.remaining()))
	}
	b.WriteString("\n")
	return b.String()
}

// RunPairing drives the pairing screen until an id is issued, the user quits
// or the button is not pressed within flow.Timeout.
func RunPairing(ctx context.Context, flow PairFlow, opts ...tea.ProgramOption) (string, error) {
	if flow.IsOpen == nil || flow.Pair == nil {
		return "", errors.New("pairing flow needs IsOpen and Pair")
	}

	model := newPairModel(ctx, flow, time.Now())
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return "", fmt.Errorf("pairing screen: %w", err)
	}

	m := final.(pairModel)
	if m.state != pairDone {
		return "", m.err
	}
	return m.id, nil
}
