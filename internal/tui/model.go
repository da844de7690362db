// Package tui provides the Bubble Tea playback control surface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/cadence/internal/config"
	"github.com/verte-zerg/cadence/internal/eta"
	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/playback"
	"github.com/verte-zerg/cadence/internal/sentence"
)

const (
	refreshInterval = 100 * time.Millisecond
	wpmStep         = 5.0
	minWPM          = 5.0
)

// Starter launches a background playback run.
type Starter interface {
	Start(ctx context.Context, text string) (<-chan playback.Result, bool)
}

// Options wires the model to its collaborators.
type Options struct {
	Engine    Starter
	Bus       *config.Bus
	Estimator *eta.Estimator
	Tracker   *Tracker
	Text      string
}

type tickMsg time.Time

type startedMsg struct {
	done <-chan playback.Result
	ok   bool
}

type resultMsg playback.Result

var errAlreadyRunning = errors.New("playback already running")

// Model implements the Bubble Tea playback UI.
type Model struct {
	engine    Starter
	bus       *config.Bus
	estimator *eta.Estimator
	tracker   *Tracker

	ctx    context.Context
	cancel context.CancelFunc

	text        string
	targetRunes []rune

	width    int
	height   int
	bar      progress.Model
	running  bool
	quitting bool
	result   *playback.Result
}

var (
	typedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Copy().Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	abortedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	doneStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
)

// NewModel constructs the playback model. The run starts on Init and stops
// when ctx is canceled.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Tracker == nil {
		opts.Tracker = NewTracker()
	}
	if opts.Estimator == nil {
		opts.Estimator = eta.NewEstimator()
	}
	runCtx, cancel := context.WithCancel(ctx)
	text := sentence.Normalize(opts.Text)
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	return &Model{
		engine:      opts.Engine,
		bus:         opts.Bus,
		estimator:   opts.Estimator,
		tracker:     opts.Tracker,
		ctx:         runCtx,
		cancel:      cancel,
		text:        text,
		targetRunes: []rune(text),
		bar:         bar,
	}
}

// Result returns the finished run, or nil while it is still going.
func (m *Model) Result() *playback.Result {
	return m.result
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.tracker.Reset(len(m.targetRunes))
	return tea.Batch(m.start(), tick())
}

func (m *Model) start() tea.Cmd {
	engine, ctx, text := m.engine, m.ctx, m.text
	return func() tea.Msg {
		done, ok := engine.Start(ctx, text)
		return startedMsg{done: done, ok: ok}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitResult(done <-chan playback.Result) tea.Cmd {
	return func() tea.Msg {
		return resultMsg(<-done)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, m.contentWidth()/2)
		return m, nil
	case startedMsg:
		if !msg.ok {
			res := playback.Result{Status: model.StatusAborted, Reason: playback.ReasonCanceled, Err: errAlreadyRunning}
			m.result = &res
			return m, nil
		}
		m.running = true
		return m, waitResult(msg.done)
	case resultMsg:
		res := playback.Result(msg)
		m.result = &res
		m.running = false
		m.tracker.OnFinish(res)
		m.cancel()
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	case tickMsg:
		if m.result != nil {
			return m, nil
		}
		return m, tick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.result != nil {
			return m, tea.Quit
		}
		m.quitting = true
		m.cancel()
	case "esc":
		m.cancel()
	case "q":
		if m.result != nil {
			return m, tea.Quit
		}
	case "+", "=":
		m.adjustWPM(wpmStep)
	case "-", "_":
		m.adjustWPM(-wpmStep)
	}
	return m, nil
}

func (m *Model) adjustWPM(delta float64) {
	if m.bus == nil {
		return
	}
	cfg := m.bus.Current().Config
	cfg.WPM = max(minWPM, cfg.WPM+delta)
	m.bus.SetConfig(config.SourceControl, cfg)
}

func (m *Model) typingConfig() model.TypingConfig {
	if m.bus == nil {
		return model.DefaultTypingConfig()
	}
	return m.bus.Current().Config
}

func (m *Model) contentWidth() int {
	return max(1, int(float64(m.width)*0.70))
}

// View implements tea.Model.
func (m *Model) View() string {
	done := m.tracker.Done()
	cursorIndex := -1
	if m.result == nil && done < len(m.targetRunes) {
		cursorIndex = done
	}
	styledRunes := buildStyledRunes(m.targetRunes, done, cursorIndex)
	status := m.renderStatus()
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return strings.Join([]string{renderStyledRunes(styledRunes), status, footer}, "\n")
	}
	width := m.contentWidth()
	wrapped := wrapStyledRunes(styledRunes, width)
	content := lipgloss.NewStyle().Width(width).Render(wrapped)
	bar := m.bar.ViewAs(m.fraction())
	if m.height < 5 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, footer)
	}
	body := lipgloss.Place(m.width, m.height-3, lipgloss.Center, lipgloss.Center, content)
	lines := []string{body}
	for _, line := range []string{bar, status, footer} {
		lines = append(lines, lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, line))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) fraction() float64 {
	if len(m.targetRunes) == 0 {
		if m.result != nil {
			return 1
		}
		return 0
	}
	return float64(m.tracker.Done()) / float64(len(m.targetRunes))
}

func (m *Model) renderStatus() string {
	if m.result != nil {
		res := m.result
		if res.Status == model.StatusCompleted {
			return doneStyle.Render("Completed · press q to quit")
		}
		msg := fmt.Sprintf("Aborted (%s) at %d/%d", res.Reason, res.Position, res.Total)
		if res.Err != nil {
			msg += ": " + res.Err.Error()
		}
		return abortedStyle.Render(msg + " · press q to quit")
	}
	switch pause := m.tracker.Pause(); pause {
	case "":
		if m.running {
			return footerStyle.Render("Typing · esc to abort · +/- to change speed")
		}
		return footerStyle.Render("Starting")
	case playback.PauseCountdown:
		return footerStyle.Render("Focus the target window · esc to abort")
	default:
		return footerStyle.Render(fmt.Sprintf("Thinking (%s pause)", pause))
	}
}

func (m *Model) renderFooter() string {
	cfg := m.typingConfig()
	done := m.tracker.Done()
	progressPct := int(m.fraction() * 100)
	remaining := 0.0
	if m.result == nil {
		remaining = m.estimator.Estimate(m.text, done, cfg)
	}
	segments := []string{
		fmt.Sprintf("Progress %d%%", progressPct),
		fmt.Sprintf("ETA %s", eta.Format(remaining)),
		fmt.Sprintf("%.0f WPM", cfg.WPM),
		fmt.Sprintf("Mistakes %d", m.tracker.Mistakes()),
		fmt.Sprintf("Pauses %d", m.tracker.Pauses()),
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
