// SPDX-License-Identifier: MIT

// Package tui holds the bubbletea screens: the dictation screen with its
// live waveform, and the input device picker.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"dentvoice/internal/config"
	applog "dentvoice/internal/log"
	"dentvoice/internal/render"
	"dentvoice/internal/session"
	"dentvoice/internal/transcribe"
	"dentvoice/internal/waveform"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Rows of block glyphs used for the waveform.
const waveformRows = 4

var (
	stateStyles = map[session.State]lipgloss.Style{
		session.Idle:      lipgloss.NewStyle().Foreground(lipgloss.Color("#9E9E9E")),
		session.Recording: lipgloss.NewStyle().Foreground(lipgloss.Color("#F44336")).Bold(true),
		session.Thinking:  lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")).Bold(true),
	}

	transcriptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#25A065")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F44336"))
)

type dictationKeys struct {
	Toggle key.Binding
	Cancel key.Binding
	Quit   key.Binding
}

func (k dictationKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Cancel, k.Quit}
}

func (k dictationKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultDictationKeys = dictationKeys{
	Toggle: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "start/stop")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "discard")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type startedMsg struct{ err error }

type transcribedMsg struct {
	text string
	err  error
}

// DictationModel is the main screen.
type DictationModel struct {
	ctx     context.Context
	vis     *waveform.Visualizer
	surface *render.Terminal
	sched   *Scheduler
	sess    *session.Session

	keys       dictationKeys
	help       help.Model
	busy       bool
	transcript string
	err        error
}

// NewDictationModel wires a visualizer drawing onto surface, whose ticks
// come from sched, to a dictation session.
func NewDictationModel(ctx context.Context, vis *waveform.Visualizer, surface *render.Terminal, sched *Scheduler, sess *session.Session) DictationModel {
	return DictationModel{
		ctx:     ctx,
		vis:     vis,
		surface: surface,
		sched:   sched,
		sess:    sess,
		keys:    defaultDictationKeys,
		help:    help.New(),
	}
}

// Init mounts the visualizer and starts listening for frames.
func (m DictationModel) Init() tea.Cmd {
	m.vis.Mount()
	return tea.Batch(m.sched.Cmds(), m.sched.Wait())
}

func (m DictationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FrameMsg:
		m.sched.Fire(msg)
		return m, m.sched.Cmds()

	case wakeMsg:
		return m, tea.Batch(m.sched.Cmds(), m.sched.Wait())

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case startedMsg:
		m.busy = false
		m.err = msg.err
		return m, m.sched.Cmds()

	case transcribedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.transcript = msg.text
			m.err = nil
		}
		return m, m.sched.Cmds()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.shutdown()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Toggle):
			if m.busy {
				return m, nil
			}
			switch m.sess.State() {
			case session.Idle:
				m.busy = true
				m.err = nil
				return m, m.start()
			case session.Recording:
				m.busy = true
				return m, m.stop()
			}

		case key.Matches(msg, m.keys.Cancel):
			if !m.busy && m.sess.State() == session.Recording {
				m.err = m.sess.Cancel()
				return m, m.sched.Cmds()
			}
		}
	}
	return m, nil
}

func (m DictationModel) start() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		return startedMsg{err: sess.Start(ctx)}
	}
}

func (m DictationModel) stop() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		text, err := sess.Stop(ctx)
		return transcribedMsg{text: text, err: err}
	}
}

func (m DictationModel) shutdown() {
	if m.sess.State() == session.Recording {
		if err := m.sess.Cancel(); err != nil {
			applog.Warnf("TUI: discarding recording: %v", err)
		}
	}
	m.vis.Close()
	m.sched.Close()
}

func (m DictationModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("dentvoice"))
	sb.WriteString("\n\n")
	sb.WriteString(m.surface.String())
	sb.WriteString("\n\n")

	state := m.sess.State()
	sb.WriteString(stateStyles[state].Render("● " + state.String()))
	sb.WriteString("\n\n")

	if m.transcript != "" {
		sb.WriteString(transcriptStyle.Render(m.transcript))
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	} else if err := m.vis.Err(); err != nil {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Microphone (%s): %v", waveform.KindOf(err), err)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// NewWaveformSurface sizes a terminal surface so each bar lands in its
// own column.
func NewWaveformSurface(opts waveform.Options, requestedWidth int) *render.Terminal {
	pitch := opts.Pitch()
	cols := opts.SurfaceWidth(requestedWidth) / pitch
	return render.NewTerminal(cols, waveformRows, pitch, opts.Height)
}

// RunDictation runs the dictation screen until the user quits. Frames are
// also published to sink when it is non-nil.
func RunDictation(ctx context.Context, cfg *config.Config, sink waveform.FrameSink) error {
	opts, err := waveform.OptionsFromConfig(cfg.Waveform)
	if err != nil {
		return err
	}

	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	applog.SetOutput(logOut)
	defer applog.SetOutput(os.Stderr)

	sched := NewScheduler(cfg.Waveform.FrameRate)
	surface := NewWaveformSurface(opts, cfg.Waveform.Width)
	vis, err := waveform.New(surface, opts, waveform.Deps{
		Scheduler:   sched,
		NewAnalyser: waveform.NewAnalyserFactory(cfg.Analyser),
		Sink:        sink,
	})
	if err != nil {
		return err
	}

	sess := session.New(vis, session.MicrophoneOpener(cfg.Audio), transcribe.NewClient(cfg.API), cfg.Recording)
	model := NewDictationModel(ctx, vis, surface, sched, sess)

	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	model.shutdown()
	return err
}
