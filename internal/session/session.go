// SPDX-License-Identifier: MIT

// Package session runs one dictation at a time: it records the microphone
// while the waveform shows it live, then hands the recording to a
// transcriber while the waveform shows the processing animation.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dentvoice/internal/audio"
	"dentvoice/internal/config"
	applog "dentvoice/internal/log"
	"dentvoice/internal/transcribe"

	"github.com/google/uuid"
)

// State is the dictation phase.
type State int

const (
	Idle State = iota
	Recording
	Thinking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Thinking:
		return "thinking"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event drives a state transition.
type Event int

const (
	EventStart Event = iota
	EventStop
	EventTranscribed
	EventFail
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventTranscribed:
		return "transcribed"
	case EventFail:
		return "fail"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

var transitions = map[State]map[Event]State{
	Idle:      {EventStart: Recording},
	Recording: {EventStop: Thinking, EventFail: Idle},
	Thinking:  {EventTranscribed: Idle, EventFail: Idle},
}

// ErrInvalidTransition reports an event the current state does not accept.
var ErrInvalidTransition = errors.New("session: invalid transition")

// Visualizer is the part of waveform.Visualizer a session drives.
type Visualizer interface {
	SetActive(active bool)
	SetProcessing(processing bool)
	SetAudioStream(stream audio.Stream)
}

// Opener opens the capture stream for one dictation.
type Opener func(ctx context.Context) (audio.Stream, error)

// MicrophoneOpener opens the configured PortAudio input.
func MicrophoneOpener(cfg config.AudioConfig) Opener {
	return func(ctx context.Context) (audio.Stream, error) {
		mic, err := audio.OpenMicrophone(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return mic, nil
	}
}

// Session is safe for concurrent use.
type Session struct {
	vis         Visualizer
	open        Opener
	transcriber transcribe.Transcriber
	cfg         config.RecordingConfig
	now         func() time.Time

	mu       sync.Mutex
	state    State
	starting bool
	mic      audio.Stream
	rec      *audio.Recorder
	onChange func(State)
}

// New returns an idle session.
func New(vis Visualizer, open Opener, t transcribe.Transcriber, cfg config.RecordingConfig) *Session {
	if cfg.BitDepth == 0 {
		cfg.BitDepth = config.DefaultBitDepth
	}
	return &Session{
		vis:         vis,
		open:        open,
		transcriber: t,
		cfg:         cfg,
		now:         time.Now,
	}
}

// OnChange registers fn to be called after every transition.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// fireLocked applies ev and returns the callback to run once unlocked.
func (s *Session) fireLocked(ev Event) (func(), error) {
	next, ok := transitions[s.state][ev]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev, s.state)
	}
	applog.Debugf("Session: %s --%s--> %s", s.state, ev, next)
	s.state = next
	fn := s.onChange
	if fn == nil {
		return func() {}, nil
	}
	return func() { fn(next) }, nil
}

// Start opens the microphone, shares it with the visualizer and begins
// recording. The lock is not held while the device opens; a concurrent
// Start is rejected until this one settles.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if _, ok := transitions[s.state][EventStart]; !ok || s.starting {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, EventStart, state)
	}
	s.starting = true
	s.mu.Unlock()

	mic, rec, path, err := s.begin(ctx)

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.mic, s.rec = mic, rec
	notify, _ := s.fireLocked(EventStart)
	s.mu.Unlock()

	s.vis.SetAudioStream(mic)
	s.vis.SetActive(true)
	applog.Infof("Session: recording to %s", path)
	notify()
	return nil
}

// begin opens the microphone and starts writing it to a fresh file.
func (s *Session) begin(ctx context.Context) (audio.Stream, *audio.Recorder, string, error) {
	mic, err := s.open(ctx)
	if err != nil {
		return nil, nil, "", fmt.Errorf("open microphone: %w", err)
	}

	path, err := s.recordingPath()
	var rec *audio.Recorder
	if err == nil {
		rec, err = audio.StartRecording(mic, path, s.cfg.BitDepth)
	}
	if err != nil {
		if cerr := mic.Close(); cerr != nil {
			applog.Warnf("Session: closing microphone: %v", cerr)
		}
		return nil, nil, "", fmt.Errorf("start recording: %w", err)
	}
	return mic, rec, path, nil
}

// Stop ends the recording and transcribes it. The visualizer shows the
// processing animation until the transcriber returns.
func (s *Session) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	notify, err := s.fireLocked(EventStop)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	mic, rec := s.mic, s.rec
	s.mic, s.rec = nil, nil
	s.mu.Unlock()
	notify()

	s.vis.SetActive(false)
	s.vis.SetProcessing(true)
	defer s.vis.SetProcessing(false)

	path := rec.Path()
	stopErr := rec.Stop()
	if err := mic.Close(); err != nil {
		applog.Warnf("Session: closing microphone: %v", err)
	}
	s.vis.SetAudioStream(nil)
	defer s.cleanup(path)

	if stopErr != nil {
		s.finish(EventFail)
		return "", fmt.Errorf("finalize recording: %w", stopErr)
	}
	applog.Infof("Session: recorded %d frames, transcribing", rec.Frames())

	text, err := s.transcriber.Transcribe(ctx, path)
	if err != nil {
		s.finish(EventFail)
		return "", fmt.Errorf("transcribe: %w", err)
	}
	s.finish(EventTranscribed)
	return text, nil
}

// Cancel discards an in-progress recording without transcribing it.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.state != Recording {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cancel in %s", ErrInvalidTransition, state)
	}
	notify, _ := s.fireLocked(EventFail)
	mic, rec := s.mic, s.rec
	s.mic, s.rec = nil, nil
	s.mu.Unlock()

	s.vis.SetActive(false)
	stopErr := rec.Stop()
	closeErr := mic.Close()
	s.vis.SetAudioStream(nil)
	s.cleanup(rec.Path())
	notify()
	return errors.Join(stopErr, closeErr)
}

func (s *Session) finish(ev Event) {
	s.mu.Lock()
	notify, err := s.fireLocked(ev)
	s.mu.Unlock()
	if err != nil {
		applog.Errorf("Session: %v", err)
		return
	}
	notify()
}

func (s *Session) recordingPath() (string, error) {
	dir := s.cfg.OutputDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("dictation-%s-%s.wav", s.now().Format("20060102-150405"), uuid.NewString()[:8])
	return filepath.Join(dir, name), nil
}

func (s *Session) cleanup(path string) {
	if s.cfg.Keep {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		applog.Warnf("Session: removing %s: %v", path, err)
	}
}
