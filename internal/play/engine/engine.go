// Package engine owns the single active sound-producing unit: either a
// streamed narration clip or a synthesized speech utterance, never both.
package engine

import (
	"sync"

	"bhashakahani/internal/speech"

	"github.com/sirupsen/logrus"
)

// State of the engine.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// Kind tags the active unit variant.
type Kind int

const (
	KindNone Kind = iota
	KindStreamed
	KindSynthesized
)

// StreamHandle controls one in-flight streamed clip.
type StreamHandle interface {
	Pause()
	Resume()
	Stop()
}

// StreamPlayer starts streamed audio clips. done must be invoked when the
// clip ends naturally or fails mid-play; completions arriving after the clip
// was stopped are discarded by the engine.
type StreamPlayer interface {
	Play(url string, done func(err error)) (StreamHandle, error)
}

type activeUnit struct {
	kind   Kind
	nodeID string
	stream StreamHandle
	speech speech.Utterance
}

// Engine coordinates the two playback mechanisms. Starting any unit first
// tears down the previous one synchronously, so two units can never race to
// deliver competing completion events.
type Engine struct {
	player StreamPlayer
	synth  speech.Synthesizer

	mu      sync.Mutex
	state   State
	active  activeUnit
	token   uint64
	locales map[string]string
	rate    float64
	volume  float64

	onEnded   []func(nodeID string)
	onErrored []func(nodeID string, err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocales overrides the language-code to synthesis-locale mapping.
func WithLocales(locales map[string]string) Option {
	return func(e *Engine) { e.locales = locales }
}

// WithSpeechTuning sets the rate and volume applied to synthesized speech.
func WithSpeechTuning(rate, volume float64) Option {
	return func(e *Engine) {
		if rate > 0 {
			e.rate = rate
		}
		if volume > 0 {
			e.volume = volume
		}
	}
}

func New(player StreamPlayer, synth speech.Synthesizer, opts ...Option) *Engine {
	e := &Engine{
		player:  player,
		synth:   synth,
		locales: speech.Locales(),
		rate:    1.0,
		volume:  1.0,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnEnded subscribes to natural-end events of either unit kind.
func (e *Engine) OnEnded(fn func(nodeID string)) {
	e.mu.Lock()
	e.onEnded = append(e.onEnded, fn)
	e.mu.Unlock()
}

// OnErrored subscribes to playback failures.
func (e *Engine) OnErrored(fn func(nodeID string, err error)) {
	e.mu.Lock()
	e.onErrored = append(e.onErrored, fn)
	e.mu.Unlock()
}

// PlayStreamed starts a streamed clip for a node. Calling it again for the
// node that is already active is a no-op, guarding against duplicate triggers
// from re-renders or rapid double presses.
func (e *Engine) PlayStreamed(url, nodeID string) error {
	e.mu.Lock()
	if e.active.kind != KindNone && e.active.nodeID == nodeID {
		e.mu.Unlock()
		return nil
	}
	e.stopLocked()
	e.token++
	tok := e.token
	// Claim the unit before the (possibly slow) start so duplicate play
	// requests and completions that land mid-start resolve against it.
	e.active = activeUnit{kind: KindStreamed, nodeID: nodeID}
	e.state = StateLoading
	e.mu.Unlock()

	handle, err := e.player.Play(url, func(err error) {
		e.unitDone(tok, nodeID, err)
	})

	e.mu.Lock()
	if tok != e.token {
		// Superseded or already completed while starting.
		e.mu.Unlock()
		if handle != nil {
			handle.Stop()
		}
		return nil
	}
	if err != nil {
		e.token++
		e.active = activeUnit{}
		e.state = StateIdle
		e.mu.Unlock()
		logrus.WithError(err).WithField("node_id", nodeID).Warn("Streamed playback failed to start")
		e.fireErrored(nodeID, err)
		return err
	}
	e.active.stream = handle
	e.state = StatePlaying
	e.mu.Unlock()
	return nil
}

// PlaySynthesized starts a speech utterance for a node's text, selecting the
// synthesis locale from the language code. Same idempotency and stop-prior
// rules as PlayStreamed.
func (e *Engine) PlaySynthesized(text, languageCode, nodeID string) error {
	e.mu.Lock()
	if e.active.kind != KindNone && e.active.nodeID == nodeID {
		e.mu.Unlock()
		return nil
	}
	e.stopLocked()
	e.token++
	tok := e.token
	e.active = activeUnit{kind: KindSynthesized, nodeID: nodeID}
	e.state = StateLoading
	locale := e.localeFor(languageCode)
	rate, volume := e.rate, e.volume
	e.mu.Unlock()

	utt, err := e.synth.Speak(speech.Request{
		Text:   text,
		Locale: locale,
		Rate:   rate,
		Volume: volume,
	}, func(err error) {
		e.unitDone(tok, nodeID, err)
	})

	e.mu.Lock()
	if tok != e.token {
		e.mu.Unlock()
		if utt != nil {
			utt.Cancel()
		}
		return nil
	}
	if err != nil {
		e.token++
		e.active = activeUnit{}
		e.state = StateIdle
		e.mu.Unlock()
		logrus.WithError(err).WithField("node_id", nodeID).Warn("Speech synthesis failed to start")
		e.fireErrored(nodeID, err)
		return err
	}
	e.active.speech = utt
	e.state = StatePlaying
	e.mu.Unlock()
	return nil
}

// Pause pauses a streamed clip in place, or cancels a synthesized utterance
// outright: speech has no pause primitive and must restart from the top of
// the node if re-engaged.
func (e *Engine) Pause() {
	e.mu.Lock()
	switch e.active.kind {
	case KindStreamed:
		if e.state == StatePlaying {
			e.active.stream.Pause()
			e.state = StatePaused
		}
		e.mu.Unlock()
	case KindSynthesized:
		e.stopLocked()
		e.mu.Unlock()
	default:
		e.mu.Unlock()
	}
}

// Resume resumes a paused streamed clip. It reports false when nothing is
// resumable, in which case the caller starts a fresh unit for the current
// node instead.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active.kind == KindStreamed && e.state == StatePaused {
		e.active.stream.Resume()
		e.state = StatePlaying
		return true
	}
	return false
}

// Stop halts whatever is active. Safe to call when nothing is.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopLocked()
	e.mu.Unlock()
}

// stopLocked tears down the active unit synchronously and advances the token
// so any completion callback the old unit still delivers is discarded.
func (e *Engine) stopLocked() {
	switch e.active.kind {
	case KindStreamed:
		e.token++
		if e.active.stream != nil {
			e.active.stream.Stop()
		}
	case KindSynthesized:
		e.token++
		if e.active.speech != nil {
			e.active.speech.Cancel()
		}
	}
	e.active = activeUnit{}
	e.state = StateIdle
}

func (e *Engine) unitDone(tok uint64, nodeID string, err error) {
	e.mu.Lock()
	if tok != e.token {
		e.mu.Unlock()
		logrus.WithField("node_id", nodeID).Debug("Discarding stale playback completion")
		return
	}
	e.token++
	e.active = activeUnit{}
	e.state = StateIdle
	e.mu.Unlock()

	if err != nil {
		e.fireErrored(nodeID, err)
		return
	}
	e.fireEnded(nodeID)
}

func (e *Engine) fireEnded(nodeID string) {
	e.mu.Lock()
	subs := make([]func(string), len(e.onEnded))
	copy(subs, e.onEnded)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(nodeID)
	}
}

func (e *Engine) fireErrored(nodeID string, err error) {
	e.mu.Lock()
	subs := make([]func(string, error), len(e.onErrored))
	copy(subs, e.onErrored)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(nodeID, err)
	}
}

func (e *Engine) localeFor(languageCode string) string {
	if l, ok := e.locales[languageCode]; ok {
		return l
	}
	return speech.FallbackLocale
}

// State returns the engine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Active returns the active unit's node and kind; kind is KindNone when idle.
func (e *Engine) Active() (nodeID string, kind Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active.nodeID, e.active.kind
}
