package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"bhashakahani/internal/speech"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu      sync.Mutex
	paused  bool
	stopped bool
}

func (h *fakeHandle) Pause() {
	h.mu.Lock()
	h.paused = true
	h.mu.Unlock()
}

func (h *fakeHandle) Resume() {
	h.mu.Lock()
	h.paused = false
	h.mu.Unlock()
}

func (h *fakeHandle) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
}

func (h *fakeHandle) isStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

type fakePlayer struct {
	mu      sync.Mutex
	urls    []string
	handles []*fakeHandle
	dones   []func(error)
	failErr error
}

func (p *fakePlayer) Play(url string, done func(err error)) (StreamHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return nil, p.failErr
	}
	h := &fakeHandle{}
	p.urls = append(p.urls, url)
	p.handles = append(p.handles, h)
	p.dones = append(p.dones, done)
	return h, nil
}

func (p *fakePlayer) plays() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.urls)
}

// finish delivers the completion callback of the i-th started clip.
func (p *fakePlayer) finish(i int, err error) {
	p.mu.Lock()
	done := p.dones[i]
	p.mu.Unlock()
	done(err)
}

type events struct {
	mu      sync.Mutex
	ended   []string
	errored []string
}

func (ev *events) bind(e *Engine) {
	e.OnEnded(func(nodeID string) {
		ev.mu.Lock()
		ev.ended = append(ev.ended, nodeID)
		ev.mu.Unlock()
	})
	e.OnErrored(func(nodeID string, err error) {
		ev.mu.Lock()
		ev.errored = append(ev.errored, nodeID)
		ev.mu.Unlock()
	})
}

func (ev *events) endedCount() int {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return len(ev.ended)
}

func newTestEngine() (*Engine, *fakePlayer, *speech.MockSynthesizer, *events) {
	player := &fakePlayer{}
	synth := speech.NewMock()
	e := New(player, synth)
	ev := &events{}
	ev.bind(e)
	return e, player, synth, ev
}

func TestPlayStreamedStartsSingleUnit(t *testing.T) {
	e, player, _, _ := newTestEngine()

	require.NoError(t, e.PlayStreamed("http://cdn/a.mp3", "node-a"))

	assert.Equal(t, StatePlaying, e.State())
	nodeID, kind := e.Active()
	assert.Equal(t, "node-a", nodeID)
	assert.Equal(t, KindStreamed, kind)
	assert.Equal(t, 1, player.plays())
}

func TestPlayStreamedIdempotentForActiveNode(t *testing.T) {
	e, player, _, ev := newTestEngine()

	require.NoError(t, e.PlayStreamed("http://cdn/a.mp3", "node-a"))
	require.NoError(t, e.PlayStreamed("http://cdn/a.mp3", "node-a"))

	assert.Equal(t, 1, player.plays(), "duplicate play for the active node must not start a second unit")

	player.finish(0, nil)
	assert.Equal(t, 1, ev.endedCount(), "one unit, one ended event")
}

func TestStartingNewUnitTearsDownPrevious(t *testing.T) {
	e, player, _, _ := newTestEngine()

	require.NoError(t, e.PlayStreamed("http://cdn/a.mp3", "node-a"))
	require.NoError(t, e.PlaySynthesized("some text", "hi", "node-b"))

	assert.True(t, player.handles[0].isStopped(), "prior streamed unit must be stopped first")
	nodeID, kind := e.Active()
	assert.Equal(t, "node-b", nodeID)
	assert.Equal(t, KindSynthesized, kind)
}

func TestStaleCompletionDiscardedAfterStop(t *testing.T) {
	e, player, _, ev := newTestEngine()

	require.NoError(t, e.PlayStreamed("http://cdn/a.mp3", "node-a"))
	e.Stop()
	player.finish(0, nil)

	assert.Equal(t, 0, ev.endedCount(), "completion of a stopped unit must be discarded")
	assert.Equal(t, StateIdle, e.State())
}

func TestCompetingEndedEventsAfterReplace(t *testing.T) {
	e, player, _, ev := newTestEngine()

	require.NoError(t, e.PlayStreamed("http://cdn/a.mp3", "node-a"))
	require.NoError(t, e.PlayStreamed("http://cdn/b.mp3", "node-b"))

	// The replaced unit reports its end late; only node-b's end counts.
	player.finish(0, nil)
	player.finish(1, nil)

	ev.mu.Lock()
	defer ev.mu.Unlock()
	require.Len(t, ev.ended, 1)
	assert.Equal(t, "node-b", ev.ended[0])
}

func TestPauseResumeStreamed(t *testing.T) {
	e, player, _, _ := newTestEngine()

	require.NoError(t, e.PlayStreamed("http://cdn/a.mp3", "node-a"))
	e.Pause()

	assert.Equal(t, StatePaused, e.State())
	assert.True(t, player.handles[0].paused)

	assert.True(t, e.Resume())
	assert.Equal(t, StatePlaying, e.State())
	assert.False(t, player.handles[0].paused)
}

func TestPauseCancelsSynthesizedOutright(t *testing.T) {
	e, _, synth, _ := newTestEngine()

	require.NoError(t, e.PlaySynthesized("some text", "kn", "node-a"))
	e.Pause()

	assert.Equal(t, StateIdle, e.State())
	assert.True(t, synth.Pending().Cancelled)
	assert.False(t, e.Resume(), "a cancelled utterance is not resumable")
}

func TestSpeechTuningAppliedToUtterances(t *testing.T) {
	player := &fakePlayer{}
	synth := speech.NewMock()
	e := New(player, synth, WithSpeechTuning(1.5, 0.8))

	require.NoError(t, e.PlaySynthesized("some text", "hi", "node-a"))

	spoken := synth.Spoken()
	require.Len(t, spoken, 1)
	assert.Equal(t, 1.5, spoken[0].Rate)
	assert.Equal(t, 0.8, spoken[0].Volume)
	assert.Equal(t, "hi-IN", spoken[0].Locale)
}

func TestStopSafeWhenIdle(t *testing.T) {
	e, _, _, _ := newTestEngine()
	e.Stop()
	e.Stop()
	assert.Equal(t, StateIdle, e.State())
}

func TestPlaybackErrorReturnsToIdleWithoutEnded(t *testing.T) {
	e, player, _, ev := newTestEngine()

	require.NoError(t, e.PlayStreamed("http://cdn/a.mp3", "node-a"))
	player.finish(0, errors.New("decode failed"))

	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, 0, ev.endedCount())
	ev.mu.Lock()
	defer ev.mu.Unlock()
	assert.Equal(t, []string{"node-a"}, ev.errored)
}

func TestStartFailureFiresErrored(t *testing.T) {
	e, player, _, ev := newTestEngine()
	player.failErr = errors.New("fetch failed")

	err := e.PlayStreamed("http://cdn/a.mp3", "node-a")
	require.Error(t, err)
	assert.Equal(t, StateIdle, e.State())
	ev.mu.Lock()
	defer ev.mu.Unlock()
	assert.Equal(t, []string{"node-a"}, ev.errored)
}

func TestClipCompletionDeliveredOffAudioGoroutine(t *testing.T) {
	var mu sync.Mutex
	handled := make(chan struct{})
	finish := detachDone(func(error) {
		// Auto-advance re-enters the audio layer, which needs the mutex the
		// delivering goroutine holds while running callback bodies.
		mu.Lock()
		mu.Unlock()
		close(handled)
	})

	mu.Lock()
	finish(nil)
	mu.Unlock()

	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("completion handler never ran")
	}
}

func TestAtMostOneUnitAfterAnySequence(t *testing.T) {
	e, player, synth, _ := newTestEngine()

	require.NoError(t, e.PlayStreamed("http://cdn/a.mp3", "n0"))
	e.Pause()
	require.NoError(t, e.PlaySynthesized("text one", "en", "n1"))
	require.NoError(t, e.PlayStreamed("http://cdn/c.mp3", "n2"))
	e.Pause()
	assert.True(t, e.Resume())
	e.Stop()
	require.NoError(t, e.PlaySynthesized("text two", "hi", "n3"))

	// Every streamed handle except a finished one must be stopped, and at
	// most one unit can be live.
	live := 0
	for _, h := range player.handles {
		if !h.isStopped() {
			live++
		}
	}
	if utt := synth.Pending(); utt != nil && !utt.Cancelled {
		live++
	}
	assert.LessOrEqual(t, live, 1)

	nodeID, kind := e.Active()
	assert.Equal(t, "n3", nodeID)
	assert.Equal(t, KindSynthesized, kind)
}
