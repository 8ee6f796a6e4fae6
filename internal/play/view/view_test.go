package view

import (
	"testing"

	"bhashakahani/internal/api"
	"bhashakahani/internal/play/engine"
	"bhashakahani/internal/play/sequencer"

	"github.com/stretchr/testify/assert"
)

func status(index, total int) sequencer.Status {
	return sequencer.Status{
		Index: index,
		Total: total,
		Node:  api.StoryNode{ID: "n", Text: "Once upon a time."},
	}
}

func TestDeriveProgress(t *testing.T) {
	snap := Derive(status(0, 4), engine.StateIdle)
	assert.Equal(t, 1, snap.NodeNumber)
	assert.Equal(t, 4, snap.TotalNodes)
	assert.InDelta(t, 25.0, snap.ProgressPercent, 0.01)

	snap = Derive(status(3, 4), engine.StateIdle)
	assert.InDelta(t, 100.0, snap.ProgressPercent, 0.01)
}

func TestDeriveEmptyStory(t *testing.T) {
	snap := Derive(sequencer.Status{Total: 0, Completed: true}, engine.StateIdle)
	assert.Equal(t, 0, snap.NodeNumber)
	assert.Zero(t, snap.ProgressPercent)
	assert.True(t, snap.Completed)
	assert.False(t, snap.CanPrev)
	assert.False(t, snap.CanNext)
}

func TestDeriveNavigationFlags(t *testing.T) {
	snap := Derive(status(0, 3), engine.StateIdle)
	assert.False(t, snap.CanPrev)
	assert.True(t, snap.CanNext)

	snap = Derive(status(1, 3), engine.StateIdle)
	assert.True(t, snap.CanPrev)
	assert.True(t, snap.CanNext)

	snap = Derive(status(2, 3), engine.StateIdle)
	assert.True(t, snap.CanPrev)
	assert.False(t, snap.CanNext)
}

func TestDeriveCharacterName(t *testing.T) {
	st := status(0, 1)
	assert.Equal(t, "Narrator", Derive(st, engine.StateIdle).Character)

	st.Node.Character = &api.Character{Name: "Tenali Rama"}
	assert.Equal(t, "Tenali Rama", Derive(st, engine.StateIdle).Character)
}

func TestDeriveHint(t *testing.T) {
	st := status(0, 3)

	assert.Equal(t, HintTapToListen, Derive(st, engine.StateIdle).Hint)
	assert.Equal(t, HintNowPlaying, Derive(st, engine.StatePlaying).Hint)
	assert.Equal(t, HintPreparing, Derive(st, engine.StateLoading).Hint)

	st.Resolving = true
	assert.Equal(t, HintPreparing, Derive(st, engine.StateIdle).Hint, "resolving outranks everything")

	st.Resolving = false
	st.SpeechFallback = true
	assert.Equal(t, HintInstant, Derive(st, engine.StateIdle).Hint)
	assert.Equal(t, HintNowPlaying, Derive(st, engine.StatePlaying).Hint, "an audible unit outranks the fallback hint")
}

func TestDerivePlayingPausedFlags(t *testing.T) {
	st := status(0, 3)
	snap := Derive(st, engine.StatePlaying)
	assert.True(t, snap.Playing)
	assert.False(t, snap.Paused)

	snap = Derive(st, engine.StatePaused)
	assert.False(t, snap.Playing)
	assert.True(t, snap.Paused)
}
