// Package view derives the presentation snapshot for the playback screen.
// Pure functions only; no I/O and no side effects.
package view

import (
	"bhashakahani/internal/play/engine"
	"bhashakahani/internal/play/sequencer"
)

// Hint texts shown under the play control.
const (
	HintPreparing   = "preparing audio"
	HintNowPlaying  = "now playing"
	HintTapToListen = "tap to listen"
	HintInstant     = "instant voice available"
)

// Snapshot is everything the playback screen renders.
type Snapshot struct {
	Text            string
	Character       string
	Language        string
	NodeNumber      int
	TotalNodes      int
	ProgressPercent float64
	CanPrev         bool
	CanNext         bool
	Playing         bool
	Paused          bool
	Completed       bool
	Hint            string
}

// Derive computes the snapshot from sequencer and engine state.
func Derive(st sequencer.Status, engineState engine.State) Snapshot {
	snap := Snapshot{
		Text:       st.Node.Text,
		Language:   st.Language,
		NodeNumber: st.Index + 1,
		TotalNodes: st.Total,
		CanPrev:    st.Index > 0,
		CanNext:    st.Index < st.Total-1,
		Playing:    engineState == engine.StatePlaying,
		Paused:     engineState == engine.StatePaused,
		Completed:  st.Completed,
	}

	if st.Node.Character != nil {
		snap.Character = st.Node.Character.Name
	} else {
		snap.Character = "Narrator"
	}

	if st.Total > 0 {
		snap.ProgressPercent = float64(st.Index+1) / float64(st.Total) * 100
	} else {
		snap.NodeNumber = 0
		snap.ProgressPercent = 0
	}

	snap.Hint = hint(st, engineState)
	return snap
}

func hint(st sequencer.Status, engineState engine.State) string {
	switch {
	case st.Resolving || engineState == engine.StateLoading:
		return HintPreparing
	case engineState == engine.StatePlaying:
		return HintNowPlaying
	case st.SpeechFallback:
		return HintInstant
	default:
		return HintTapToListen
	}
}
