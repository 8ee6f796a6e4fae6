// Package sequencer drives the node-by-node playback of one story: index
// traversal, auto-advance, audio-or-speech selection and language switching.
package sequencer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bhashakahani/internal/api"
	"bhashakahani/internal/play/audiocache"
	"bhashakahani/internal/play/engine"

	"github.com/sirupsen/logrus"
)

// Status is a point-in-time view of the sequencer, consumed by the view model.
type Status struct {
	Index          int
	Total          int
	Node           api.StoryNode
	Language       string
	AutoAdvance    bool
	Completed      bool
	Resolving      bool
	SpeechFallback bool
}

// Sequencer holds the ordered narration nodes of the current story and the
// position within them, and requests all playback through the engine.
type Sequencer struct {
	engine *engine.Engine
	cache  *audiocache.Cache

	mu             sync.Mutex
	story          *api.StoryDetail
	language       string
	nodes          []api.StoryNode
	index          int
	gen            uint64
	autoAdvance    bool
	completed      bool
	endedAtIndex   bool
	resolving      bool
	speechFallback bool

	onNodeChange []func(index int, node api.StoryNode)
	onComplete   []func()
}

func New(eng *engine.Engine, cache *audiocache.Cache) *Sequencer {
	s := &Sequencer{
		engine: eng,
		cache:  cache,
	}
	eng.OnEnded(s.handleEnded)
	eng.OnErrored(s.handleErrored)
	return s
}

// OnNodeChange subscribes to position changes.
func (s *Sequencer) OnNodeChange(fn func(index int, node api.StoryNode)) {
	s.mu.Lock()
	s.onNodeChange = append(s.onNodeChange, fn)
	s.mu.Unlock()
}

// OnComplete subscribes to the story-complete transition.
func (s *Sequencer) OnComplete(fn func()) {
	s.mu.Lock()
	s.onComplete = append(s.onComplete, fn)
	s.mu.Unlock()
}

// Open loads the narration-only subsequence of a story, sorted by display
// order, and resets position to the start. A story with no narration nodes
// yields an already-complete, unplayable session.
func (s *Sequencer) Open(story *api.StoryDetail, language string) {
	nodes := make([]api.StoryNode, 0, len(story.Nodes))
	for _, n := range story.Nodes {
		if n.NodeType == api.NodeTypeNarration {
			nodes = append(nodes, n)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].DisplayOrder < nodes[j].DisplayOrder
	})

	s.engine.Stop()

	s.mu.Lock()
	s.story = story
	s.language = language
	s.nodes = nodes
	s.index = 0
	s.gen++
	s.autoAdvance = false
	s.completed = len(nodes) == 0
	s.endedAtIndex = false
	s.resolving = false
	s.speechFallback = false
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"story":    story.Slug,
		"language": language,
		"nodes":    len(nodes),
	}).Info("Story opened for playback")
}

// Reset returns to the first node with completion cleared and playback
// stopped, keeping the loaded story.
func (s *Sequencer) Reset() {
	s.engine.Stop()

	s.mu.Lock()
	s.index = 0
	s.gen++
	s.autoAdvance = false
	s.completed = len(s.nodes) == 0
	s.endedAtIndex = false
	s.resolving = false
	s.speechFallback = false
	s.mu.Unlock()
}

// Play engages auto-advance for this run and makes the current node audible:
// a paused streamed clip resumes, otherwise resolved audio plays, otherwise
// speech synthesis reads the node text.
func (s *Sequencer) Play(ctx context.Context) error {
	s.mu.Lock()
	if len(s.nodes) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("story has no narration nodes")
	}
	s.autoAdvance = true
	node := s.nodes[s.index]
	s.mu.Unlock()

	if s.engine.Resume() {
		return nil
	}
	return s.playNode(ctx, node)
}

// Pause disengages auto-advance and pauses (streamed) or cancels
// (synthesized) the active unit. The generation bump discards any start still
// resolving audio on the auto-advance goroutine.
func (s *Sequencer) Pause() {
	s.mu.Lock()
	s.autoAdvance = false
	s.gen++
	s.mu.Unlock()
	s.engine.Pause()
}

// Stop halts playback without moving the position.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	s.autoAdvance = false
	s.gen++
	s.mu.Unlock()
	s.engine.Stop()
}

// Advance moves to the next node. No-op at the last index.
func (s *Sequencer) Advance() {
	s.moveTo(func(i, n int) int {
		if i < n-1 {
			return i + 1
		}
		return i
	})
}

// Retreat moves to the previous node. No-op at index zero.
func (s *Sequencer) Retreat() {
	s.moveTo(func(i, n int) int {
		if i > 0 {
			return i - 1
		}
		return i
	})
}

// JumpTo moves straight to index i.
func (s *Sequencer) JumpTo(i int) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.nodes) {
		n := len(s.nodes)
		s.mu.Unlock()
		return fmt.Errorf("node index %d out of range [0,%d)", i, n)
	}
	s.mu.Unlock()

	s.moveTo(func(int, int) int { return i })
	return nil
}

// moveTo stops playback and applies a position transition. Completion and
// the heard-to-the-end marker are cleared on any move.
func (s *Sequencer) moveTo(next func(index, total int) int) {
	s.engine.Stop()

	s.mu.Lock()
	if len(s.nodes) == 0 {
		s.mu.Unlock()
		return
	}
	to := next(s.index, len(s.nodes))
	moved := to != s.index
	s.index = to
	s.gen++
	s.completed = false
	s.endedAtIndex = false
	s.resolving = false
	s.speechFallback = false
	node := s.nodes[s.index]
	idx := s.index
	s.mu.Unlock()

	if moved {
		s.fireNodeChange(idx, node)
	}
}

// playNode resolves audio for one node and starts the right unit kind.
// Resolution failure and unusable URLs both fall back to synthesized speech.
func (s *Sequencer) playNode(ctx context.Context, node api.StoryNode) error {
	s.mu.Lock()
	gen := s.gen
	language := s.language
	s.resolving = true
	s.mu.Unlock()

	res, err := s.cache.Resolve(ctx, node.ID, language, speakerFor(node))

	s.mu.Lock()
	stale := gen != s.gen
	s.resolving = false
	usable := err == nil && audiocache.Usable(res.AudioURL)
	s.speechFallback = !stale && !usable
	s.mu.Unlock()

	if stale {
		logrus.WithField("node_id", node.ID).Debug("Discarding playback start after navigation")
		return nil
	}

	s.prefetchNext(ctx, node)

	if usable {
		return s.engine.PlayStreamed(res.AudioURL, node.ID)
	}

	if err != nil {
		logrus.WithError(err).WithField("node_id", node.ID).Info("No streamed audio, falling back to speech")
	}
	return s.engine.PlaySynthesized(node.Text, language, node.ID)
}

// prefetchNext warms the audio cache for the node after the given one.
func (s *Sequencer) prefetchNext(ctx context.Context, node api.StoryNode) {
	s.mu.Lock()
	var next *api.StoryNode
	for i := range s.nodes {
		if s.nodes[i].ID == node.ID && i+1 < len(s.nodes) {
			next = &s.nodes[i+1]
			break
		}
	}
	language := s.language
	s.mu.Unlock()

	if next != nil {
		s.cache.Prefetch(ctx, next.ID, language, speakerFor(*next))
	}
}

// handleEnded implements the auto-advance policy: on natural end of the
// current node, move on and keep playing, or mark the story complete when the
// last node has been heard out.
func (s *Sequencer) handleEnded(nodeID string) {
	s.mu.Lock()
	if len(s.nodes) == 0 || s.nodes[s.index].ID != nodeID {
		s.mu.Unlock()
		return
	}
	s.endedAtIndex = true

	if s.autoAdvance && s.index < len(s.nodes)-1 {
		s.index++
		s.gen++
		s.endedAtIndex = false
		s.speechFallback = false
		node := s.nodes[s.index]
		idx := s.index
		s.mu.Unlock()

		s.fireNodeChange(idx, node)
		if err := s.playNode(context.Background(), node); err != nil {
			logrus.WithError(err).Warn("Auto-advance playback failed")
		}
		return
	}

	if s.index == len(s.nodes)-1 {
		s.completed = true
		s.mu.Unlock()
		s.fireComplete()
		return
	}
	s.mu.Unlock()
}

// handleErrored returns the session to an idle, retryable state; the user may
// press play again. No advancing happens on errors.
func (s *Sequencer) handleErrored(nodeID string, err error) {
	logrus.WithError(err).WithField("node_id", nodeID).Warn("Playback errored")
	s.mu.Lock()
	s.autoAdvance = false
	s.mu.Unlock()
}

func (s *Sequencer) fireNodeChange(index int, node api.StoryNode) {
	s.mu.Lock()
	subs := make([]func(int, api.StoryNode), len(s.onNodeChange))
	copy(subs, s.onNodeChange)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(index, node)
	}
}

func (s *Sequencer) fireComplete() {
	s.mu.Lock()
	subs := make([]func(), len(s.onComplete))
	copy(subs, s.onComplete)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Status snapshots the sequencer state.
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Index:          s.index,
		Total:          len(s.nodes),
		Language:       s.language,
		AutoAdvance:    s.autoAdvance,
		Completed:      s.completed,
		Resolving:      s.resolving,
		SpeechFallback: s.speechFallback,
	}
	if len(s.nodes) > 0 {
		st.Node = s.nodes[s.index]
	}
	return st
}

// Story returns the currently loaded story, nil when none.
func (s *Sequencer) Story() *api.StoryDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.story
}

// speakerFor picks the audio-service speaker for a node's character.
func speakerFor(node api.StoryNode) string {
	if node.Character != nil {
		return node.Character.BulbulSpeaker
	}
	return ""
}
