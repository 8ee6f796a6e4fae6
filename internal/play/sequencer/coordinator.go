package sequencer

import (
	"context"
	"sync"

	"bhashakahani/internal/api"
	"bhashakahani/internal/play/audiocache"

	"github.com/sirupsen/logrus"
)

// StoryFetcher re-requests story detail in a given language; implemented by
// api.Client.
type StoryFetcher interface {
	GetStory(ctx context.Context, slug, language string) (*api.StoryDetail, error)
}

// PreferenceCell is the injected persisted language preference.
type PreferenceCell interface {
	Language() string
	SetLanguage(code string) error
}

// Coordinator tears down and restarts the playback pipeline on language
// change. Each switch starts a new epoch; story fetches begun under an older
// epoch discard their result when they land.
type Coordinator struct {
	seq     *Sequencer
	cache   *audiocache.Cache
	prefs   PreferenceCell
	fetcher StoryFetcher

	mu    sync.Mutex
	epoch uint64
	slug  string

	onLoaded func(story *api.StoryDetail, language string)
	onError  func(err error)
}

func NewCoordinator(seq *Sequencer, cache *audiocache.Cache, prefs PreferenceCell, fetcher StoryFetcher) *Coordinator {
	return &Coordinator{
		seq:     seq,
		cache:   cache,
		prefs:   prefs,
		fetcher: fetcher,
	}
}

// Bind points the coordinator at the story being played and registers the
// re-render callbacks.
func (c *Coordinator) Bind(slug string, onLoaded func(*api.StoryDetail, string), onError func(error)) {
	c.mu.Lock()
	c.slug = slug
	c.onLoaded = onLoaded
	c.onError = onError
	c.mu.Unlock()
}

// SwitchLanguage stops playback, persists the preference, resets position,
// invalidates cached audio and re-fetches the story in the new language.
// Safe to call mid-playback and while an earlier switch is still fetching;
// the latest switch wins.
func (c *Coordinator) SwitchLanguage(ctx context.Context, newCode string) {
	c.seq.Stop()

	if err := c.prefs.SetLanguage(newCode); err != nil {
		logrus.WithError(err).Warn("Failed to persist language preference")
	}

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	slug := c.slug
	onLoaded := c.onLoaded
	onError := c.onError
	c.mu.Unlock()

	// Node text changes with the language, so the whole node list goes, not
	// just the audio lookups.
	c.cache.Invalidate()
	c.seq.Reset()

	logrus.WithFields(logrus.Fields{
		"story":    slug,
		"language": newCode,
		"epoch":    epoch,
	}).Info("Switching language")

	go func() {
		detail, err := c.fetcher.GetStory(ctx, slug, newCode)

		c.mu.Lock()
		stale := epoch != c.epoch
		c.mu.Unlock()
		if stale {
			logrus.WithFields(logrus.Fields{
				"language": newCode,
				"epoch":    epoch,
			}).Debug("Discarding stale story fetch")
			return
		}

		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}

		c.seq.Open(detail, newCode)
		if onLoaded != nil {
			onLoaded(detail, newCode)
		}
	}()
}

// Epoch returns the current switch epoch.
func (c *Coordinator) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}
