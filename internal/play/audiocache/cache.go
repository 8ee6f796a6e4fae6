// Package audiocache memoizes per-(node, language) audio URL resolution
// against the external audio service.
package audiocache

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"bhashakahani/internal/api"

	"github.com/sirupsen/logrus"
)

// PlaceholderHost is the undeployed generated-audio location the backend
// hands out before files are uploaded. URLs on it are not playable.
const PlaceholderHost = "audio.bhashakahani.com"

// Resolver resolves a node's audio; implemented by api.Client.
type Resolver interface {
	ResolveAudio(ctx context.Context, nodeID, language, speaker string) (*api.AudioResource, error)
}

type key struct {
	nodeID   string
	language string
}

// Cache memoizes successful audio resolutions by (node, language). Failures
// are not cached, so a user retry issues a fresh request. The whole cache is
// invalidated on language switch.
type Cache struct {
	resolver Resolver

	mu       sync.Mutex
	entries  map[key]*api.AudioResource
	inflight map[key]struct{}
	gen      uint64
}

func New(resolver Resolver) *Cache {
	return &Cache{
		resolver: resolver,
		entries:  make(map[key]*api.AudioResource),
		inflight: make(map[key]struct{}),
	}
}

// Resolve returns the audio resource for a node, from cache when warm.
func (c *Cache) Resolve(ctx context.Context, nodeID, language, speaker string) (*api.AudioResource, error) {
	k := key{nodeID: nodeID, language: language}

	c.mu.Lock()
	if res, ok := c.entries[k]; ok {
		c.mu.Unlock()
		return res, nil
	}
	c.mu.Unlock()

	res, err := c.resolver.ResolveAudio(ctx, nodeID, language, speaker)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[k] = res
	c.mu.Unlock()
	return res, nil
}

// Prefetch resolves a node's audio in the background so it is warm by the
// time playback advances. Failures are discarded.
func (c *Cache) Prefetch(ctx context.Context, nodeID, language, speaker string) {
	k := key{nodeID: nodeID, language: language}

	c.mu.Lock()
	_, cached := c.entries[k]
	_, busy := c.inflight[k]
	if cached || busy {
		c.mu.Unlock()
		return
	}
	c.inflight[k] = struct{}{}
	gen := c.gen
	c.mu.Unlock()

	go func() {
		res, err := c.resolver.ResolveAudio(ctx, nodeID, language, speaker)

		c.mu.Lock()
		delete(c.inflight, k)
		if err == nil && gen == c.gen {
			// Results that started before an invalidation are stale.
			c.entries[k] = res
		}
		c.mu.Unlock()

		if err != nil {
			logrus.WithError(err).WithField("node_id", nodeID).Debug("Audio prefetch discarded")
		}
	}()
}

// Invalidate drops every cached entry and marks in-flight prefetches stale.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[key]*api.AudioResource)
	c.gen++
	c.mu.Unlock()
	logrus.Debug("Audio URL cache invalidated")
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Usable reports whether a resolved URL actually points at playable audio.
// Empty URLs and URLs on the placeholder host count as "no audio available".
func Usable(audioURL string) bool {
	if strings.TrimSpace(audioURL) == "" {
		return false
	}
	u, err := url.Parse(audioURL)
	if err != nil {
		return false
	}
	return !strings.EqualFold(u.Host, PlaceholderHost)
}
