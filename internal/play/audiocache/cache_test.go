package audiocache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bhashakahani/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	mu    sync.Mutex
	calls int
	url   string
	err   error
}

func (r *fakeResolver) ResolveAudio(ctx context.Context, nodeID, language, speaker string) (*api.AudioResource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &api.AudioResource{
		NodeID:   nodeID,
		Language: language,
		AudioURL: r.url,
	}, nil
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestResolveMemoizesByNodeAndLanguage(t *testing.T) {
	resolver := &fakeResolver{url: "http://cdn/a.mp3"}
	cache := New(resolver)
	ctx := context.Background()

	first, err := cache.Resolve(ctx, "n1", "en", "meera")
	require.NoError(t, err)

	second, err := cache.Resolve(ctx, "n1", "en", "meera")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, resolver.callCount(), "repeat lookups must not hit the network")

	_, err = cache.Resolve(ctx, "n1", "hi", "meera")
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.callCount(), "a different language is a different key")
}

func TestResolveFailureIsNotCached(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("boom")}
	cache := New(resolver)
	ctx := context.Background()

	_, err := cache.Resolve(ctx, "n1", "en", "")
	require.Error(t, err)

	// A user retry issues a fresh request.
	resolver.mu.Lock()
	resolver.err = nil
	resolver.url = "http://cdn/a.mp3"
	resolver.mu.Unlock()

	res, err := cache.Resolve(ctx, "n1", "en", "")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn/a.mp3", res.AudioURL)
	assert.Equal(t, 2, resolver.callCount())
}

func TestInvalidateDropsEverything(t *testing.T) {
	resolver := &fakeResolver{url: "http://cdn/a.mp3"}
	cache := New(resolver)
	ctx := context.Background()

	_, err := cache.Resolve(ctx, "n1", "en", "")
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	cache.Invalidate()
	assert.Equal(t, 0, cache.Len())

	_, err = cache.Resolve(ctx, "n1", "en", "")
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.callCount())
}

func TestPrefetchWarmsCache(t *testing.T) {
	resolver := &fakeResolver{url: "http://cdn/b.mp3"}
	cache := New(resolver)

	cache.Prefetch(context.Background(), "n2", "en", "")

	assert.Eventually(t, func() bool {
		return cache.Len() == 1
	}, time.Second, 5*time.Millisecond)

	res, err := cache.Resolve(context.Background(), "n2", "en", "")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn/b.mp3", res.AudioURL)
	assert.Equal(t, 1, resolver.callCount(), "prefetch result must be reused")
}

func TestPrefetchFailureSilentlyDiscarded(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("boom")}
	cache := New(resolver)

	cache.Prefetch(context.Background(), "n2", "en", "")

	assert.Eventually(t, func() bool {
		return resolver.callCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, cache.Len())
}

func TestUsable(t *testing.T) {
	assert.False(t, Usable(""))
	assert.False(t, Usable("   "))
	assert.False(t, Usable("https://audio.bhashakahani.com/hi/generated/abc.mp3"))
	assert.False(t, Usable("://not a url"))
	assert.True(t, Usable("https://cdn.example.com/stories/n1-en.mp3"))
}
