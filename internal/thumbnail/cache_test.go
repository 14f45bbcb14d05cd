package thumbnail

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// keep-alive connections of the generator's http.Client
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) GetThumbnail(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], c.err
}

func (c *memCache) PutThumbnail(key string, jpeg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.data[key] = jpeg
	return nil
}

// gatedGenerator blocks every call until release is closed.
type gatedGenerator struct {
	release chan struct{}
	calls   atomic.Int32
	err     error
}

func (g *gatedGenerator) Generate(ctx context.Context, src Source, kind Kind) (*Thumbnail, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return &Thumbnail{JPEG: []byte("jpeg:" + src.URL)}, nil
}

func TestCached_CollapsesConcurrentRequests(t *testing.T) {
	gen := &gatedGenerator{release: make(chan struct{})}
	cache := newMemCache()
	c := NewCached(gen, cache, nil)
	src := Source{URL: "https://cdn.example.com/p-1.png"}

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			th, err := c.Generate(context.Background(), src, KindImage)
			if assert.NoError(t, err) {
				results[i] = th.JPEG
			}
		}()
	}

	// let the callers pile up behind the first one
	time.Sleep(50 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	assert.EqualValues(t, 1, gen.calls.Load())
	for _, r := range results {
		assert.Equal(t, []byte("jpeg:https://cdn.example.com/p-1.png"), r)
	}

	cached, err := cache.GetThumbnail(Key(src, KindImage))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg:https://cdn.example.com/p-1.png"), cached)
}

func TestCached_ServesFromCache(t *testing.T) {
	gen := &gatedGenerator{release: make(chan struct{})}
	cache := newMemCache()
	src := Source{Data: []byte("raw image")}
	require.NoError(t, cache.PutThumbnail(Key(src, KindImage), []byte("stored")))

	th, err := NewCached(gen, cache, nil).Generate(context.Background(), src, KindImage)
	require.NoError(t, err)
	assert.Equal(t, []byte("stored"), th.JPEG)
	assert.Zero(t, gen.calls.Load())
}

func TestCached_ReturnsOnCancel(t *testing.T) {
	gen := &gatedGenerator{release: make(chan struct{})}
	defer close(gen.release)
	c := NewCached(gen, newMemCache(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Generate(ctx, Source{URL: "https://slow"}, KindImage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCached_SharedCallOutlivesFirstCaller(t *testing.T) {
	gen := &gatedGenerator{release: make(chan struct{})}
	cache := newMemCache()
	c := NewCached(gen, cache, nil)
	src := Source{URL: "https://cdn.example.com/p-2.png"}

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Generate(short, src, KindImage)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	result := make(chan error, 1)
	go func() {
		_, err := c.Generate(context.Background(), src, KindImage)
		result <- err
	}()
	close(gen.release)

	require.NoError(t, <-result)
	require.Eventually(t, func() bool {
		data, _ := cache.GetThumbnail(Key(src, KindImage))
		return data != nil
	}, time.Second, 5*time.Millisecond)
}

func TestCached_SharedCallHasItsOwnTimeout(t *testing.T) {
	gen := &gatedGenerator{release: make(chan struct{})}
	defer close(gen.release)
	c := NewCached(gen, newMemCache(), nil)
	c.timeout = 20 * time.Millisecond

	_, err := c.Generate(context.Background(), Source{URL: "https://stuck"}, KindImage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	gen := &gatedGenerator{release: make(chan struct{}), err: errors.New("boom")}
	close(gen.release)
	cache := newMemCache()
	c := NewCached(gen, cache, nil)
	src := Source{URL: "https://broken"}

	for range 2 {
		_, err := c.Generate(context.Background(), src, KindImage)
		assert.EqualError(t, err, "boom")
	}
	assert.EqualValues(t, 2, gen.calls.Load())
	assert.Empty(t, cache.data)
}

func TestCached_CacheFailuresAreNotFatal(t *testing.T) {
	gen := &gatedGenerator{release: make(chan struct{})}
	close(gen.release)
	cache := newMemCache()
	cache.err = errors.New("disk full")

	th, err := NewCached(gen, cache, nil).Generate(context.Background(), Source{URL: "u"}, KindImage)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg:u"), th.JPEG)
}

func TestKey(t *testing.T) {
	a := Key(Source{URL: "https://x/a.png"}, KindImage)
	assert.Len(t, a, 64)
	assert.Equal(t, a, Key(Source{URL: "https://x/a.png"}, KindImage))
	assert.NotEqual(t, a, Key(Source{URL: "https://x/b.png"}, KindImage))
	assert.NotEqual(t, a, Key(Source{Data: []byte("https://x/a.png")}, KindImage))
}
