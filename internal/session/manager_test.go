package session

import (
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
	goleak.VerifyTestMain(m)
}

func TestWithLock_SerializesPerChat(t *testing.T) {
	m := NewManager()
	var active, maxActive atomic.Int32

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock("chat-a", func() error {
				n := active.Add(1)
				for {
					old := maxActive.Load()
					if n <= old || maxActive.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxActive.Load())
	assert.Equal(t, 1, m.Len())
}

func TestWithLock_DifferentChatsRunInParallel(t *testing.T) {
	m := NewManager()
	entered := make(chan struct{})
	release := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- m.WithLock("chat-a", func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	// chat-b must not wait for chat-a
	err := m.WithLock("chat-b", func() error { return nil })
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, m.Len())
}

func TestWithLock_ReturnsError(t *testing.T) {
	m := NewManager()
	want := errors.New("relay down")
	assert.ErrorIs(t, m.WithLock("chat-a", func() error { return want }), want)
}

func TestCleanup(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.WithLock("idle", func() error { return nil }))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- m.WithLock("busy", func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, m.Cleanup(time.Millisecond))
	assert.Equal(t, 1, m.Len())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 0, m.Cleanup(time.Hour))
	assert.Equal(t, 1, m.Len())
}
