package thumbnail

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache stores generated thumbnails by key. Get returns nil, nil on a miss.
type Cache interface {
	GetThumbnail(key string) ([]byte, error)
	PutThumbnail(key string, jpeg []byte) error
}

const defaultSharedTimeout = 30 * time.Second

// Cached serves thumbnails from a Cache and collapses concurrent requests
// for the same source into one call to the wrapped generator.
//
// The shared call is detached from every caller's cancellation and bounded
// by its own timeout instead; each caller still stops waiting when its own
// context ends.
type Cached struct {
	next    Generator
	cache   Cache
	log     *zap.Logger
	timeout time.Duration
	group   singleflight.Group
}

func NewCached(next Generator, cache Cache, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, cache: cache, log: logger, timeout: defaultSharedTimeout}
}

func (c *Cached) Generate(ctx context.Context, src Source, kind Kind) (*Thumbnail, error) {
	key := Key(src, kind)

	data, err := c.cache.GetThumbnail(key)
	if err != nil {
		c.log.Warn("thumbnail cache read failed", zap.String("key", key), zap.Error(err))
	}
	if data != nil {
		return &Thumbnail{JPEG: data}, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		th, err := c.next.Generate(shared, src, kind)
		if err != nil {
			return nil, err
		}
		if err := c.cache.PutThumbnail(key, th.JPEG); err != nil {
			c.log.Warn("thumbnail cache write failed", zap.String("key", key), zap.Error(err))
		}
		return th, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Thumbnail), nil
	}
}

// Key identifies a source: inline bytes by content, URLs by address.
func Key(src Source, kind Kind) string {
	h := sha256.New()
	h.Write([]byte(kind))
	if len(src.Data) > 0 {
		h.Write([]byte{0})
		h.Write(src.Data)
	} else {
		h.Write([]byte{1})
		h.Write([]byte(src.URL))
	}
	return hex.EncodeToString(h.Sum(nil))
}

var _ Generator = (*Cached)(nil)
