package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	types "github.com/yungbote/stepwise-backend/internal/domain"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

const (
	DefaultTTL            = 24 * time.Hour
	DefaultComputeTimeout = 30 * time.Second

	// DefaultCleanupInterval drives the memory store's janitor.
	DefaultCleanupInterval = 10 * time.Minute
)

// Clock returns the current time.
type Clock func() time.Time

// Recorder receives cache events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	CacheHit()
	CacheMiss()
	CacheCoalesced()
	CacheFailure()
	CacheStoreError()
}

type nopRecorder struct{}

func (nopRecorder) CacheHit()        {}
func (nopRecorder) CacheMiss()       {}
func (nopRecorder) CacheCoalesced()  {}
func (nopRecorder) CacheFailure()    {}
func (nopRecorder) CacheStoreError() {}

// ComputeFunc produces the steps for a missing key. ctx is detached from the
// triggering request and bounded by the compute timeout.
type ComputeFunc func(ctx context.Context) ([]types.RecommendedStep, error)

type Options struct {
	TTL            time.Duration
	ComputeTimeout time.Duration
	Clock          Clock
	Recorder       Recorder
}

// Cache serves recommendations keyed by (goal, language) within a TTL and
// runs at most one computation per key at a time. An expired entry is never
// served, even when recomputation fails.
type Cache struct {
	store   Store
	ttl     time.Duration
	timeout time.Duration
	now     Clock
	rec     Recorder
	log     *logger.Logger
	flight  singleflight.Group
}

func New(store Store, baseLog *logger.Logger, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.ComputeTimeout <= 0 {
		opts.ComputeTimeout = DefaultComputeTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Cache{
		store:   store,
		ttl:     opts.TTL,
		timeout: opts.ComputeTimeout,
		now:     opts.Clock,
		rec:     opts.Recorder,
		log:     baseLog.With("component", "RecommendationCache"),
	}
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// lookup returns the live entry for key, or nil. Store failures degrade to a miss.
func (c *Cache) lookup(ctx context.Context, key Key) *Entry {
	e, err := c.store.Get(ctx, key)
	if err != nil {
		c.rec.CacheStoreError()
		c.log.Warn("cache store read failed", "key", key.String(), "error", err)
		return nil
	}
	if e == nil || e.ExpiredAt(c.now()) {
		return nil
	}
	return e
}

// Get returns a copy of the live entry for key without computing or
// recording a hit or miss.
func (c *Cache) Get(ctx context.Context, key Key) (*Entry, bool) {
	e := c.lookup(ctx, key)
	if e == nil {
		return nil, false
	}
	return e.Clone(), true
}

// GetOrCompute returns the live entry for key, computing and storing it on a
// miss. Concurrent misses for one key share a single compute call. A caller
// whose ctx ends stops waiting, but the computation continues and still
// populates the cache.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, compute ComputeFunc) (*Entry, error) {
	if e := c.lookup(ctx, key); e != nil {
		c.rec.CacheHit()
		return e.Clone(), nil
	}
	c.rec.CacheMiss()

	led := false
	ch := c.flight.DoChan(key.String(), func() (any, error) {
		led = true
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		// A flight that finished between our lookup and DoChan already stored it.
		if e := c.lookup(cctx, key); e != nil {
			return e, nil
		}

		steps, err := compute(cctx)
		if err != nil {
			c.rec.CacheFailure()
			return nil, err
		}
		now := c.now()
		entry := &Entry{
			Steps:                types.CloneSteps(steps),
			TotalDurationSeconds: types.SumDurations(steps),
			CreatedAt:            now,
			ExpiresAt:            now.Add(c.ttl),
		}
		if err := c.store.Set(cctx, key, entry); err != nil {
			c.rec.CacheStoreError()
			c.log.Warn("cache store write failed", "key", key.String(), "error", err)
		}
		return entry, nil
	})

	select {
	case res := <-ch:
		if !led {
			c.rec.CacheCoalesced()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the entry for key.
func (c *Cache) Invalidate(ctx context.Context, key Key) error {
	return c.store.Delete(ctx, key)
}

// Sweep removes expired entries from the store.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	return c.store.DeleteExpired(ctx, c.now())
}
