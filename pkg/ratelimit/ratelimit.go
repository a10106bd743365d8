// Package ratelimit keeps one token bucket per key (client IP, email
// address) with least-recently-used eviction.
package ratelimit

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// evictionLogInterval is the minimum time between eviction log messages.
const evictionLogInterval = 30 * time.Second

type entry struct {
	key      string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed limits events per key.
type Keyed struct {
	limit   rate.Limit
	burst   int
	maxKeys int
	now     func() time.Time
	logger  *slog.Logger

	mu           sync.Mutex
	items        map[string]*list.Element
	order        *list.List // front = most recent
	lastEvictLog time.Time
	evictCount   int
}

// Option configures a Keyed limiter.
type Option func(*Keyed)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(k *Keyed) { k.now = now }
}

// WithMaxKeys bounds the number of tracked keys. Default 10000.
func WithMaxKeys(n int) Option {
	return func(k *Keyed) {
		if n > 0 {
			k.maxKeys = n
		}
	}
}

// WithLogger sets the logger used for eviction notices.
func WithLogger(l *slog.Logger) Option {
	return func(k *Keyed) { k.logger = l }
}

// New allows burst events per key, refilled at limit.
func New(limit rate.Limit, burst int, opts ...Option) *Keyed {
	k := &Keyed{
		limit:   limit,
		burst:   burst,
		maxKeys: 10000,
		now:     time.Now,
		logger:  slog.Default().With("component", "ratelimit"),
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Per allows n events per window for each key, all of them usable at once.
func Per(n int, window time.Duration, opts ...Option) *Keyed {
	return New(rate.Every(window/time.Duration(n)), n, opts...)
}

// Allow reports whether an event for key may happen now, and consumes a
// token if so.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	elem, ok := k.items[key]
	if ok {
		k.order.MoveToFront(elem)
		elem.Value.(*entry).lastSeen = now
	} else {
		if k.order.Len() >= k.maxKeys {
			k.evictLocked(now)
		}
		elem = k.order.PushFront(&entry{
			key:      key,
			limiter:  rate.NewLimiter(k.limit, k.burst),
			lastSeen: now,
		})
		k.items[key] = elem
	}
	return elem.Value.(*entry).limiter.AllowN(now, 1)
}

func (k *Keyed) evictLocked(now time.Time) {
	back := k.order.Back()
	if back == nil {
		return
	}
	k.order.Remove(back)
	delete(k.items, back.Value.(*entry).key)
	k.evictCount++
	if now.Sub(k.lastEvictLog) >= evictionLogInterval {
		k.logger.Warn("evicted least recent keys", "count", k.evictCount, "capacity", k.maxKeys)
		k.lastEvictLog = now
		k.evictCount = 0
	}
}

// Limit returns the per-key refill rate.
func (k *Keyed) Limit() rate.Limit { return k.limit }

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.order.Len()
}

// Sweep forgets keys idle for longer than idle.
func (k *Keyed) Sweep(idle time.Duration) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	removed := 0
	for e := k.order.Back(); e != nil; {
		prev := e.Prev()
		if ent := e.Value.(*entry); now.Sub(ent.lastSeen) > idle {
			k.order.Remove(e)
			delete(k.items, ent.key)
			removed++
		}
		e = prev
	}
	return removed
}

// Janitor sweeps idle keys every interval until ctx is done. The returned
// channel is closed when it exits.
func (k *Keyed) Janitor(ctx context.Context, interval, idle time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				k.Sweep(idle)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}
