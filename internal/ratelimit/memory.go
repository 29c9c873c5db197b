package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 16

type window struct {
	count int
	start time.Time
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*window
}

// MemoryLimiter keeps counters in process. Keys are sharded to keep lock
// contention low; expired windows are dropped by Sweep.
type MemoryLimiter struct {
	cfg    Config
	now    Clock
	shards [shardCount]*shard
}

func NewMemoryLimiter(cfg Config, now Clock) (*MemoryLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	l := &MemoryLimiter{cfg: cfg, now: now}
	for i := range l.shards {
		l.shards[i] = &shard{windows: make(map[string]*window)}
	}
	return l, nil
}

func (l *MemoryLimiter) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return l.shards[h.Sum32()%shardCount]
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	s := l.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) > l.cfg.Window {
		s.windows[key] = &window{count: 1, start: now}
		return true, nil
	}
	if w.count >= l.cfg.Max {
		return false, nil
	}
	w.count++
	return true, nil
}

// Sweep removes windows that have fully elapsed and returns how many were dropped.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()
	dropped := 0
	for _, s := range l.shards {
		s.mu.Lock()
		for k, w := range s.windows {
			if now.Sub(w.start) > l.cfg.Window {
				delete(s.windows, k)
				dropped++
			}
		}
		s.mu.Unlock()
	}
	return dropped
}

// Run sweeps every interval until ctx is done.
func (l *MemoryLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.cfg.Window
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep()
		}
	}
}
