package jobs

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPollInterval is how often Watch scans the store for new work.
const DefaultPollInterval = 5 * time.Second

// Watch polls the store and delivers pending episodes submitted after the
// watch started, each at most once. The channel is closed when ctx is done.
func (s *Store) Watch(ctx context.Context, interval time.Duration) <-chan *Episode {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	seen := make(map[string]bool)
	if existing, err := s.List(ctx); err == nil {
		for _, ep := range existing {
			seen[ep.ID] = true
		}
	} else {
		slog.Warn("initial episode scan failed", "error", err)
	}

	ch := make(chan *Episode)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			episodes, err := s.List(ctx)
			if err != nil {
				slog.Warn("episode scan failed", "error", err)
				continue
			}
			for _, ep := range episodes {
				if seen[ep.ID] {
					continue
				}
				seen[ep.ID] = true
				if ep.Status != StatusPending {
					continue
				}
				select {
				case ch <- ep:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}
