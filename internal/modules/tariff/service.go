// README: Tariff service is a version-stamped cell over the configuration store.
package tariff

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"autometer/internal/observability/metrics"
)

// Service holds the latest known tariff. Readers call Current on every use; writers go
// through Save. Subscribers are pushed every new version instead of polling the store.
type Service struct {
	store Store
	log   *zap.Logger

	mu      sync.RWMutex
	current Snapshot
	subs    map[uint64]chan Snapshot
	nextSub uint64
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   store,
		log:     log,
		current: Snapshot{Tariff: Default, Version: 1},
		subs:    make(map[uint64]chan Snapshot),
	}
}

// Current returns the latest tariff and its version. It never blocks on I/O.
func (s *Service) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh re-reads the store. A missing or invalid record resolves to Default; a store
// failure keeps the last known value and is returned to the caller.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	t, ok, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn("tariff load failed, keeping last known value", zap.Error(err))
		return s.Current(), err
	}
	switch {
	case !ok:
		t = Default
	case t.Validate() != nil:
		s.log.Warn("persisted tariff is invalid, using default",
			zap.Error(t.Validate()),
			zap.Float64("base_fare", t.BaseFare),
			zap.Float64("base_distance_km", t.BaseDistanceKm),
			zap.Float64("rate_per_km", t.RatePerKm),
		)
		t = Default
	}
	return s.publish(t), nil
}

// Save validates and persists t, then publishes it to readers and subscribers.
func (s *Service) Save(ctx context.Context, t Tariff) (Snapshot, error) {
	if err := t.Validate(); err != nil {
		metrics.ObserveTariffSave(err)
		return s.Current(), err
	}
	if err := s.store.Save(ctx, t); err != nil {
		metrics.ObserveTariffSave(err)
		return s.Current(), err
	}
	metrics.ObserveTariffSave(nil)
	snap := s.publish(t)
	s.log.Info("tariff saved",
		zap.Uint64("version", snap.Version),
		zap.Float64("base_fare", t.BaseFare),
		zap.Float64("base_distance_km", t.BaseDistanceKm),
		zap.Float64("rate_per_km", t.RatePerKm),
	)
	return snap, nil
}

// Subscribe delivers the current snapshot and then every later version until ctx ends.
// Slow readers only ever see the newest version.
func (s *Service) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.current
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

// RunRefresher re-reads the store on every tick so writes made by other processes
// reach readers within one interval.
func (s *Service) RunRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Refresh(ctx)
		}
	}
}

func (s *Service) publish(t Tariff) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t == s.current.Tariff {
		return s.current
	}
	s.current = Snapshot{Tariff: t, Version: s.current.Version + 1}
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.current
	}
	return s.current
}
