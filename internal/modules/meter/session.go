// README: Session controller. Owns the accumulator, the tick timer and the position
// subscription of one meter, and serialises every mutation under one mutex.
package meter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"autometer/internal/modules/location"
	"autometer/internal/modules/pricing"
	"autometer/internal/observability/metrics"
	"autometer/internal/types"
)

type Session struct {
	id     types.ID
	cfg    Config
	quoter Quoter
	source location.Source
	log    *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	state     State
	mode      DistanceMode
	starting  bool
	acc       *location.Accumulator
	distance  float64
	elapsed   int64
	quote     pricing.Quote
	warning   string
	startedAt *time.Time
	stoppedAt *time.Time
	updatedAt time.Time

	// gen invalidates events from a previous run loop or an aborted Start.
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}

	subs    map[uint64]chan Snapshot
	nextSub uint64
	closed  bool
}

// NewSession builds an idle session. source may be nil, in which case only manual
// tracking is available.
func NewSession(id types.ID, quoter Quoter, source location.Source, cfg Config, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Bounds.Validate() != nil {
		cfg.Bounds = location.NativeBounds
	}
	return &Session{
		id:        id,
		cfg:       cfg,
		quoter:    quoter,
		source:    source,
		log:       log.With(zap.String("meter_id", string(id))),
		now:       time.Now,
		state:     StateIdle,
		mode:      DistanceGPS,
		acc:       location.NewAccumulator(cfg.Bounds),
		quote:     pricing.Quote{Fare: types.NewMoney(0)},
		updatedAt: time.Now(),
		subs:      make(map[uint64]chan Snapshot),
	}
}

func (s *Session) ID() types.ID { return s.id }

// Source returns the position source the session was created with.
func (s *Session) Source() location.Source { return s.source }

// Start acquires the position source and begins GPS tracking. It blocks while the source
// checks permission and obtains its first fix. On ErrPermissionDenied the session stays
// idle so the caller can offer StartManual instead.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateTracking || s.starting {
		s.mu.Unlock()
		return ErrInvalidState
	}
	if s.source == nil {
		s.mu.Unlock()
		return ErrNoPositionSource
	}
	s.starting = true
	gen := s.gen
	s.mu.Unlock()

	stream, err := s.source.Start(ctx, s.cfg.SourceOptions)

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, location.ErrPermissionDenied) {
			metrics.ObserveTransition("permission_denied")
			s.log.Info("position permission denied")
			return ErrPermissionDenied
		}
		return fmt.Errorf("start tracking: %w", err)
	}
	if gen != s.gen || s.closed {
		// Stop or Reset ran while the source was starting.
		s.mu.Unlock()
		_ = s.source.Stop()
		return ErrInvalidState
	}
	s.beginLocked(DistanceGPS, stream)
	s.mu.Unlock()

	metrics.ObserveTransition("start")
	s.log.Info("meter started", zap.String("mode", string(DistanceGPS)))
	return nil
}

// StartManual begins tracking without a position source. Distance is then entered with
// EnterManualDistance.
func (s *Session) StartManual(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTracking || s.starting || s.closed {
		return ErrInvalidState
	}
	s.beginLocked(DistanceManual, location.Stream{})
	metrics.ObserveTransition("start_manual")
	s.log.Info("meter started", zap.String("mode", string(DistanceManual)))
	return nil
}

func (s *Session) beginLocked(mode DistanceMode, stream location.Stream) {
	s.gen++
	s.acc.Reset()
	s.distance = 0
	s.elapsed = 0
	s.warning = ""
	s.mode = mode
	s.state = StateTracking
	now := s.now()
	s.startedAt = &now
	s.stoppedAt = nil
	s.quote = s.quoter.Quote(0)
	s.updatedAt = now

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(loopCtx, s.gen, stream, s.done)

	metrics.TrackingStarted()
	s.publishLocked()
}

func (s *Session) run(ctx context.Context, gen uint64, stream location.Stream, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	samples, errs := stream.Samples, stream.Errors
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.current(gen) {
				s.tickLocked()
			}
			s.mu.Unlock()
		case smp, ok := <-samples:
			if !ok {
				samples = nil
				continue
			}
			s.mu.Lock()
			if s.current(gen) && s.mode == DistanceGPS {
				s.sampleLocked(smp)
			}
			s.mu.Unlock()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.mu.Lock()
			if s.current(gen) && s.mode == DistanceGPS {
				s.warning = err.Error()
				s.updatedAt = s.now()
				s.publishLocked()
			}
			s.mu.Unlock()
			s.log.Warn("position stream error", zap.Error(err))
		}
	}
}

func (s *Session) current(gen uint64) bool {
	return gen == s.gen && s.state == StateTracking
}

// Tick advances the elapsed time by one second and re-quotes the current distance so
// tariff and night changes show up without movement. It is a no-op while idle.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTracking {
		s.tickLocked()
	}
}

func (s *Session) tickLocked() {
	s.elapsed++
	s.quote = s.quoter.Quote(s.distance)
	s.updatedAt = s.now()
	s.publishLocked()
}

// OnSample feeds one fix to the accumulator directly, bypassing the source.
func (s *Session) OnSample(smp location.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateTracking || s.mode != DistanceGPS {
		return ErrInvalidState
	}
	s.sampleLocked(smp)
	return nil
}

func (s *Session) sampleLocked(smp location.Sample) {
	delta, accepted := s.acc.OnSample(smp)
	s.warning = ""
	if accepted {
		// Fixes add to the running distance, which may already include an
		// OnDistanceUpdate above the accumulator's own total.
		s.applyDistanceLocked(s.distance + delta)
		return
	}
	s.updatedAt = s.now()
	s.publishLocked()
}

// OnDistanceUpdate sets the running distance and re-prices it. Distances must be finite
// and never below the current value.
func (s *Session) OnDistanceUpdate(km float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateTracking {
		return ErrInvalidState
	}
	if err := s.checkDistanceLocked(km); err != nil {
		return err
	}
	s.applyDistanceLocked(km)
	return nil
}

// EnterManualDistance switches the session to manual distance entry, releasing any
// position subscription, and applies km.
func (s *Session) EnterManualDistance(km float64) error {
	s.mu.Lock()
	if s.state != StateTracking {
		s.mu.Unlock()
		return ErrInvalidState
	}
	if err := s.checkDistanceLocked(km); err != nil {
		s.mu.Unlock()
		return err
	}
	release := s.mode == DistanceGPS && s.source != nil
	if s.mode != DistanceManual {
		s.mode = DistanceManual
		s.warning = ""
		metrics.ObserveTransition("manual_distance")
	}
	s.applyDistanceLocked(km)
	s.mu.Unlock()

	if release {
		if err := s.source.Stop(); err != nil {
			s.log.Warn("releasing position source", zap.Error(err))
		}
	}
	return nil
}

func (s *Session) checkDistanceLocked(km float64) error {
	if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDistance, km)
	}
	if km < s.distance {
		return fmt.Errorf("%w: %.3f km is below the current %.3f km", ErrInvalidDistance, km, s.distance)
	}
	return nil
}

func (s *Session) applyDistanceLocked(km float64) {
	s.distance = km
	s.quote = s.quoter.Quote(km)
	s.updatedAt = s.now()
	s.publishLocked()
}

// Stop freezes the meter. It cancels the run loop, waits for it to exit and releases the
// position source. Calling it while idle is a no-op apart from releasing the source.
func (s *Session) Stop() error {
	s.mu.Lock()
	s.gen++
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	if s.state == StateTracking {
		s.state = StateIdle
		now := s.now()
		s.stoppedAt = &now
		s.updatedAt = now
		metrics.TrackingStopped()
		metrics.ObserveTransition("stop")
		s.publishLocked()
		s.log.Info("meter stopped",
			zap.Float64("distance_km", s.distance),
			zap.Int64("elapsed_s", s.elapsed),
			zap.Int64("fare", s.quote.Fare.Amount),
		)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if s.source != nil {
		if err := s.source.Stop(); err != nil {
			s.log.Warn("releasing position source", zap.Error(err))
		}
	}
	return nil
}

// Reset stops the meter if needed and zeroes distance, time and fare.
func (s *Session) Reset() error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acc.Reset()
	s.distance = 0
	s.elapsed = 0
	s.quote = pricing.Quote{Fare: types.NewMoney(0)}
	s.warning = ""
	s.startedAt = nil
	s.stoppedAt = nil
	s.updatedAt = s.now()
	metrics.ObserveTransition("reset")
	s.publishLocked()
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:             s.id,
		State:          s.state,
		Mode:           s.mode,
		DistanceKm:     s.distance,
		ElapsedSeconds: s.elapsed,
		Fare:           s.quote.Fare,
		FareDisplay:    s.quote.Fare.Display(),
		Breakdown:      s.quote.Breakdown,
		Night:          s.quote.Night,
		TariffVersion:  s.quote.TariffVersion,
		Warning:        s.warning,
		Samples:        s.acc.Stats(),
		StartedAt:      s.startedAt,
		StoppedAt:      s.stoppedAt,
		UpdatedAt:      s.updatedAt,
	}
}

// Subscribe delivers the current snapshot and then every change until ctx ends or the
// session is closed. Slow readers only see the latest snapshot.
func (s *Session) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
	}()
	return ch
}

func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Close stops the session and ends every subscription.
func (s *Session) Close() error {
	err := s.Stop()
	s.mu.Lock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
	return err
}
