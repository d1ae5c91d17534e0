// README: Meter registry. Creates sessions with the configured position source and looks
// them up by id for the HTTP layer.
package meter

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"autometer/internal/modules/location"
	"autometer/internal/types"
)

// SourceFactory builds the position source for a new meter.
type SourceFactory interface {
	New(kind location.SourceKind, deviceID string, permissionGranted bool) (location.Source, error)
}

type CreateCommand struct {
	Source            location.SourceKind
	DeviceID          string
	PermissionGranted bool
}

type Service struct {
	quoter  Quoter
	sources SourceFactory
	cfg     Config
	log     *zap.Logger

	mu       sync.RWMutex
	sessions map[types.ID]*Session
}

func NewService(quoter Quoter, sources SourceFactory, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		quoter:   quoter,
		sources:  sources,
		cfg:      cfg,
		log:      log,
		sessions: make(map[types.ID]*Session),
	}
}

func (s *Service) Create(cmd CreateCommand) (*Session, error) {
	var src location.Source
	if s.sources != nil {
		var err error
		src, err = s.sources.New(cmd.Source, cmd.DeviceID, cmd.PermissionGranted)
		if err != nil {
			return nil, err
		}
	}

	id := types.ID(uuid.NewString())
	sess := NewSession(id, s.quoter, src, s.cfg, s.log)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.log.Info("meter created",
		zap.String("meter_id", string(id)),
		zap.String("source", string(cmd.Source)),
		zap.String("device_id", cmd.DeviceID),
	)
	return sess, nil
}

func (s *Service) Get(id types.ID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete stops the session, ends its subscriptions and forgets it.
func (s *Service) Delete(id types.ID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return sess.Close()
}

// PushSamples forwards device-reported fixes to a meter using a push source.
func (s *Service) PushSamples(id types.ID, samples []location.Sample) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	push, ok := sess.Source().(*location.PushSource)
	if !ok {
		return ErrPushUnsupported
	}
	for _, smp := range samples {
		if err := push.Push(smp); err != nil {
			if errors.Is(err, location.ErrNotStarted) {
				return ErrInvalidState
			}
			return err
		}
	}
	return nil
}

// StopAll closes every session. Used on shutdown.
func (s *Service) StopAll(ctx context.Context) {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		sessions = append(sessions, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(sess *Session) {
			defer wg.Done()
			_ = sess.Close()
		}(sess)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("all meters stopped", zap.Int("count", len(sessions)))
	case <-ctx.Done():
		s.log.Warn("timed out stopping meters", zap.Error(ctx.Err()))
	}
}

func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
