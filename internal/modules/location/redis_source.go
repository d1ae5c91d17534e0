// README: Redis pub/sub position source. A device gateway publishes JSON fixes on
// meter:positions:{deviceID} and records permission under meter:permission:{deviceID}.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	positionChannelPrefix = "meter:positions:"
	permissionKeyPrefix   = "meter:permission:"
)

func positionChannel(deviceID string) string { return positionChannelPrefix + deviceID }
func permissionKey(deviceID string) string   { return permissionKeyPrefix + deviceID }

// GrantPermission records the device's location permission as seen by the gateway.
func GrantPermission(ctx context.Context, rdb *redis.Client, deviceID string, granted bool) error {
	if !granted {
		return rdb.Del(ctx, permissionKey(deviceID)).Err()
	}
	return rdb.Set(ctx, permissionKey(deviceID), permissionGranted, 0).Err()
}

// PublishSample publishes one fix for deviceID.
func PublishSample(ctx context.Context, rdb *redis.Client, deviceID string, s Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, positionChannel(deviceID), payload).Err()
}

type RedisSource struct {
	redis    *redis.Client
	deviceID string

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisSource(rdb *redis.Client, deviceID string) *RedisSource {
	return &RedisSource{redis: rdb, deviceID: deviceID}
}

func (s *RedisSource) Start(ctx context.Context, opts Options) (Stream, error) {
	perm, err := s.redis.Get(ctx, permissionKey(s.deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		return Stream{}, ErrPermissionDenied
	}
	if err != nil {
		return Stream{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	if perm != permissionGranted {
		return Stream{}, ErrPermissionDenied
	}

	_ = s.Stop()

	loopCtx, cancel := context.WithCancel(context.Background())
	pubsub := s.redis.Subscribe(loopCtx, positionChannel(s.deviceID))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return Stream{}, fmt.Errorf("%w: subscribing: %v", ErrPositionUnavailable, err)
	}

	samples := make(chan Sample, 16)
	errs := make(chan error, 4)
	done := make(chan struct{})

	s.mu.Lock()
	s.pubsub = pubsub
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.consume(loopCtx, pubsub.Channel(), newGate(opts), samples, errs, done)
	return Stream{Samples: samples, Errors: errs}, nil
}

func (s *RedisSource) consume(ctx context.Context, msgs <-chan *redis.Message, g *gate, samples chan<- Sample, errs chan<- error, done chan<- struct{}) {
	defer close(done)
	defer close(errs)
	defer close(samples)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				select {
				case errs <- fmt.Errorf("%w: subscription closed", ErrPositionUnavailable):
				default:
				}
				return
			}
			var sample Sample
			if err := json.Unmarshal([]byte(msg.Payload), &sample); err != nil {
				select {
				case errs <- fmt.Errorf("%w: bad payload: %v", ErrPositionUnavailable, err):
				default:
				}
				continue
			}
			if !g.allow(sample) {
				continue
			}
			select {
			case samples <- sample:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *RedisSource) Stop() error {
	s.mu.Lock()
	pubsub, cancel, done := s.pubsub, s.cancel, s.done
	s.pubsub, s.cancel, s.done = nil, nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	err := pubsub.Close()
	<-done
	return err
}
