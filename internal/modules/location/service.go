// README: Factory that builds a position source for a meter from its configured backend.
package location

import (
	"errors"
	"fmt"

	"firebase.google.com/go/v4/db"
	"github.com/redis/go-redis/v9"
)

type SourceKind string

const (
	SourcePush     SourceKind = "push"
	SourceFirebase SourceKind = "firebase"
	SourceRedis    SourceKind = "redis"
)

var ErrUnsupportedSource = errors.New("unsupported position source")

// Factory creates sources. Backends that were not configured are rejected.
type Factory struct {
	redis    *redis.Client
	firebase *db.Client
}

func NewFactory(rdb *redis.Client, firebaseDB *db.Client) *Factory {
	return &Factory{redis: rdb, firebase: firebaseDB}
}

// New returns a source of the given kind. permissionGranted is only used by push
// sources; the remote backends read permission from the device record.
func (f *Factory) New(kind SourceKind, deviceID string, permissionGranted bool) (Source, error) {
	switch kind {
	case SourcePush, "":
		return NewPushSource(permissionGranted), nil
	case SourceFirebase:
		if f.firebase == nil {
			return nil, fmt.Errorf("%w: firebase is not configured", ErrUnsupportedSource)
		}
		if deviceID == "" {
			return nil, fmt.Errorf("%w: device_id is required", ErrUnsupportedSource)
		}
		return NewFirebaseSource(f.firebase, deviceID), nil
	case SourceRedis:
		if f.redis == nil {
			return nil, fmt.Errorf("%w: redis is not configured", ErrUnsupportedSource)
		}
		if deviceID == "" {
			return nil, fmt.Errorf("%w: device_id is required", ErrUnsupportedSource)
		}
		return NewRedisSource(f.redis, deviceID), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, kind)
	}
}
