// README: Firebase RTDB position source. Devices write their latest fix under
// device_locations/{deviceID}; the source polls that node.
package location

import (
	"context"
	"fmt"
	"sync"
	"time"

	"firebase.google.com/go/v4/db"
)

const (
	deviceLocationsNode     = "device_locations"
	defaultFirebasePollRate = time.Second
	permissionGranted       = "granted"
)

// rtdbDeviceEntry mirrors a single device entry stored in Firebase RTDB under
// the /device_locations node.
type rtdbDeviceEntry struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Timestamp  int64   `json:"timestamp"`
	Permission string  `json:"permission"`
}

// rtdbReader reads one node of the realtime database into v.
type rtdbReader interface {
	Get(ctx context.Context, path string, v interface{}) error
}

type rtdbClient struct {
	client *db.Client
}

func (r rtdbClient) Get(ctx context.Context, path string, v interface{}) error {
	return r.client.NewRef(path).Get(ctx, v)
}

// FirebaseSource streams fixes a device publishes to the realtime database.
type FirebaseSource struct {
	reader   rtdbReader
	deviceID string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewFirebaseSource(dbClient *db.Client, deviceID string) *FirebaseSource {
	return newFirebaseSource(rtdbClient{client: dbClient}, deviceID)
}

func newFirebaseSource(reader rtdbReader, deviceID string) *FirebaseSource {
	return &FirebaseSource{reader: reader, deviceID: deviceID}
}

func (s *FirebaseSource) read(ctx context.Context) (rtdbDeviceEntry, error) {
	var entry rtdbDeviceEntry
	if err := s.reader.Get(ctx, deviceLocationsNode+"/"+s.deviceID, &entry); err != nil {
		return entry, fmt.Errorf("%w: reading %s: %v", ErrPositionUnavailable, s.deviceID, err)
	}
	return entry, nil
}

// Start reads the device node once to check permission and obtain the first fix, then
// polls at the requested minimum interval until Stop.
func (s *FirebaseSource) Start(ctx context.Context, opts Options) (Stream, error) {
	first, err := s.read(ctx)
	if err != nil {
		return Stream{}, err
	}
	if first.Permission != permissionGranted {
		return Stream{}, ErrPermissionDenied
	}
	if first.Timestamp == 0 {
		return Stream{}, fmt.Errorf("%w: no fix for device %s", ErrPositionUnavailable, s.deviceID)
	}

	interval := opts.MinInterval
	if interval <= 0 {
		interval = defaultFirebasePollRate
	}

	_ = s.Stop()

	// The poll loop outlives the caller's context and ends with Stop.
	loopCtx, cancel := context.WithCancel(context.Background())
	samples := make(chan Sample, 16)
	errs := make(chan error, 4)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.poll(loopCtx, interval, newGate(opts), first, samples, errs, done)
	return Stream{Samples: samples, Errors: errs}, nil
}

func (s *FirebaseSource) poll(ctx context.Context, interval time.Duration, g *gate, first rtdbDeviceEntry, samples chan<- Sample, errs chan<- error, done chan<- struct{}) {
	defer close(done)
	defer close(errs)
	defer close(samples)

	lastTs := int64(0)
	emit := func(e rtdbDeviceEntry) bool {
		if e.Timestamp <= lastTs {
			return true
		}
		lastTs = e.Timestamp
		sample := Sample{Lat: e.Lat, Lng: e.Lng, TimestampMs: e.Timestamp}
		if !g.allow(sample) {
			return true
		}
		select {
		case samples <- sample:
			return true
		case <-ctx.Done():
			return false
		}
	}
	if !emit(first) {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entry, err := s.read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case errs <- err:
				default:
				}
				continue
			}
			if entry.Permission != permissionGranted {
				select {
				case errs <- fmt.Errorf("%w: permission revoked for %s", ErrPositionUnavailable, s.deviceID):
				default:
				}
				continue
			}
			if !emit(entry) {
				return
			}
		}
	}
}

func (s *FirebaseSource) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
