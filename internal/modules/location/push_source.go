// README: In-process source fed by HTTP clients posting their own fixes.
package location

import (
	"context"
	"fmt"
	"sync"
)

const (
	pushSampleBuffer = 64
	pushErrorBuffer  = 8
)

// PushSource receives fixes from the caller via Push. Permission is whatever the device
// reported when the meter was created; it can be changed with SetPermission.
type PushSource struct {
	mu      sync.Mutex
	granted bool
	running bool
	gate    *gate
	samples chan Sample
	errs    chan error
}

func NewPushSource(permissionGranted bool) *PushSource {
	return &PushSource{granted: permissionGranted}
}

func (p *PushSource) SetPermission(granted bool) {
	p.mu.Lock()
	p.granted = granted
	p.mu.Unlock()
}

func (p *PushSource) Start(ctx context.Context, opts Options) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return Stream{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.granted {
		return Stream{}, ErrPermissionDenied
	}
	if p.running {
		p.closeLocked()
	}
	p.samples = make(chan Sample, pushSampleBuffer)
	p.errs = make(chan error, pushErrorBuffer)
	p.gate = newGate(opts)
	p.running = true
	return Stream{Samples: p.samples, Errors: p.errs}, nil
}

// Push delivers one fix. Samples filtered by the start options are discarded silently.
func (p *PushSource) Push(s Sample) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return ErrNotStarted
	}
	if !p.gate.allow(s) {
		return nil
	}
	select {
	case p.samples <- s:
		return nil
	default:
		return ErrBackpressure
	}
}

// Fail reports a non-fatal stream failure to the consumer.
func (p *PushSource) Fail(cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	select {
	case p.errs <- fmt.Errorf("%w: %v", ErrPositionUnavailable, cause):
	default:
	}
}

func (p *PushSource) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.closeLocked()
	}
	return nil
}

func (p *PushSource) closeLocked() {
	close(p.samples)
	close(p.errs)
	p.running = false
}
