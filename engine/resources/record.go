package resources

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/alaska-engine/engine/core"
)

// record is the single holder of one asset's state. At most one of payload
// and object is set at any time.
type record struct {
	key Key
	drv driver

	mu      sync.Mutex
	status  Status
	payload any
	object  any
	err     error
	refs    int
	discard bool
	subs    []func(Event)
	// one bit per Status already delivered to subscribers
	notified uint8
}

func newRecord(key Key, drv driver) *record {
	return &record{
		key:    key,
		drv:    drv,
		status: Unloaded,
	}
}

func (r *record) event() Event {
	return Event{Key: r.key, Status: r.status, Err: r.err}
}

func (r *record) snapshot() (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, r.err
}

func (r *record) subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

// notify delivers ev unless its status was already delivered. It reports
// whether subscribers ran. Must be called without r.mu held.
func (r *record) notify(ev Event) bool {
	r.mu.Lock()
	bit := uint8(1) << uint(ev.Status)
	if r.notified&bit != 0 {
		r.mu.Unlock()
		return false
	}
	r.notified |= bit
	subs := make([]func(Event), len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
	return true
}

// finishDecode stores the outcome of the worker job. It reports the event to
// publish and false when the record was no longer waiting for it.
func (r *record) finishDecode(payload any, err error) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != Loading {
		return Event{}, false
	}
	switch {
	case r.discard:
		r.payload = nil
		r.status = Released
	case err != nil:
		r.payload = nil
		r.err = err
		r.status = Failed
	default:
		r.payload = payload
		r.status = DataReady
	}
	return r.event(), true
}

// upload performs the DataReady to Initialized transition. Device thread only.
// It also returns the DataReady event so that a caller running ahead of Pump
// can deliver it first.
func (r *record) upload() (ready Event, ev Event, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != DataReady {
		return Event{}, Event{}, false
	}
	ready = r.event()

	payload := r.payload
	r.payload = nil

	obj, err := guardedInitialize(r.drv, payload)
	if err != nil {
		r.err = core.NewResourceError(r.key.String(), "upload", core.ErrDeviceInit, err)
		r.status = Failed
		return ready, r.event(), true
	}
	r.object = obj
	r.status = Initialized
	return ready, r.event(), true
}

func guardedInitialize(drv driver, payload any) (obj any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("device upload panicked: %v", rec)
		}
	}()
	return drv.initialize(payload)
}

// teardown moves the record to Released, or marks an in-flight load to be
// dropped on completion. It returns the device object to destroy, if any.
func (r *record) teardown() (obj any, ev Event, done bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.status {
	case Released:
		return nil, Event{}, false
	case Unloaded, Loading:
		r.discard = true
		return nil, Event{}, false
	}

	obj = r.object
	r.object = nil
	r.payload = nil
	r.status = Released
	return obj, r.event(), true
}
