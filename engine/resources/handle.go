package resources

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/spaghettifunk/alaska-engine/engine/core"
)

// Handle is a shared reference to a resource record. The record lives until
// its last handle is released, explicitly or by the garbage collector, or
// until Despatcher.Release is called for its key.
type Handle[T any] struct {
	d        *Despatcher
	rec      *record
	released atomic.Bool
}

func newHandle[T any](d *Despatcher, rec *record) *Handle[T] {
	h := &Handle[T]{d: d, rec: rec}
	runtime.SetFinalizer(h, func(h *Handle[T]) {
		if !h.released.Load() {
			h.d.deferDrop(h.rec)
		}
	})
	return h
}

func (h *Handle[T]) Key() Key {
	return h.rec.key
}

func (h *Handle[T]) Status() Status {
	status, _ := h.rec.snapshot()
	return status
}

// Err is set iff Status is Failed.
func (h *Handle[T]) Err() error {
	_, err := h.rec.snapshot()
	return err
}

// Ready polls the record and performs the device upload once decoding is
// done. It never blocks on I/O. Device thread only.
func (h *Handle[T]) Ready() bool {
	if h.released.Load() {
		return false
	}
	switch h.Status() {
	case Initialized:
		return true
	case DataReady:
		h.d.upload(h.rec)
		return h.Status() == Initialized
	default:
		return false
	}
}

// Get returns the device object. Calling it before Ready reported true is a
// programming error and panics with an ErrMisuse.
func (h *Handle[T]) Get() T {
	h.rec.mu.Lock()
	status := h.rec.status
	obj := h.rec.object
	h.rec.mu.Unlock()

	if h.released.Load() || status != Initialized {
		panic(core.NewResourceError(h.rec.key.String(), "get", core.ErrMisuse, fmt.Errorf("handle is not ready (status %s)", status)))
	}
	return obj.(T)
}

// Subscribe registers fn for every later transition of the record. fn runs on
// the device thread.
func (h *Handle[T]) Subscribe(fn func(Event)) {
	h.rec.subscribe(fn)
}

// Clone returns another handle sharing the same record.
func (h *Handle[T]) Clone() *Handle[T] {
	h.d.retain(h.rec)
	return newHandle[T](h.d, h.rec)
}

// Same reports whether both handles share one record.
func (h *Handle[T]) Same(other *Handle[T]) bool {
	return other != nil && h.rec == other.rec
}

// Release drops this handle's reference. The last one tears the record
// down. Calling it more than once is a no-op. Device thread only.
func (h *Handle[T]) Release() {
	if h.released.Swap(true) {
		return
	}
	runtime.SetFinalizer(h, nil)
	h.d.dropRef(h.rec)
}
