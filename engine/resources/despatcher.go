package resources

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/alaska-engine/engine/assets"
	"github.com/spaghettifunk/alaska-engine/engine/containers"
	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// Scheduler runs decode jobs off the device thread. The engine JobSystem
// satisfies it.
type Scheduler interface {
	AddWorkNonBlocking(jt metadata.JobTask) error
}

// Config configures a Despatcher.
type Config struct {
	// Initial capacity of the completion queue. It grows on demand.
	EventQueueSize int
}

// PumpStats reports what a single Pump call did.
type PumpStats struct {
	Notified int
	Uploaded int
	Dropped  int
}

type completion struct {
	rec *record
	ev  Event
}

// Despatcher owns every resource record of one device session. Get may be
// called from any goroutine; Pump, Release, Close and Handle.Ready belong to
// the device thread.
type Despatcher struct {
	source assets.Source
	jobs   Scheduler
	log    *log.Logger

	mu       sync.Mutex
	kinds    map[string]driver
	records  map[Key]*record
	managed  map[any]Key
	closed   bool
	inflight int
	idle     chan struct{}

	eventsMu sync.Mutex
	events   *containers.RingQueue[completion]
	drops    []*record

	// device thread only
	pending []*record
}

func NewDespatcher(config Config, source assets.Source, jobs Scheduler) (*Despatcher, error) {
	if source == nil {
		return nil, fmt.Errorf("resource despatcher requires an asset source")
	}
	if jobs == nil {
		return nil, fmt.Errorf("resource despatcher requires a job scheduler")
	}
	if config.EventQueueSize <= 0 {
		config.EventQueueSize = 64
	}

	d := &Despatcher{
		source:  source,
		jobs:    jobs,
		log:     core.Logger().With("component", "despatcher"),
		kinds:   make(map[string]driver),
		records: make(map[Key]*record),
		managed: make(map[any]Key),
		idle:    make(chan struct{}),
		events:  containers.NewRingQueue[completion](config.EventQueueSize, true),
	}
	close(d.idle)

	core.LogInfo("Resource despatcher initialized.")
	return d, nil
}

// Register makes a kind loadable. Kind names are unique per despatcher.
func Register[P, T any](d *Despatcher, k Kind[P, T]) error {
	if k.Name == "" {
		return core.Misusef("cannot register a resource kind without a name")
	}
	if k.Decoder == nil || k.Uploader == nil {
		return core.Misusef("resource kind '%s' needs both a decoder and an uploader", k.Name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.kinds[k.Name]; exists {
		return core.Misusef("resource kind '%s' is already registered", k.Name)
	}
	d.kinds[k.Name] = &kindDriver[P, T]{kind: k}
	d.log.Debug("kind registered", "kind", k.Name)
	return nil
}

// Get returns a handle on the asset named by key and never blocks. The first
// request for a key schedules its decode; later ones share the same record.
// The only errors are usage errors.
func Get[T any](d *Despatcher, key Key) (*Handle[T], error) {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()
		return nil, core.NewResourceError(key.String(), "get", core.ErrMisuse, fmt.Errorf("despatcher is closed"))
	}
	drv, ok := d.kinds[key.Kind]
	if !ok {
		d.mu.Unlock()
		return nil, core.NewResourceError(key.String(), "get", core.ErrMisuse, fmt.Errorf("unknown resource kind '%s'", key.Kind))
	}
	if _, ok := drv.(producer[T]); !ok {
		d.mu.Unlock()
		var want T
		return nil, core.NewResourceError(key.String(), "get", core.ErrMisuse, fmt.Errorf("kind '%s' does not produce %T", key.Kind, want))
	}

	if rec, exists := d.records[key]; exists {
		rec.mu.Lock()
		rec.refs++
		rec.mu.Unlock()
		d.mu.Unlock()
		return newHandle[T](d, rec), nil
	}

	rec := newRecord(key, drv)
	rec.status = Loading
	rec.refs = 1
	d.records[key] = rec
	if d.inflight == 0 {
		d.idle = make(chan struct{})
	}
	d.inflight++
	d.mu.Unlock()

	if err := d.schedule(rec); err != nil {
		d.mu.Lock()
		if d.records[key] == rec {
			delete(d.records, key)
		}
		d.mu.Unlock()
		d.finishJob()
		return nil, core.NewResourceError(key.String(), "schedule", core.ErrMisuse, err)
	}
	d.log.Debug("decode scheduled", "key", key)

	return newHandle[T](d, rec), nil
}

func (d *Despatcher) schedule(rec *record) error {
	return d.jobs.AddWorkNonBlocking(metadata.JobTask{
		JobType: metadata.JOB_TYPE_RESOURCE_LOAD,
		Name:    "load " + rec.key.String(),
		OnStart: func() error {
			payload, err := d.load(rec)
			d.complete(rec, payload, err)
			return nil
		},
		OnFailure: func(err error) {
			d.complete(rec, nil, core.NewResourceError(rec.key.String(), "load", core.ErrUnknown, err))
		},
	})
}

// load runs on a worker goroutine.
func (d *Despatcher) load(rec *record) (any, error) {
	raw, err := d.source.ReadAsset(rec.key.Path)
	if err != nil {
		return nil, core.NewResourceError(rec.key.String(), "read", core.ErrIO, err)
	}
	payload, err := guardedDecode(rec.drv, raw)
	if err != nil {
		return nil, core.NewResourceError(rec.key.String(), "decode", core.ErrDecode, err)
	}
	if n, ok := payload.(Nameable); ok {
		n.AssignName(rec.key.Path)
	}
	return payload, nil
}

func guardedDecode(drv driver, raw []byte) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panicked: %v", r)
		}
	}()
	return drv.decode(raw)
}

func (d *Despatcher) complete(rec *record, payload any, err error) {
	ev, ok := rec.finishDecode(payload, err)
	if !ok {
		return
	}
	switch ev.Status {
	case Failed:
		d.log.Warn("load failed", "key", rec.key, "err", ev.Err)
	case Released:
		d.log.Debug("load discarded", "key", rec.key)
	default:
		d.log.Debug("data ready", "key", rec.key)
	}

	d.eventsMu.Lock()
	// growable queue, Enqueue cannot fail
	_ = d.events.Enqueue(completion{rec: rec, ev: ev})
	d.eventsMu.Unlock()

	d.finishJob()
}

func (d *Despatcher) finishJob() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight--
	if d.inflight == 0 {
		close(d.idle)
	}
}

// upload moves a DataReady record to Initialized (or Failed). Device thread only.
func (d *Despatcher) upload(rec *record) bool {
	ready, ev, ok := rec.upload()
	if !ok {
		return false
	}
	// Ready can run before Pump delivered the queued DataReady event.
	rec.notify(ready)
	if ev.Status == Initialized {
		rec.mu.Lock()
		obj := rec.object
		rec.mu.Unlock()
		d.markManaged(obj, rec.key)
		d.log.Debug("uploaded", "key", rec.key)
	} else {
		d.log.Warn("upload failed", "key", rec.key, "err", ev.Err)
	}
	rec.notify(ev)
	return true
}

// Pump delivers completion events to subscribers, uploads at most budget
// records that finished decoding and tears down records whose handles were
// garbage collected. Device thread only.
func (d *Despatcher) Pump(budget int) PumpStats {
	var stats PumpStats

	d.eventsMu.Lock()
	batch := make([]completion, 0, d.events.Len())
	for !d.events.IsEmpty() {
		c, err := d.events.Dequeue()
		if err != nil {
			break
		}
		batch = append(batch, c)
	}
	drops := d.drops
	d.drops = nil
	d.eventsMu.Unlock()

	for _, c := range batch {
		status, _ := c.rec.snapshot()
		// Ready may already have moved the record on and delivered the event
		// on the way.
		if status == c.ev.Status && c.rec.notify(c.ev) {
			stats.Notified++
		}
		if status == DataReady {
			d.pending = append(d.pending, c.rec)
		}
	}

	remaining := d.pending[:0]
	for _, rec := range d.pending {
		if stats.Uploaded >= budget {
			if status, _ := rec.snapshot(); status == DataReady {
				remaining = append(remaining, rec)
			}
			continue
		}
		if d.upload(rec) {
			stats.Uploaded++
		}
	}
	for i := len(remaining); i < len(d.pending); i++ {
		d.pending[i] = nil
	}
	d.pending = remaining

	for _, rec := range drops {
		d.dropRef(rec)
		stats.Dropped++
	}

	return stats
}

func (d *Despatcher) retain(rec *record) {
	d.mu.Lock()
	rec.mu.Lock()
	rec.refs++
	rec.mu.Unlock()
	d.mu.Unlock()
}

// deferDrop is called from finalizers, which must not touch the device.
func (d *Despatcher) deferDrop(rec *record) {
	d.eventsMu.Lock()
	d.drops = append(d.drops, rec)
	d.eventsMu.Unlock()
}

func (d *Despatcher) dropRef(rec *record) {
	d.mu.Lock()
	rec.mu.Lock()
	rec.refs--
	last := rec.refs <= 0
	rec.mu.Unlock()
	if last && d.records[rec.key] == rec {
		delete(d.records, rec.key)
	}
	d.mu.Unlock()

	if last {
		d.teardown(rec)
	}
}

func (d *Despatcher) teardown(rec *record) {
	obj, ev, done := rec.teardown()
	if !done {
		return
	}
	if obj != nil {
		d.unmarkManaged(obj)
		if err := rec.drv.destroy(obj); err != nil {
			d.log.Warn("destroy failed", "key", rec.key, "err", err)
		}
	}
	d.log.Debug("released", "key", rec.key)
	rec.notify(ev)
}

// Release detaches the record for key from the registry and tears it down.
// A record still loading is marked so that the worker result is dropped.
// Existing handles observe Released. Device thread only.
func (d *Despatcher) Release(key Key) bool {
	d.mu.Lock()
	rec, ok := d.records[key]
	if ok {
		delete(d.records, key)
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	d.teardown(rec)
	return true
}

// Close releases every record and rejects further requests. Device thread only.
func (d *Despatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	recs := make([]*record, 0, len(d.records))
	for _, rec := range d.records {
		recs = append(recs, rec)
	}
	d.records = make(map[Key]*record)
	d.mu.Unlock()

	for _, rec := range recs {
		d.teardown(rec)
	}
	d.pending = nil
	core.LogInfo("Resource despatcher closed, %d records released.", len(recs))
}

// Drain waits until no decode job is in flight.
func (d *Despatcher) Drain(ctx context.Context) error {
	d.mu.Lock()
	idle := d.idle
	d.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len is the number of records currently in the registry.
func (d *Despatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

// IsManaged reports whether obj is a device object owned by a record.
func (d *Despatcher) IsManaged(obj any) bool {
	if !isComparable(obj) {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.managed[obj]
	return ok
}

// CheckUnmanaged rejects direct loads into an object the despatcher owns.
func (d *Despatcher) CheckUnmanaged(obj any) error {
	if !isComparable(obj) {
		return nil
	}
	d.mu.Lock()
	key, ok := d.managed[obj]
	d.mu.Unlock()
	if ok {
		return core.NewResourceError(key.String(), "load unmanaged", core.ErrMisuse, fmt.Errorf("object is managed by the resource despatcher"))
	}
	return nil
}

func (d *Despatcher) markManaged(obj any, key Key) {
	if !isComparable(obj) {
		return
	}
	d.mu.Lock()
	d.managed[obj] = key
	d.mu.Unlock()
}

func (d *Despatcher) unmarkManaged(obj any) {
	if !isComparable(obj) {
		return
	}
	d.mu.Lock()
	delete(d.managed, obj)
	d.mu.Unlock()
}

func isComparable(obj any) bool {
	if obj == nil {
		return false
	}
	return reflect.TypeOf(obj).Comparable()
}
