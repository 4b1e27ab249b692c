package resources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/alaska-engine/engine/assets"
	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

const testKind = "blob"

type testObject struct {
	name string
}

// manualScheduler holds jobs until the test runs them.
type manualScheduler struct {
	mu        sync.Mutex
	queue     []metadata.JobTask
	submitted int
	closed    bool
}

func (s *manualScheduler) AddWorkNonBlocking(jt metadata.JobTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("scheduler closed")
	}
	s.queue = append(s.queue, jt)
	s.submitted++
	return nil
}

func (s *manualScheduler) runAll() {
	s.mu.Lock()
	jobs := s.queue
	s.queue = nil
	s.mu.Unlock()
	for _, jt := range jobs {
		if err := jt.OnStart(); err != nil {
			jt.OnFailure(err)
			continue
		}
		if jt.OnComplete != nil {
			jt.OnComplete()
		}
	}
}

func (s *manualScheduler) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// goScheduler runs every job on its own goroutine.
type goScheduler struct{}

func (goScheduler) AddWorkNonBlocking(jt metadata.JobTask) error {
	go func() {
		if err := jt.OnStart(); err != nil {
			jt.OnFailure(err)
		}
	}()
	return nil
}

type countingDecoder struct {
	calls atomic.Int32
}

func (c *countingDecoder) Decode(raw []byte) (string, error) {
	c.calls.Add(1)
	switch string(raw) {
	case "bad":
		return "", errors.New("bad blob")
	case "panic":
		panic("decoder exploded")
	}
	return string(raw), nil
}

type fakeUploader struct {
	mu        sync.Mutex
	created   int
	destroyed int
	fail      bool
}

func (f *fakeUploader) Initialize(payload string) (*testObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("device said no")
	}
	f.created++
	return &testObject{name: payload}, nil
}

func (f *fakeUploader) Destroy(obj *testObject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed++
	return nil
}

type fixture struct {
	d        *Despatcher
	sched    *manualScheduler
	source   *assets.MemorySource
	decoder  *countingDecoder
	uploader *fakeUploader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sched:    &manualScheduler{},
		source:   assets.NewMemorySource(),
		decoder:  &countingDecoder{},
		uploader: &fakeUploader{},
	}
	d, err := NewDespatcher(Config{}, f.source, f.sched)
	if err != nil {
		t.Fatalf("NewDespatcher: %v", err)
	}
	if err := Register(d, Kind[string, *testObject]{Name: testKind, Decoder: f.decoder, Uploader: f.uploader}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.d = d
	return f
}

func (f *fixture) put(path, content string) Key {
	f.source.Put(path, []byte(content))
	return NewKey(testKind, path)
}

func mustGet(t *testing.T, d *Despatcher, key Key) *Handle[*testObject] {
	t.Helper()
	h, err := Get[*testObject](d, key)
	if err != nil {
		t.Fatalf("Get(%s): %v", key, err)
	}
	return h
}

func TestGetDeduplicatesPendingRequests(t *testing.T) {
	f := newFixture(t)
	key := f.put("crate.blob", "crate")

	h1 := mustGet(t, f.d, key)
	h2 := mustGet(t, f.d, key)

	if !h1.Same(h2) {
		t.Fatal("expected both handles to share one record")
	}
	if got := f.sched.total(); got != 1 {
		t.Fatalf("expected 1 decode job, got %d", got)
	}
	if h1.Status() != Loading {
		t.Fatalf("expected loading, got %s", h1.Status())
	}

	f.sched.runAll()

	if !h1.Ready() || !h2.Ready() {
		t.Fatal("expected both handles to be ready")
	}
	if h1.Get() != h2.Get() {
		t.Fatal("expected the same device object")
	}
	if f.decoder.calls.Load() != 1 || f.uploader.created != 1 {
		t.Fatalf("expected one decode and one upload, got %d and %d", f.decoder.calls.Load(), f.uploader.created)
	}
}

func TestConcurrentGetRunsOneDecode(t *testing.T) {
	source := assets.NewMemorySource()
	source.Put("shared.blob", []byte("shared"))
	decoder := &countingDecoder{}
	uploader := &fakeUploader{}

	d, err := NewDespatcher(Config{}, source, goScheduler{})
	if err != nil {
		t.Fatal(err)
	}
	if err := Register(d, Kind[string, *testObject]{Name: testKind, Decoder: decoder, Uploader: uploader}); err != nil {
		t.Fatal(err)
	}

	key := NewKey(testKind, "shared.blob")
	handles := make([]*Handle[*testObject], 16)
	var wg sync.WaitGroup
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := Get[*testObject](d, key)
			if err != nil {
				t.Error(err)
				return
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	for _, h := range handles {
		if h == nil {
			t.FailNow()
		}
		if !h.Ready() {
			t.Fatalf("expected ready, got %s", h.Status())
		}
		if h.Get() != handles[0].Get() {
			t.Fatal("handles disagree on the device object")
		}
	}
	if got := decoder.calls.Load(); got != 1 {
		t.Fatalf("expected 1 decode, got %d", got)
	}
	if uploader.created != 1 {
		t.Fatalf("expected 1 upload, got %d", uploader.created)
	}
}

func TestFailedDecodeIsTerminal(t *testing.T) {
	f := newFixture(t)
	key := f.put("broken.blob", "bad")

	h := mustGet(t, f.d, key)
	var seen []Status
	h.Subscribe(func(ev Event) { seen = append(seen, ev.Status) })

	f.sched.runAll()
	f.d.Pump(4)

	if len(seen) != 1 || seen[0] != Failed {
		t.Fatalf("expected a single failed transition, got %v", seen)
	}
	for i := 0; i < 3; i++ {
		if h.Ready() {
			t.Fatal("failed handle must never become ready")
		}
	}
	if !errors.Is(h.Err(), core.ErrDecode) {
		t.Fatalf("expected decode error, got %v", h.Err())
	}

	again := mustGet(t, f.d, key)
	if !again.Same(h) || again.Status() != Failed {
		t.Fatal("expected the failed record to be shared")
	}
	if got := f.sched.total(); got != 1 {
		t.Fatalf("expected no second decode job, got %d jobs", got)
	}

	// an explicit release allows a fresh attempt
	f.d.Release(key)
	f.source.Put("broken.blob", []byte("fixed"))
	retry := mustGet(t, f.d, key)
	f.sched.runAll()
	if !retry.Ready() {
		t.Fatalf("expected retry to succeed, got %s", retry.Status())
	}
}

func TestLoadErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    error
	}{
		{name: "missing asset", content: nil, want: core.ErrIO},
		{name: "malformed asset", content: strPtr("bad"), want: core.ErrDecode},
		{name: "decoder panic", content: strPtr("panic"), want: core.ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			key := NewKey(testKind, "asset.blob")
			if tt.content != nil {
				key = f.put("asset.blob", *tt.content)
			}

			h := mustGet(t, f.d, key)
			f.sched.runAll()

			if h.Status() != Failed {
				t.Fatalf("expected failed, got %s", h.Status())
			}
			if !errors.Is(h.Err(), tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, h.Err())
			}
			var resErr *core.ResourceError
			if !errors.As(h.Err(), &resErr) || resErr.Resource != key.String() {
				t.Fatalf("expected a resource error naming %s, got %v", key, h.Err())
			}
		})
	}
}

func strPtr(s string) *string {
	return &s
}

func TestUploadFailureIsDeviceInitError(t *testing.T) {
	f := newFixture(t)
	f.uploader.fail = true
	h := mustGet(t, f.d, f.put("gpu.blob", "gpu"))
	f.sched.runAll()

	if h.Ready() {
		t.Fatal("expected upload failure")
	}
	if h.Status() != Failed || !errors.Is(h.Err(), core.ErrDeviceInit) {
		t.Fatalf("expected failed with device init error, got %s / %v", h.Status(), h.Err())
	}
	f.uploader.fail = false
	if h.Ready() {
		t.Fatal("failed record must not retry")
	}
}

func TestGetBeforeReadyPanics(t *testing.T) {
	f := newFixture(t)
	h := mustGet(t, f.d, f.put("early.blob", "early"))

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, core.ErrMisuse) {
			t.Fatalf("expected misuse panic, got %v", r)
		}
	}()
	h.Get()
}

func TestGetMisuse(t *testing.T) {
	f := newFixture(t)
	key := f.put("thing.blob", "thing")

	if _, err := Get[*testObject](f.d, NewKey("unknown", "thing.blob")); !errors.Is(err, core.ErrMisuse) {
		t.Fatalf("unknown kind: expected misuse, got %v", err)
	}
	if _, err := Get[string](f.d, key); !errors.Is(err, core.ErrMisuse) {
		t.Fatalf("wrong type: expected misuse, got %v", err)
	}
	if f.sched.total() != 0 {
		t.Fatal("misuse must not schedule work")
	}

	f.sched.closed = true
	if _, err := Get[*testObject](f.d, key); !errors.Is(err, core.ErrMisuse) {
		t.Fatalf("closed scheduler: expected misuse, got %v", err)
	}
	if f.d.Len() != 0 {
		t.Fatal("unscheduled record must not stay registered")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.d.Drain(ctx); err != nil {
		t.Fatalf("expected nothing in flight, got %v", err)
	}

	f.sched.closed = false
	f.d.Close()
	if _, err := Get[*testObject](f.d, key); !errors.Is(err, core.ErrMisuse) {
		t.Fatalf("closed despatcher: expected misuse, got %v", err)
	}
}

func TestReleaseWhileLoadingDiscardsResult(t *testing.T) {
	f := newFixture(t)
	key := f.put("slow.blob", "slow")
	h := mustGet(t, f.d, key)

	if !f.d.Release(key) {
		t.Fatal("expected release to find the record")
	}
	if f.d.Len() != 0 {
		t.Fatal("expected the record to be detached")
	}
	if h.Status() != Loading {
		t.Fatalf("expected teardown to wait for the job, got %s", h.Status())
	}

	var seen []Status
	h.Subscribe(func(ev Event) { seen = append(seen, ev.Status) })
	f.sched.runAll()
	f.d.Pump(4)

	if h.Status() != Released {
		t.Fatalf("expected released, got %s", h.Status())
	}
	if len(seen) != 1 || seen[0] != Released {
		t.Fatalf("expected a released notification, got %v", seen)
	}
	if f.uploader.created != 0 {
		t.Fatal("discarded result must never reach the device")
	}
	if h.Ready() {
		t.Fatal("released handle must not be ready")
	}

	fresh := mustGet(t, f.d, key)
	if fresh.Same(h) || f.sched.total() != 2 {
		t.Fatal("expected a new record and a second decode job")
	}
	if f.d.Release(NewKey(testKind, "never-requested")) {
		t.Fatal("expected release of an unknown key to report false")
	}
}

func TestLastHandleTearsDown(t *testing.T) {
	f := newFixture(t)
	key := f.put("shared.blob", "shared")
	h1 := mustGet(t, f.d, key)
	h2 := h1.Clone()
	f.sched.runAll()

	if !h1.Ready() {
		t.Fatal("expected ready")
	}
	obj := h1.Get()

	h1.Release()
	h1.Release()
	if h2.Status() != Initialized || f.uploader.destroyed != 0 {
		t.Fatal("record must outlive the first handle")
	}
	if h1.Ready() {
		t.Fatal("released handle must not report ready")
	}

	h2.Release()
	if f.uploader.destroyed != 1 {
		t.Fatalf("expected the device object to be destroyed, got %d", f.uploader.destroyed)
	}
	if h2.Status() != Released || f.d.Len() != 0 {
		t.Fatal("expected the record to be released and removed")
	}
	if f.d.IsManaged(obj) {
		t.Fatal("destroyed object must not stay managed")
	}
}

func TestCollectedHandlesAreDroppedOnPump(t *testing.T) {
	f := newFixture(t)
	h := mustGet(t, f.d, f.put("orphan.blob", "orphan"))
	f.sched.runAll()
	h.Ready()

	// what the finalizer does once the handle becomes unreachable
	h.released.Store(true)
	f.d.deferDrop(h.rec)

	if f.d.Len() != 1 {
		t.Fatal("drops must wait for the device thread")
	}
	stats := f.d.Pump(0)
	if stats.Dropped != 1 || f.d.Len() != 0 || f.uploader.destroyed != 1 {
		t.Fatalf("expected the record to be torn down, got %+v", stats)
	}
}

func TestPumpRespectsUploadBudget(t *testing.T) {
	f := newFixture(t)
	var handles []*Handle[*testObject]
	for i := 0; i < 3; i++ {
		handles = append(handles, mustGet(t, f.d, f.put(fmt.Sprintf("%d.blob", i), "x")))
	}
	f.sched.runAll()

	if stats := f.d.Pump(2); stats.Uploaded != 2 || stats.Notified != 3 {
		t.Fatalf("unexpected first pump %+v", stats)
	}
	if stats := f.d.Pump(2); stats.Uploaded != 1 {
		t.Fatalf("unexpected second pump %+v", stats)
	}
	for _, h := range handles {
		if h.Status() != Initialized {
			t.Fatalf("expected initialized, got %s", h.Status())
		}
	}
}

func TestSubscribersSeeEveryTransition(t *testing.T) {
	f := newFixture(t)
	h := mustGet(t, f.d, f.put("watched.blob", "watched"))

	var seen []Status
	h.Subscribe(func(ev Event) {
		if ev.Key != h.Key() {
			t.Errorf("unexpected key %s", ev.Key)
		}
		seen = append(seen, ev.Status)
	})

	f.sched.runAll()
	if len(seen) != 0 {
		t.Fatal("subscribers must only run on the device thread")
	}
	f.d.Pump(1)
	h.Release()

	want := []Status{DataReady, Initialized, Released}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
}

func TestReadyBeforePumpStillDeliversDataReady(t *testing.T) {
	f := newFixture(t)
	h := mustGet(t, f.d, f.put("eager.blob", "eager"))

	var seen []Status
	h.Subscribe(func(ev Event) {
		seen = append(seen, ev.Status)
	})

	f.sched.runAll()
	if !h.Ready() {
		t.Fatal("expected the upload to happen in Ready")
	}
	if stats := f.d.Pump(1); stats.Notified != 0 || stats.Uploaded != 0 {
		t.Fatalf("the queued event was already delivered, got %+v", stats)
	}
	h.Release()

	want := []Status{DataReady, Initialized, Released}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
}

func TestCheckUnmanaged(t *testing.T) {
	f := newFixture(t)
	h := mustGet(t, f.d, f.put("owned.blob", "owned"))
	f.sched.runAll()
	if !h.Ready() {
		t.Fatal("expected ready")
	}

	if err := f.d.CheckUnmanaged(h.Get()); !errors.Is(err, core.ErrMisuse) {
		t.Fatalf("expected misuse for a managed object, got %v", err)
	}
	if err := f.d.CheckUnmanaged(&testObject{name: "mine"}); err != nil {
		t.Fatalf("expected unmanaged object to be accepted, got %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	err := Register(f.d, Kind[string, *testObject]{Name: testKind, Decoder: f.decoder, Uploader: f.uploader})
	if !errors.Is(err, core.ErrMisuse) {
		t.Fatalf("expected misuse, got %v", err)
	}
	err = Register(f.d, Kind[string, *testObject]{Name: "incomplete"})
	if !errors.Is(err, core.ErrMisuse) {
		t.Fatalf("expected misuse, got %v", err)
	}
}

func TestAnonymousKeysAreUnique(t *testing.T) {
	a, b := AnonymousKey(testKind), AnonymousKey(testKind)
	if a == b {
		t.Fatal("expected distinct keys")
	}
	if a.Kind != testKind || len(a.Path) <= len(MemoryScheme) {
		t.Fatalf("malformed key %s", a)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	f := newFixture(t)
	ready := mustGet(t, f.d, f.put("a.blob", "a"))
	f.sched.runAll()
	ready.Ready()
	loading := mustGet(t, f.d, f.put("b.blob", "b"))

	f.d.Close()

	if ready.Status() != Released || f.uploader.destroyed != 1 {
		t.Fatal("expected initialized record to be destroyed")
	}
	f.sched.runAll()
	if loading.Status() != Released {
		t.Fatalf("expected in-flight record to be discarded, got %s", loading.Status())
	}
	if f.d.Len() != 0 {
		t.Fatal("expected empty registry")
	}
}
