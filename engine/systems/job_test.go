package systems

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

func TestNewJobSystemValidatesArguments(t *testing.T) {
	if _, err := NewJobSystem(0, 1); !errors.Is(err, ErrNoWorkers) {
		t.Fatalf("expected ErrNoWorkers, got %v", err)
	}
	if _, err := NewJobSystem(1, -1); !errors.Is(err, ErrNegativeChannelSize) {
		t.Fatalf("expected ErrNegativeChannelSize, got %v", err)
	}
}

func TestJobSystemRunsEveryJob(t *testing.T) {
	js, err := NewJobSystem(4, 2)
	if err != nil {
		t.Fatal(err)
	}

	var started, completed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		err := js.AddWorkNonBlocking(metadata.JobTask{
			JobType: metadata.JOB_TYPE_GENERAL,
			Name:    "count",
			OnStart: func() error {
				started.Add(1)
				return nil
			},
			OnComplete: func() {
				completed.Add(1)
				wg.Done()
			},
		})
		if err != nil {
			t.Fatalf("AddWorkNonBlocking: %v", err)
		}
	}
	wg.Wait()

	if err := js.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if started.Load() != 50 || completed.Load() != 50 {
		t.Fatalf("expected 50 runs, got %d started and %d completed", started.Load(), completed.Load())
	}
}

func TestJobSystemReportsFailures(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	failures := make(chan error, 2)
	boom := errors.New("boom")
	for _, fn := range []func() error{
		func() error { return boom },
		func() error { panic("worker must survive this") },
	} {
		err := js.Submit(metadata.JobTask{
			Name:       "failing",
			OnStart:    fn,
			OnComplete: func() { t.Error("OnComplete must not run after a failure") },
			OnFailure:  func(err error) { failures <- err },
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	if err := <-failures; !errors.Is(err, boom) {
		t.Fatalf("expected the returned error, got %v", err)
	}
	if err := <-failures; err == nil {
		t.Fatal("expected the panic to be reported as an error")
	}
}

func TestJobSystemRejectsWorkAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := js.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := js.Shutdown(); err != nil {
		t.Fatalf("second Shutdown should be a no-op, got %v", err)
	}

	jt := metadata.JobTask{Name: "late", OnStart: func() error { return nil }}
	if err := js.AddWorkNonBlocking(jt); !errors.Is(err, ErrJobSystemClosed) {
		t.Fatalf("expected ErrJobSystemClosed, got %v", err)
	}
	if _, err := js.TrySubmit(jt); !errors.Is(err, ErrJobSystemClosed) {
		t.Fatalf("expected ErrJobSystemClosed, got %v", err)
	}
}

func TestJobSystemShutdownDoesNotStallSubmitters(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	if err != nil {
		t.Fatal(err)
	}

	gate := make(chan struct{})
	busy := make(chan struct{})
	var ran atomic.Int32
	if err := js.Submit(metadata.JobTask{Name: "gate", OnStart: func() error {
		close(busy)
		<-gate
		return nil
	}}); err != nil {
		t.Fatal(err)
	}
	<-busy
	// the worker is held, this fills the queue
	queued := metadata.JobTask{Name: "queued", OnStart: func() error {
		ran.Add(1)
		return nil
	}}
	if ok, err := js.TrySubmit(queued); !ok || err != nil {
		t.Fatalf("expected the job to be queued, got %v %v", ok, err)
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- js.Submit(metadata.JobTask{Name: "blocked", OnStart: func() error { return nil }})
	}()
	shutdown := make(chan error, 1)
	go func() {
		shutdown <- js.Shutdown()
	}()

	select {
	case err := <-blocked:
		if !errors.Is(err, ErrJobSystemClosed) {
			t.Fatalf("expected ErrJobSystemClosed for the blocked submit, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("a blocked Submit must return once the job system shuts down")
	}

	tried := make(chan struct{})
	go func() {
		js.TrySubmit(metadata.JobTask{Name: "late", OnStart: func() error { return nil }})
		close(tried)
	}()
	select {
	case <-tried:
	case <-time.After(5 * time.Second):
		t.Fatal("TrySubmit must not wait behind a pending Shutdown")
	}

	close(gate)
	if err := <-shutdown; err != nil {
		t.Fatal(err)
	}
	if ran.Load() != 1 {
		t.Fatal("the queued job should run before Shutdown returns")
	}
}
