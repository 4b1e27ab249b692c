package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// JobSystem is a fixed pool of worker goroutines consuming a shared queue.
// The queue is never closed; done tells workers and blocked senders to stop.
type JobSystem struct {
	numWorkers int
	jobQueue   chan metadata.JobTask
	done       chan struct{}
	wg         sync.WaitGroup

	// mu is only held for non-blocking work; senders counts Submit calls that
	// may still be waiting on a full queue.
	mu      sync.RWMutex
	closed  bool
	senders sync.WaitGroup
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemClosed = fmt.Errorf("job system is shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan metadata.JobTask, channelSize),
		done:       make(chan struct{}),
	}

	js.start()

	core.LogInfo("Job system started with %d workers (queue size %d).", numWorkers, channelSize)

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for {
				select {
				case job := <-js.jobQueue:
					js.run(job)
				case <-js.done:
					js.drain(js.run)
					return
				}
			}
		}()
	}
}

func (js *JobSystem) run(job metadata.JobTask) {
	if err := runGuarded(job.OnStart); err != nil {
		core.LogError("job '%s' failed: %s", job.Name, err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete()
	}
}

// runGuarded turns a panic inside a job into an error so a single bad asset
// cannot take a worker down.
func runGuarded(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn()
}

// drain hands every job still queued to fn without waiting for more.
func (js *JobSystem) drain(fn func(metadata.JobTask)) {
	for {
		select {
		case job := <-js.jobQueue:
			fn(job)
		default:
			return
		}
	}
}

/**
 * @brief Shuts the job system down. Queued jobs are drained before returning.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return nil
	}
	js.closed = true
	close(js.done)
	js.mu.Unlock()

	js.senders.Wait()
	js.wg.Wait()
	// a sender can win the race against done after the workers drained
	js.drain(func(job metadata.JobTask) {
		core.LogWarn("job '%s' dropped: %s", job.Name, ErrJobSystemClosed)
		if job.OnFailure != nil {
			job.OnFailure(ErrJobSystemClosed)
		}
	})
	core.LogInfo("Job system shut down.")
	return nil
}

// AddWorkNonBlocking queues the job without ever blocking the caller. When the
// queue is full the hand-off happens on a separate goroutine.
func (js *JobSystem) AddWorkNonBlocking(jt metadata.JobTask) error {
	queued, err := js.TrySubmit(jt)
	if err != nil || queued {
		return err
	}
	go func() {
		if err := js.Submit(jt); err != nil {
			core.LogWarn("job '%s' dropped: %s", jt.Name, err)
			if jt.OnFailure != nil {
				jt.OnFailure(err)
			}
		}
	}()
	return nil
}

// TrySubmit queues the job only if there is room right now.
func (js *JobSystem) TrySubmit(jt metadata.JobTask) (bool, error) {
	js.mu.RLock()
	defer js.mu.RUnlock()
	if js.closed {
		return false, ErrJobSystemClosed
	}
	select {
	case js.jobQueue <- jt:
		return true, nil
	default:
		return false, nil
	}
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while the queue is full,
 * until there is room or the job system shuts down.
 * @param info The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) error {
	js.mu.RLock()
	if js.closed {
		js.mu.RUnlock()
		return ErrJobSystemClosed
	}
	js.senders.Add(1)
	js.mu.RUnlock()
	defer js.senders.Done()

	select {
	case js.jobQueue <- jt:
		return nil
	case <-js.done:
		return ErrJobSystemClosed
	}
}
