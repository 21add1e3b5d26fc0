package worker

import (
	"context"
	"errors"
	"sync"

	"quickref/internal/service/ai"
)

// ErrDispatcherBusy is returned by Submit when the job queue is full.
var ErrDispatcherBusy = errors.New("dispatcher busy")

// ErrDispatcherStopped is returned by Submit after Stop.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

const (
	defaultWorkers   = 4
	defaultQueueSize = 32
)

// Dispatcher bounds the number of concurrent upstream questions. Jobs wait in JobQueue until a
// worker registers itself as idle.
type Dispatcher struct {
	workerPool chan chan Job
	JobQueue   chan Job
	workers    []*Worker

	mu      sync.RWMutex
	stopped bool
	quit    chan struct{}
	done    chan struct{}
}

func NewDispatcher(workers, queueSize int, asker ai.Asker) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize < 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		workerPool: make(chan chan Job, workers),
		JobQueue:   make(chan Job, queueSize),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		w := NewWorker(i+1, d.workerPool, asker)
		d.workers = append(d.workers, w)
		w.Start()
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case job := <-d.JobQueue:
			select {
			case workerChan := <-d.workerPool:
				workerChan <- job
			case <-d.quit:
				job.resultCh <- jobResult{err: ErrDispatcherStopped}
				return
			}
		case <-d.quit:
			return
		}
	}
}

// Submit queues prompt and waits for its answer. It never blocks on a full queue.
func (d *Dispatcher) Submit(ctx context.Context, prompt string) (string, error) {
	job := Job{Ctx: ctx, Prompt: prompt, resultCh: make(chan jobResult, 1)}

	d.mu.RLock()
	if d.stopped {
		d.mu.RUnlock()
		return "", ErrDispatcherStopped
	}
	select {
	case d.JobQueue <- job:
	default:
		d.mu.RUnlock()
		debugLog("[dispatcher] queue full (%d), rejecting job", cap(d.JobQueue))
		return "", ErrDispatcherBusy
	}
	d.mu.RUnlock()

	select {
	case res := <-job.resultCh:
		return res.answer, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Ask lets the dispatcher stand in for an ai.Asker.
func (d *Dispatcher) Ask(ctx context.Context, prompt string) (string, error) {
	return d.Submit(ctx, prompt)
}

// Stop stops dispatching and the idle workers. Jobs still queued are failed with
// ErrDispatcherStopped; running jobs finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	close(d.quit)
	<-d.done
	for _, w := range d.workers {
		w.Stop()
	}
	for {
		select {
		case job := <-d.JobQueue:
			job.resultCh <- jobResult{err: ErrDispatcherStopped}
		default:
			return
		}
	}
}
