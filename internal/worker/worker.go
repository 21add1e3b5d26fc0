package worker

import (
	"context"
	"errors"
	"fmt"
	"log"

	"quickref/internal/service/ai"
)

// ErrWorkerPanic is returned to the submitter when the asker panics.
var ErrWorkerPanic = errors.New("worker panicked")

// Job is one upstream question waiting for a worker.
type Job struct {
	Ctx      context.Context
	Prompt   string
	resultCh chan jobResult
}

type jobResult struct {
	answer string
	err    error
}

type Worker struct {
	id         int
	asker      ai.Asker
	workerPool chan chan Job
	jobChannel chan Job
	quit       chan struct{}
}

func NewWorker(id int, pool chan chan Job, asker ai.Asker) *Worker {
	return &Worker{
		id:         id,
		asker:      asker,
		workerPool: pool,
		jobChannel: make(chan Job),
		quit:       make(chan struct{}),
	}
}

// Start registers the worker as idle and handles one job per registration until stopped.
func (w *Worker) Start() {
	go func() {
		for {
			select {
			case w.workerPool <- w.jobChannel:
			case <-w.quit:
				return
			}
			select {
			case job := <-w.jobChannel:
				w.handle(job)
			case <-w.quit:
				return
			}
		}
	}()
}

func (w *Worker) Stop() {
	close(w.quit)
}

func (w *Worker) handle(job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[worker-%d] recovered from panic: %v", w.id, r)
			job.resultCh <- jobResult{err: fmt.Errorf("%w: %v", ErrWorkerPanic, r)}
		}
	}()
	// the caller may have given up while the job sat in the queue
	if err := job.Ctx.Err(); err != nil {
		debugLog("[worker-%d] skip cancelled job: %v", w.id, err)
		job.resultCh <- jobResult{err: err}
		return
	}
	debugLog("[worker-%d] ask (%d bytes)", w.id, len(job.Prompt))
	answer, err := w.asker.Ask(job.Ctx, job.Prompt)
	job.resultCh <- jobResult{answer: answer, err: err}
}
