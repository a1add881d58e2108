package jobs

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// JobProcessor is run once per poll tick.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor on a fixed interval until stopped. Start blocks;
// Stop may be called from any goroutine, more than once.
type Worker struct {
	name         string
	processor    JobProcessor
	pollInterval time.Duration
	started      atomic.Bool
	stopOnce     sync.Once
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(name string, processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		log.Printf("%s worker: already started", w.name)
		return
	}
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("%s worker started with poll interval: %v", w.name, w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("%s worker stopped: context cancelled", w.name)
			return
		case <-w.stopChan:
			log.Printf("%s worker stopped: stop signal received", w.name)
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("%s worker: %v", w.name, err)
			}
		}
	}
}

// Stop signals the loop and waits for the tick in progress to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	if w.started.Load() {
		<-w.doneChan
	}
	log.Printf("%s worker shutdown complete", w.name)
}
