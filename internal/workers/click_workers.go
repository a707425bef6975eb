package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/axellelanca/shortener/internal/models"
)

// ClickHandler persists one click.
type ClickHandler func(ctx context.Context, shortCode string, at time.Time) error

// ClickWorkers implements the worker pool pattern to record clicks without
// blocking redirects. Events go through a buffered channel shared by all workers.
type ClickWorkers struct {
	events  chan models.ClickEvent
	handler ClickHandler
	count   int
	log     *logrus.Entry

	mu     sync.RWMutex // guards closed against concurrent Enqueue
	closed bool
	wg     sync.WaitGroup
}

// NewClickWorkers creates a pool of workerCount goroutines reading from a
// channel of bufferSize events. Nothing runs until Start.
func NewClickWorkers(workerCount, bufferSize int, handler ClickHandler, logger *logrus.Logger) *ClickWorkers {
	if workerCount <= 0 {
		workerCount = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &ClickWorkers{
		events:  make(chan models.ClickEvent, bufferSize),
		handler: handler,
		count:   workerCount,
		log:     logger.WithField("module", "workers/clicks"),
	}
}

// Start launches the worker goroutines.
func (w *ClickWorkers) Start() {
	w.log.Infof("Starting %d click worker(s)...", w.count)
	for i := 0; i < w.count; i++ {
		w.wg.Add(1)
		go w.run(i)
	}
}

// Enqueue hands event to the workers without blocking. It returns false when
// the buffer is full or the pool is stopped; the caller then records the click itself.
func (w *ClickWorkers) Enqueue(event models.ClickEvent) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.events <- event:
		return true
	default:
		w.log.WithField("short_code", event.ShortCode).Warn("click buffer full, recording inline")
		return false
	}
}

// Stop closes the channel and waits until every buffered event is processed
// or ctx is done.
func (w *ClickWorkers) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.events)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info("click workers drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is executed by each worker goroutine until the channel is closed.
func (w *ClickWorkers) run(id int) {
	defer w.wg.Done()
	logCtx := w.log.WithField("worker", id)

	for event := range w.events {
		// Buffered events must still be written after shutdown starts.
		if err := w.handler(context.Background(), event.ShortCode, event.Timestamp); err != nil {
			logCtx.WithError(err).WithField("short_code", event.ShortCode).Error("failed to record click")
			continue
		}
		logCtx.WithField("short_code", event.ShortCode).Debug("click recorded")
	}
}
