package workers

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axellelanca/shortener/internal/models"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type recorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recorder) handle(_ context.Context, code string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code == "failing1" {
		return errors.New("boom")
	}
	r.counts[code]++
	return nil
}

func TestClickWorkers_ProcessesEveryEventBeforeStop(t *testing.T) {
	rec := &recorder{counts: make(map[string]int)}
	w := NewClickWorkers(4, 100, rec.handle, newTestLogger())
	w.Start()

	for i := 0; i < 50; i++ {
		require.True(t, w.Enqueue(models.ClickEvent{ShortCode: "abcd1234", Timestamp: time.Now()}))
	}
	require.True(t, w.Enqueue(models.ClickEvent{ShortCode: "failing1", Timestamp: time.Now()}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))

	assert.Equal(t, 50, rec.counts["abcd1234"])
	assert.False(t, w.Enqueue(models.ClickEvent{ShortCode: "abcd1234"}), "a stopped pool refuses events")
	assert.NoError(t, w.Stop(ctx), "stopping twice is harmless")
}

func TestClickWorkers_FullBufferRefuses(t *testing.T) {
	block := make(chan struct{})
	w := NewClickWorkers(1, 1, func(context.Context, string, time.Time) error {
		<-block
		return nil
	}, newTestLogger())

	// Not started: the first event fills the buffer.
	assert.True(t, w.Enqueue(models.ClickEvent{ShortCode: "abcd1234"}))
	assert.False(t, w.Enqueue(models.ClickEvent{ShortCode: "abcd1234"}))

	w.Start()
	close(block)
	require.NoError(t, w.Stop(context.Background()))
}

func TestClickWorkers_StopHonoursDeadline(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	w := NewClickWorkers(1, 1, func(context.Context, string, time.Time) error {
		<-block
		return nil
	}, newTestLogger())
	w.Start()
	require.True(t, w.Enqueue(models.ClickEvent{ShortCode: "abcd1234"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Stop(ctx), context.DeadlineExceeded)
}
