package buffer

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.sqlog.dev/core/record"
)

func TestFlushOnBatchSize(t *testing.T) {
	var w = newCaptureWriter()
	var b, _ = newTestBuffer(t, Config{Size: 3, Period: time.Hour, MaxBuffered: 100}, w)
	defer b.Stop()

	for i := 0; i != 3; i++ {
		require.True(t, b.Emit(makeRecord(i)))
	}
	// A full batch flushes without waiting on the period.
	assert.Equal(t, 3, w.nextBatchLen(t))

	// A partial batch flushes on demand, in input order.
	require.True(t, b.Emit(makeRecord(3)))
	require.True(t, b.Emit(makeRecord(4)))
	b.Flush().Wait()
	assert.Equal(t, 2, w.nextBatchLen(t))

	var templates []string
	for _, batch := range w.snapshot() {
		for _, rec := range batch {
			templates = append(templates, rec.MessageTemplate)
		}
	}
	assert.Equal(t, []string{"event-0", "event-1", "event-2", "event-3", "event-4"}, templates)
}

func TestFlushOnPeriod(t *testing.T) {
	var w = newCaptureWriter()
	var b, _ = newTestBuffer(t, Config{Size: 100, Period: 10 * time.Millisecond, MaxBuffered: 100}, w)
	defer b.Stop()

	require.True(t, b.Emit(makeRecord(0)))
	assert.Equal(t, 1, w.nextBatchLen(t))
}

func TestStopDrainsQueuedRecords(t *testing.T) {
	var w = newCaptureWriter()
	var b, _ = newTestBuffer(t, Config{Size: 10, Period: time.Hour, MaxBuffered: 100}, w)

	for i := 0; i != 5; i++ {
		require.True(t, b.Emit(makeRecord(i)))
	}
	b.Stop()
	assert.Equal(t, [][]record.Record{
		{makeRecord(0), makeRecord(1), makeRecord(2), makeRecord(3), makeRecord(4)},
	}, w.snapshot())

	// Emit and Flush after Stop are inert.
	assert.False(t, b.Emit(makeRecord(5)))
	assert.True(t, b.Flush().WaitWithTimeout(time.Second))
}

func TestSaturatedBufferDropsRecords(t *testing.T) {
	var w = newCaptureWriter()
	w.block = make(chan struct{})

	var b, hook = newTestBuffer(t, Config{Size: 2, Period: time.Hour, MaxBuffered: 2}, w)

	// Fill a batch, and wait for its flush to begin (and block).
	require.True(t, b.Emit(makeRecord(0)))
	require.True(t, b.Emit(makeRecord(1)))
	assert.Equal(t, 2, w.nextBatchLen(t))

	// With the serve loop wedged in its flush, saturate the queue.
	require.True(t, b.Emit(makeRecord(2)))
	require.True(t, b.Emit(makeRecord(3)))
	assert.False(t, b.Emit(makeRecord(4)))
	assert.NotNil(t, findEntry(hook, "buffer is saturated; dropping record"))

	close(w.block)
	b.Stop()
	assert.Equal(t, [][]record.Record{
		{makeRecord(0), makeRecord(1)},
		{makeRecord(2), makeRecord(3)},
	}, w.snapshot())
}

func TestFlushFailureIsLoggedAndDropped(t *testing.T) {
	var w = newCaptureWriter()
	w.err = context.DeadlineExceeded

	var b, hook = newTestBuffer(t, Config{Size: 10, Period: time.Hour, MaxBuffered: 100}, w)
	defer b.Stop()

	require.True(t, b.Emit(makeRecord(0)))
	b.Flush().Wait()
	assert.NotNil(t, findEntry(hook, "failed to flush batch"))

	// The buffer keeps flushing after a failure.
	w.mu.Lock()
	w.err = nil
	w.mu.Unlock()

	require.True(t, b.Emit(makeRecord(1)))
	b.Flush().Wait()
	assert.Equal(t, 2, len(w.snapshot()))
}

func TestConfigValidation(t *testing.T) {
	assert.EqualError(t, Config{}.Validate(), "Size must be positive")
	assert.EqualError(t, Config{Size: 5}.Validate(), "Period must be positive")
	assert.EqualError(t, Config{Size: 5, Period: time.Second, MaxBuffered: 1}.Validate(),
		"MaxBuffered cannot be less than Size")
	assert.NoError(t, Config{Size: 5, Period: time.Second, MaxBuffered: 5}.Validate())
}

// Test support.

type captureWriter struct {
	mu      sync.Mutex
	batches [][]record.Record
	sizes   chan int
	block   chan struct{} // If set, WriteBatch blocks until closed.
	err     error
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{sizes: make(chan int, 16)}
}

func (w *captureWriter) WriteBatch(_ context.Context, batch []record.Record) error {
	w.mu.Lock()
	var cp = append([]record.Record(nil), batch...)
	w.batches = append(w.batches, cp)
	var err = w.err
	var block = w.block
	w.mu.Unlock()

	w.sizes <- len(cp)
	if block != nil {
		<-block
	}
	return err
}

func (w *captureWriter) nextBatchLen(t *testing.T) int {
	select {
	case n := <-w.sizes:
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a flush")
		return 0
	}
}

func (w *captureWriter) snapshot() [][]record.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]record.Record(nil), w.batches...)
}

func newTestBuffer(t *testing.T, cfg Config, w Writer) (*Buffer, *logtest.Hook) {
	var b, err = NewBuffer(cfg, w)
	require.NoError(t, err)

	var logger, hook = logtest.NewNullLogger()
	b.Logger = logger
	return b, hook
}

func findEntry(hook *logtest.Hook, message string) *log.Entry {
	for _, entry := range hook.AllEntries() {
		if entry.Message == message {
			return entry
		}
	}
	return nil
}

func makeRecord(i int) record.Record {
	return record.Record{
		Timestamp:       time.Date(2024, 5, 1, 12, 0, i, 0, time.UTC),
		Level:           record.Info,
		MessageTemplate: "event-" + strconv.Itoa(i),
	}
}
