// Package buffer implements the batching layer which accumulates incoming
// log records and decides when, and with how many records, the sink's write
// path is invoked.
package buffer

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go.sqlog.dev/core/async"
	"go.sqlog.dev/core/metrics"
	"go.sqlog.dev/core/record"
)

// Writer is the downstream batch write operation, typically a *sink.Sink.
type Writer interface {
	WriteBatch(ctx context.Context, batch []record.Record) error
}

// Config configures a Buffer.
type Config struct {
	Size        int           `long:"size" env:"SIZE" default:"100" description:"Maximum records per flushed batch"`
	Period      time.Duration `long:"period" env:"PERIOD" default:"10s" description:"Maximum interval between flushes"`
	MaxBuffered int           `long:"max-buffered" env:"MAX_BUFFERED" default:"25000" description:"Maximum queued records, beyond which new records are dropped"`
}

// Validate returns an error if the Config is malformed.
func (cfg Config) Validate() error {
	if cfg.Size <= 0 {
		return errors.New("Size must be positive")
	} else if cfg.Period <= 0 {
		return errors.New("Period must be positive")
	} else if cfg.MaxBuffered < cfg.Size {
		return errors.New("MaxBuffered cannot be less than Size")
	}
	return nil
}

// Buffer accumulates records and flushes them to a Writer when a full batch
// collects or the flush period elapses, whichever comes first. Write-path
// failures never cross Emit: they're reported to the Logger, and the failed
// batch is dropped.
type Buffer struct {
	// Logger receives diagnostics of dropped records and failed flushes.
	// Defaults to the logrus standard logger.
	Logger log.FieldLogger

	cfg    Config
	writer Writer

	recCh   chan record.Record
	flushCh chan async.Promise
	stopCh  chan struct{}
	done    async.Promise
	once    sync.Once
}

// NewBuffer returns a started Buffer flushing to |w|.
func NewBuffer(cfg Config, w Writer) (*Buffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var b = &Buffer{
		Logger:  log.StandardLogger(),
		cfg:     cfg,
		writer:  w,
		recCh:   make(chan record.Record, cfg.MaxBuffered),
		flushCh: make(chan async.Promise),
		stopCh:  make(chan struct{}),
		done:    async.New(),
	}
	go b.serve()
	return b, nil
}

// Emit enqueues |rec| for an upcoming flush, and returns whether it was
// accepted. Emit never blocks and never returns an error: if the buffer is
// saturated, or the Buffer is stopped, the record is dropped with a
// diagnostic.
func (b *Buffer) Emit(rec record.Record) bool {
	select {
	case <-b.stopCh:
		return false
	default:
	}

	select {
	case b.recCh <- rec:
		return true
	default:
	}
	metrics.RecordsDroppedTotal.Inc()
	b.Logger.WithField("maxBuffered", b.cfg.MaxBuffered).
		Warn("buffer is saturated; dropping record")
	return false
}

// Flush asks the serve loop to flush immediately, and returns a Promise
// which resolves when that flush attempt completes.
func (b *Buffer) Flush() async.Promise {
	var p = async.New()
	select {
	case b.flushCh <- p:
		return p
	case <-b.stopCh:
		return async.Resolved()
	}
}

// Stop drains queued records through final flushes, then stops the serve
// loop. Records emitted after Stop are dropped.
func (b *Buffer) Stop() {
	b.once.Do(func() { close(b.stopCh) })
	b.done.Wait()
}

func (b *Buffer) serve() {
	defer b.done.Resolve()

	var ticker = time.NewTicker(b.cfg.Period)
	defer ticker.Stop()

	var batch = make([]record.Record, 0, b.cfg.Size)

	for {
		select {
		case rec := <-b.recCh:
			if batch = append(batch, rec); len(batch) == b.cfg.Size {
				batch = b.flush(batch)
			}
		case <-ticker.C:
			batch = b.flush(batch)
		case p := <-b.flushCh:
			batch = b.flush(batch)
			p.Resolve()
		case <-b.stopCh:
			// Drain records already queued, then exit.
			for {
				select {
				case rec := <-b.recCh:
					if batch = append(batch, rec); len(batch) == b.cfg.Size {
						batch = b.flush(batch)
					}
					continue
				default:
				}
				b.flush(batch)
				return
			}
		}
	}
}

// flush writes the batch and returns a cleared slice for reuse. A failed
// batch is logged and dropped; the Writer has already applied any full-file
// recovery before its error returns here.
func (b *Buffer) flush(batch []record.Record) []record.Record {
	if len(batch) == 0 {
		return batch
	}
	if err := b.writer.WriteBatch(context.Background(), batch); err != nil {
		b.Logger.WithFields(log.Fields{
			"err":     err,
			"records": len(batch),
		}).Error("failed to flush batch")
	}
	return batch[:0]
}
