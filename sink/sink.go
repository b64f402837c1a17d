package sink

import (
	"context"
	"database/sql"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"go.sqlog.dev/core/metrics"
	"go.sqlog.dev/core/record"
)

// Sink is a durable, batched writer of log records into a SQLite data file.
// Its WriteBatch is safe to invoke concurrently: a capacity-1 semaphore
// admits flushes in FIFO order and runs at most one at a time, end-to-end,
// including any rollover recovery.
type Sink struct {
	// OpenDB opens a connection to the data file. NewSink initializes it
	// to a default SQLite factory; it may be replaced prior to first use,
	// eg with an instrumented factory in tests.
	OpenDB func(Config) (*sql.DB, error)
	// Logger receives single-line diagnostics of the write path: storage
	// errors, batches discarded against a full data file, and completed
	// rollovers. Defaults to the logrus standard logger.
	Logger log.FieldLogger
	// Render maps a Record to its stored RenderedMessage column value.
	// Defaults to Record.Rendered.
	Render func(record.Record) string

	cfg      Config
	writeSem *semaphore.Weighted
}

// NewSink returns a Sink over the configured data file, creating the file
// and provisioning its table if they don't yet exist.
func NewSink(cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var s = &Sink{
		OpenDB:   openSQLite,
		Logger:   log.StandardLogger(),
		Render:   record.Record.Rendered,
		cfg:      cfg,
		writeSem: semaphore.NewWeighted(1),
	}

	// Provision up front so that construction, not the first flush,
	// surfaces an inaccessible path or credential.
	var db, err = s.OpenDB(cfg)
	if err != nil {
		return nil, tag(StorageUnavailable, errors.WithMessage(err, "opening data file"))
	}
	defer db.Close()

	if err = ensureSchema(db, cfg); err != nil {
		return nil, tag(StorageUnavailable, err)
	}
	return s, nil
}

// Config returns the Sink's configuration.
func (s *Sink) Config() Config { return s.cfg }

// WriteBatch persists |batch| as one transaction, recovering in-place from
// a full data file. It returns nil on success, including the cases where a
// batch was intentionally discarded (rollover disabled) or committed on the
// single post-rollover retry. Any error is also reported to the Logger, and
// may be classified with KindOf; the caller owns all further retry policy.
// An empty batch is a no-op which reports success.
func (s *Sink) WriteBatch(ctx context.Context, batch []record.Record) error {
	if len(batch) == 0 {
		return nil
	}
	if err := s.writeSem.Acquire(ctx, 1); err != nil {
		return tag(WriteFailed, err)
	}
	defer s.writeSem.Release(1)

	var started = time.Now()
	var err = s.writeLocked(ctx, batch)
	metrics.WriteDurationTotal.Add(time.Since(started).Seconds())

	if err != nil {
		metrics.StorageErrorsTotal.Inc()
		s.Logger.WithFields(log.Fields{
			"err":     err,
			"kind":    KindOf(err),
			"path":    s.cfg.Path,
			"records": len(batch),
		}).Error("failed to write batch")
	}
	return err
}

// writeLocked runs one write-or-recover sequence under the write semaphore.
func (s *Sink) writeLocked(ctx context.Context, batch []record.Record) error {
	var db, err = s.OpenDB(s.cfg)
	if err != nil {
		return tag(StorageUnavailable, errors.WithMessage(err, "opening data file"))
	}
	defer db.Close()

	if err = ensureSchema(db, s.cfg); err != nil {
		return tag(StorageUnavailable, err)
	}

	if err = s.insertBatch(ctx, db, batch); err == nil {
		metrics.BatchesCommittedTotal.Inc()
		metrics.RecordsCommittedTotal.Add(float64(len(batch)))
		return nil
	} else if !sqliteFull(err) {
		return tag(WriteFailed, err)
	}

	// The engine reports the data file is at its size limit.
	if s.cfg.NoRollover {
		metrics.BatchesDiscardedTotal.Inc()
		s.Logger.WithFields(log.Fields{
			"path":    s.cfg.Path,
			"records": len(batch),
		}).Warn("data file is full and rollover is disabled; discarding batch")
		return nil
	}

	archive, size, err := s.rollover(ctx, db)
	if err != nil {
		return tag(WriteFailed, err)
	}
	// Retry exactly once against the now-empty table. A second failure
	// propagates rather than recursing into another rollover.
	if err = s.insertBatch(ctx, db, batch); err != nil {
		return tag(KindOf(err), errors.WithMessage(err, "retrying batch after rollover"))
	}

	metrics.RolloversTotal.Inc()
	metrics.BatchesCommittedTotal.Inc()
	metrics.RecordsCommittedTotal.Add(float64(len(batch)))
	s.Logger.WithFields(log.Fields{
		"path":    s.cfg.Path,
		"archive": archive,
		"size":    humanize.Bytes(uint64(size)),
	}).Info("data file rolled over to archive")
	return nil
}
