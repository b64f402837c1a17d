package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go.sqlog.dev/core/record"
)

// insertSQL returns the parameterized INSERT of the configured column set.
func insertSQL(cfg Config) string {
	var columns = "Timestamp, Level, Exception, MessageTemplate, RenderedMessage, Properties"
	var params = 6

	if cfg.CallerInfo {
		columns += ", ClassName, MethodName, LineNumber"
		params += 3
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (?%s);",
		cfg.Table, columns, strings.Repeat(", ?", params-1))
}

// bindArgs maps a Record to the parameter values of insertSQL.
func (s *Sink) bindArgs(rec record.Record) ([]interface{}, error) {
	var cfg = s.cfg

	var props, err = record.MarshalProperties(rec.Properties)
	if err != nil {
		return nil, err
	}
	var args = []interface{}{
		record.FormatTimestamp(rec.Timestamp, cfg.UTC),
		rec.Level.String(),
		rec.Exception,
		rec.MessageTemplate,
		s.Render(rec),
		props,
	}
	if cfg.CallerInfo {
		var caller = rec.Caller
		if caller == nil {
			caller = &record.Caller{}
		}
		args = append(args, caller.ClassName, caller.MethodName,
			strconv.Itoa(caller.LineNumber))
	}
	return args, nil
}

// insertBatch writes every record of |batch| as one row within a single
// transaction, committing only after all rows are written. One prepared
// statement is rebound per row, so the INSERT is parsed once per batch.
// On any row failure the transaction is rolled back and the error returns
// to the caller un-tagged, for classification by the write coordinator.
func (s *Sink) insertBatch(ctx context.Context, db *sql.DB, batch []record.Record) error {
	var txn, err = db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithMessage(err, "beginning transaction")
	}

	var stmt *sql.Stmt
	if stmt, err = txn.Prepare(insertSQL(s.cfg)); err != nil {
		err = errors.WithMessage(err, "preparing insert")
	} else {
		for i := 0; i != len(batch) && err == nil; i++ {
			var args []interface{}
			if args, err = s.bindArgs(batch[i]); err == nil {
				_, err = stmt.ExecContext(ctx, args...)
			}
		}
		_ = stmt.Close()
	}

	if err != nil {
		_ = txn.Rollback()
		return err
	}
	return errors.WithMessage(txn.Commit(), "committing transaction")
}
