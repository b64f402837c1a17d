package sink

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// archiveTimeLayout stamps archive file names with a local wall-clock time,
// to hundredths of a second.
const archiveTimeLayout = "20060102_150405.00"

// archivePath derives the rollover archive location of |path| at |now|:
// <dir>/<basename>-<timestamp><ext>.
func archivePath(path string, now time.Time) string {
	var ext = filepath.Ext(path)
	var base = strings.TrimSuffix(filepath.Base(path), ext)

	return filepath.Join(filepath.Dir(path),
		fmt.Sprintf("%s-%s%s", base, now.Format(archiveTimeLayout), ext))
}

// copyFile copies |src| to |dst| byte-for-byte, overwriting any existing
// file at |dst|, and returns the number of bytes copied.
func copyFile(src, dst string) (int64, error) {
	var in, err = os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

// rollover archives the data file and truncates the live table, using the
// same still-open connection whose write just failed. The failed transaction
// has already rolled back, so the copied file is a complete, consistent
// snapshot of the last committed state. It returns the archive path and size.
func (s *Sink) rollover(ctx context.Context, db *sql.DB) (string, int64, error) {
	var archive = archivePath(s.cfg.Path, time.Now())

	var n, err = copyFile(s.cfg.Path, archive)
	if err != nil {
		return "", 0, errors.WithMessage(err, "archiving data file")
	}
	if _, err = db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s;", s.cfg.Table)); err != nil {
		return "", 0, errors.WithMessage(err, "clearing table")
	}
	// VACUUM reclaims the freed pages. It cannot run inside a transaction.
	if _, err = db.ExecContext(ctx, "VACUUM;"); err != nil {
		return "", 0, errors.WithMessage(err, "compacting data file")
	}
	return archive, n, nil
}
