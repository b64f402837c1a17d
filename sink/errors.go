package sink

import (
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Kind labels the failure mode of a write attempt. The coordinator branches
// on Kind rather than on driver error identity: only StorageFull receives
// active remediation (rollover), all other kinds propagate to the caller.
type Kind int

const (
	// OK indicates the write succeeded.
	OK Kind = iota
	// StorageUnavailable indicates the data file could not be opened or
	// its table provisioned.
	StorageUnavailable
	// StorageFull indicates the engine reported the data file has reached
	// its maximum size.
	StorageFull
	// WriteFailed indicates any other failure while writing a batch.
	WriteFailed
)

// String returns a label of the Kind.
func (k Kind) String() string {
	switch k {
	case OK:
		return "OK"
	case StorageUnavailable:
		return "StorageUnavailable"
	case StorageFull:
		return "StorageFull"
	case WriteFailed:
		return "WriteFailed"
	default:
		return "unknown Kind"
	}
}

// KindOf classifies an error returned by Sink.WriteBatch.
func KindOf(err error) Kind {
	if err == nil {
		return OK
	}
	if kerr, ok := err.(kindError); ok {
		return kerr.kind
	}
	if sqliteFull(err) {
		return StorageFull
	}
	return WriteFailed
}

// sqliteFull returns whether |err| is the engine's database-full code.
func sqliteFull(err error) bool {
	var serr, ok = errors.Cause(err).(sqlite3.Error)
	return ok && serr.Code == sqlite3.ErrFull
}

type kindError struct {
	kind Kind
	err  error
}

func (e kindError) Error() string { return e.err.Error() }

// Cause supports unwrapping by the errors package.
func (e kindError) Cause() error { return e.err }

func tag(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return kindError{kind: kind, err: err}
}
