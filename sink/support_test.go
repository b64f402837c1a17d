package sink

import (
	"database/sql"
	"database/sql/driver"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// instrumented is shared state of the instrumented test driver: a watermark
// of concurrently open connections, and one-shot faults armed against
// specific INSERT executions.
var instrumented struct {
	mu      sync.Mutex
	open    int
	maxOpen int
	inserts int
	faults  map[int]sqlite3.ErrNo // 1-indexed INSERT execution -> failure code.
}

func resetInstrumented() {
	instrumented.mu.Lock()
	defer instrumented.mu.Unlock()

	instrumented.open, instrumented.maxOpen = 0, 0
	instrumented.inserts, instrumented.faults = 0, nil
}

// armFault arms a one-shot |code| failure of the |failAt|'th INSERT,
// counted from this call.
func armFault(failAt int, code sqlite3.ErrNo) {
	armFaults(map[int]sqlite3.ErrNo{failAt: code})
}

func armFaults(faults map[int]sqlite3.ErrNo) {
	instrumented.mu.Lock()
	defer instrumented.mu.Unlock()

	instrumented.inserts, instrumented.faults = 0, faults
}

func maxConcurrentOpens() int {
	instrumented.mu.Lock()
	defer instrumented.mu.Unlock()
	return instrumented.maxOpen
}

// openInstrumented is an OpenDB factory routed through the instrumented
// driver. It otherwise matches the default SQLite factory.
func openInstrumented(cfg Config) (*sql.DB, error) {
	var db, err = sql.Open("sqlite3-instrumented", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func init() {
	sql.Register("sqlite3-instrumented", instrumentedDriver{})
}

type instrumentedDriver struct{}

func (instrumentedDriver) Open(dsn string) (driver.Conn, error) {
	var conn, err = (&sqlite3.SQLiteDriver{}).Open(dsn)
	if err != nil {
		return nil, err
	}
	instrumented.mu.Lock()
	instrumented.open++
	if instrumented.open > instrumented.maxOpen {
		instrumented.maxOpen = instrumented.open
	}
	instrumented.mu.Unlock()

	return &instrumentedConn{conn: conn.(*sqlite3.SQLiteConn)}, nil
}

// instrumentedConn implements only driver.Conn, so that database/sql routes
// every statement through Prepare and the wrapper sees each execution.
type instrumentedConn struct {
	conn *sqlite3.SQLiteConn
}

func (c *instrumentedConn) Prepare(query string) (driver.Stmt, error) {
	var stmt, err = c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &instrumentedStmt{
		Stmt:     stmt,
		isInsert: strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT"),
	}, nil
}

func (c *instrumentedConn) Begin() (driver.Tx, error) { return c.conn.Begin() }

func (c *instrumentedConn) Close() error {
	instrumented.mu.Lock()
	instrumented.open--
	instrumented.mu.Unlock()
	return c.conn.Close()
}

type instrumentedStmt struct {
	driver.Stmt
	isInsert bool
}

func (s *instrumentedStmt) Exec(args []driver.Value) (driver.Result, error) {
	if s.isInsert {
		instrumented.mu.Lock()
		instrumented.inserts++

		if code, ok := instrumented.faults[instrumented.inserts]; ok {
			delete(instrumented.faults, instrumented.inserts) // Fire once.
			instrumented.mu.Unlock()
			return nil, sqlite3.Error{Code: code}
		}
		instrumented.mu.Unlock()
	}
	return s.Stmt.Exec(args)
}
