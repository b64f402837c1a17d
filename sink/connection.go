package sink

import (
	"database/sql"
	"net/url"

	_ "github.com/mattn/go-sqlite3" // Registers the "sqlite3" driver.
)

// openSQLite is the default connection factory of a Sink. It opens a fresh
// connection to the configured data file, creating the file if it doesn't
// exist, and fails if the path is inaccessible or the credential is wrong.
// The caller owns the returned DB and must Close it when its flush completes.
func openSQLite(cfg Config) (*sql.DB, error) {
	var db, err = sql.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, err
	}
	// One connection at a time: the write path is strictly serialized, and
	// SQLite doesn't handle connection concurrency well regardless.
	db.SetMaxOpenConns(1)

	// sql.Open defers work until first use. Ping now, so that an
	// inaccessible path or bad credential surfaces here rather than
	// mid-transaction.
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// DSN maps the Config to a SQLite connection URI.
func (cfg Config) DSN() string {
	var v = make(url.Values)
	v.Set("mode", "rwc")
	v.Set("_busy_timeout", "5000")

	if cfg.Password != "" {
		// Requires a driver built with the sqlite_userauth tag; with a stock
		// build these parameters are accepted and ignored, matching an
		// unencrypted file.
		v.Set("_auth", "")
		v.Set("_auth_user", "sqlog")
		v.Set("_auth_pass", cfg.Password)
	}
	return "file:" + cfg.Path + "?" + v.Encode()
}
