package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// baseColumns is the record column set, excluding the identity column.
// All columns are textual; the identity column alone is an integer.
var baseColumns = []string{
	"Timestamp TEXT",
	"Level VARCHAR(10)",
	"Exception TEXT",
	"MessageTemplate TEXT",
	"RenderedMessage TEXT",
	"Properties TEXT",
}

// callerColumns extends baseColumns when the sink is configured with
// caller-site metadata.
var callerColumns = []string{
	"ClassName TEXT",
	"MethodName TEXT",
	"LineNumber TEXT",
}

// schemaSQL returns the idempotent provisioning statement of the table.
// It never alters an existing table: a pre-existing table with a mismatched
// schema is accepted as-is, and surfaces only as an insert failure.
func schemaSQL(cfg Config) string {
	var columns = append([]string{"id INTEGER PRIMARY KEY AUTOINCREMENT"}, baseColumns...)
	if cfg.CallerInfo {
		columns = append(columns, callerColumns...)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n);",
		cfg.Table, strings.Join(columns, ",\n\t"))
}

// ensureSchema provisions the record table. It's cheap and side-effect-free
// when the table already exists, and is safe to call on every open.
func ensureSchema(db *sql.DB, cfg Config) error {
	var _, err = db.Exec(schemaSQL(cfg))
	return errors.WithMessagef(err, "provisioning table %s", cfg.Table)
}
