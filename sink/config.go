package sink

import (
	"github.com/pkg/errors"
)

// Config configures a Sink.
type Config struct {
	Path       string `long:"path" env:"PATH" description:"Path of the SQLite data file. Created if it doesn't exist"`
	Table      string `long:"table" env:"TABLE" default:"Logs" description:"Name of the table receiving log records"`
	Password   string `long:"password" env:"PASSWORD" default:"" description:"Optional credential the data file is keyed with. Empty means unencrypted"`
	UTC        bool   `long:"utc" env:"UTC" description:"Store record timestamps in UTC rather than local time"`
	CallerInfo bool   `long:"caller-info" env:"CALLER_INFO" description:"Extend the record schema with caller-site columns"`
	NoRollover bool   `long:"no-rollover" env:"NO_ROLLOVER" description:"Discard batches rather than archive and truncate the data file when it reaches its size limit"`
}

// Validate returns an error if the Config is malformed.
func (cfg Config) Validate() error {
	if cfg.Path == "" {
		return errors.New("Path cannot be empty")
	} else if cfg.Table == "" {
		return errors.New("Table cannot be empty")
	}
	return nil
}
