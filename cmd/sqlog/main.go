// sqlog tails newline-delimited log events from stdin and durably writes
// them to a SQLite data file in batches.
package main

import (
	"bufio"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"go.sqlog.dev/core/buffer"
	mbp "go.sqlog.dev/core/mainboilerplate"
	"go.sqlog.dev/core/metrics"
	"go.sqlog.dev/core/sink"
)

const iniFilename = "sqlog.ini"

var config = new(struct {
	DB      sink.Config   `group:"Storage" namespace:"db" env-namespace:"DB"`
	Batch   buffer.Config `group:"Batching" namespace:"batch" env-namespace:"BATCH"`
	Log     mbp.LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Metrics struct {
		Addr string `long:"addr" env:"ADDR" description:"If set, address to serve prometheus metrics on (eg :8080)"`
	} `group:"Metrics" namespace:"metrics" env-namespace:"METRICS"`
})

func main() {
	var parser = flags.NewParser(config, flags.Default)
	parser.LongDescription = `sqlog tails newline-delimited log events from stdin and durably writes
them to a SQLite data file in batches. Lines which parse as JSON events keep
their timestamp, level, message template and properties; any other line is
stored as an Info record stamped with the current time. When the data file
reaches its size limit it's archived and truncated in place.

Optionally configure sqlog with a '` + iniFilename + `' file in the current working
directory, or with '~/.config/sqlog/` + iniFilename + `'.`

	mbp.MustParseConfig(parser, iniFilename)
	mbp.InitLog(config.Log)

	var snk, err = sink.NewSink(config.DB)
	mbp.Must(err, "failed to open sink", "path", config.DB.Path)

	buf, err := buffer.NewBuffer(config.Batch, snk)
	mbp.Must(err, "failed to start buffer")

	if config.Metrics.Addr != "" {
		mbp.InitMetrics(config.Metrics.Addr,
			append(metrics.SinkCollectors(), metrics.BufferCollectors()...)...)
	}

	// Drain queued records on SIGINT / SIGTERM, then exit.
	var signalCh = make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		var sig = <-signalCh
		log.WithField("signal", sig).Info("caught signal; draining buffer")
		buf.Stop()
		os.Exit(0)
	}()

	var scanner = bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)

	for scanner.Scan() {
		buf.Emit(parseLine(scanner.Bytes()))
	}
	mbp.Must(scanner.Err(), "failed reading stdin")
	buf.Stop()
}
