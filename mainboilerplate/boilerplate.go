// Package mainboilerplate contains shared boilerplate of this project's
// programs. It provides narrowly scoped helpers so callers don't have to
// buy in to an all-or-nothing initialization.
package mainboilerplate

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}

// InitMetrics registers |collectors| and serves prometheus metrics at
// path /metrics of |addr|.
func InitMetrics(addr string, collectors ...prometheus.Collector) {
	prometheus.MustRegister(collectors...)

	var mux = http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithFields(log.Fields{"err": err, "addr": addr}).
				Error("failed to serve metrics")
		}
	}()
}
