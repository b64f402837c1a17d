package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors for the sink write path.
var (
	RecordsCommittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlog_records_committed_total",
		Help: "Cumulative number of log records committed to the data file.",
	})
	BatchesCommittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlog_batches_committed_total",
		Help: "Cumulative number of batches committed to the data file.",
	})
	BatchesDiscardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlog_batches_discarded_total",
		Help: "Cumulative number of batches discarded because the data file was full and rollover is disabled.",
	})
	RolloversTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlog_rollovers_total",
		Help: "Cumulative number of archive-and-truncate recoveries of the data file.",
	})
	StorageErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlog_storage_errors_total",
		Help: "Cumulative number of write attempts which failed with a storage error.",
	})
	WriteDurationTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlog_write_duration_seconds_total",
		Help: "Cumulative number of seconds spent writing batches.",
	})
)

// Collectors for the record buffer.
var (
	RecordsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqlog_records_dropped_total",
		Help: "Cumulative number of records dropped because the buffer was saturated.",
	})
)

func SinkCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		RecordsCommittedTotal,
		BatchesCommittedTotal,
		BatchesDiscardedTotal,
		RolloversTotal,
		StorageErrorsTotal,
		WriteDurationTotal,
	}
}

func BufferCollectors() []prometheus.Collector {
	return []prometheus.Collector{RecordsDroppedTotal}
}
