package templog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "templog_samples_written_total",
		Help: "Samples appended to the store.",
	})

	queryErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "templog_query_errors_total",
		Help: "Instrument queries that timed out or returned garbage.",
	})

	writeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "templog_write_errors_total",
		Help: "Store inserts that failed.",
	})
)
