// Package metrics exposes the pipeline's Prometheus counters.
//
// Metric names keep the ones operators already scrape from the extractor,
// ingestor and transformer (api_requests_success_total and friends); the
// pipeline adds per-kind sink failures, row counts and batch latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the services record. It registers against
// the registry it is given, never the global default.
type Collector struct {
	apiRequestsSuccess   prometheus.Counter
	apiRequestsFailure   prometheus.Counter
	transformationErrors prometheus.Counter
	transformSuccess     prometheus.Counter
	transformFailure     prometheus.Counter
	dbInsertSuccess      prometheus.Counter
	dbInsertFailure      prometheus.Counter
	dbConnections        prometheus.Counter
	serviceErrors        prometheus.Counter
	appStarts            prometheus.Counter
	datalakeWrites       prometheus.Counter

	sinkWriteFailures *prometheus.CounterVec
	rowsWritten       *prometheus.CounterVec

	batchLatency       prometheus.Histogram
	outstandingBatches prometheus.Gauge
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
}

// NewCollector creates the collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiRequestsSuccess:   counter("api_requests_success_total", "Number of successful API requests"),
		apiRequestsFailure:   counter("api_requests_failure_total", "Number of failed API requests"),
		transformationErrors: counter("transformation_errors_total", "Number of records that failed to transform"),
		transformSuccess:     counter("transform_success_total", "Number of raw batches fully materialized"),
		transformFailure:     counter("transform_failure_total", "Number of raw batches that failed to materialize"),
		dbInsertSuccess:      counter("db_insert_success_total", "Number of successful database inserts"),
		dbInsertFailure:      counter("db_insert_failure_total", "Number of failed database inserts"),
		dbConnections:        counter("db_connections_total", "Number of times a connection to the database was established"),
		serviceErrors:        counter("service_errors_total", "Number of service-level errors"),
		appStarts:            counter("app_starts_total", "Number of times the application has started"),
		datalakeWrites:       counter("datalake_writes_total", "Number of raw batch files written"),

		sinkWriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sink_write_failures_total",
			Help: "Number of failed processed file writes per kind",
		}, []string{"kind"}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "processed_rows_total",
			Help: "Number of processed rows appended per kind",
		}, []string{"kind"}),

		batchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transform_batch_duration_seconds",
			Help:    "Time spent processing one raw batch",
			Buckets: prometheus.DefBuckets,
		}),
		outstandingBatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outstanding_batches",
			Help: "Raw batches still missing at least one processed file, as of the last scan",
		}),
	}

	reg.MustRegister(
		c.apiRequestsSuccess,
		c.apiRequestsFailure,
		c.transformationErrors,
		c.transformSuccess,
		c.transformFailure,
		c.dbInsertSuccess,
		c.dbInsertFailure,
		c.dbConnections,
		c.serviceErrors,
		c.appStarts,
		c.datalakeWrites,
		c.sinkWriteFailures,
		c.rowsWritten,
		c.batchLatency,
		c.outstandingBatches,
	)
	return c
}

func (c *Collector) RecordAPIRequest(ok bool) {
	if ok {
		c.apiRequestsSuccess.Inc()
		return
	}
	c.apiRequestsFailure.Inc()
}

func (c *Collector) RecordTransformationError() {
	c.transformationErrors.Inc()
}

// RecordBatch records the outcome of one raw batch.
func (c *Collector) RecordBatch(complete bool, seconds float64) {
	if complete {
		c.transformSuccess.Inc()
	} else {
		c.transformFailure.Inc()
	}
	c.batchLatency.Observe(seconds)
}

func (c *Collector) RecordSinkWrite(kind string, rows int) {
	c.rowsWritten.WithLabelValues(kind).Add(float64(rows))
}

func (c *Collector) RecordSinkFailure(kind string) {
	c.sinkWriteFailures.WithLabelValues(kind).Inc()
}

// RecordDBInserts counts rows committed to the database.
func (c *Collector) RecordDBInserts(n int) {
	c.dbInsertSuccess.Add(float64(n))
}

// RecordDBInsertFailure counts a record or commit that did not reach the database.
func (c *Collector) RecordDBInsertFailure() {
	c.dbInsertFailure.Inc()
}

func (c *Collector) RecordDBConnection() {
	c.dbConnections.Inc()
}

func (c *Collector) RecordServiceError() {
	c.serviceErrors.Inc()
}

func (c *Collector) RecordAppStart() {
	c.appStarts.Inc()
}

func (c *Collector) RecordDatalakeWrite() {
	c.datalakeWrites.Inc()
}

func (c *Collector) SetOutstanding(n int) {
	c.outstandingBatches.Set(float64(n))
}

// Handler serves the metrics in g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
