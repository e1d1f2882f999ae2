// SPDX-License-Identifier: MIT

// Package metrics exposes assistbridge business metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Routine pipeline metrics
	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistbridge_pipeline_runs_total",
		Help: "Routine pipeline runs by outcome",
	}, []string{"outcome"}) // outcome=success|partial|failure

	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assistbridge_pipeline_duration_seconds",
		Help:    "Duration of routine pipeline runs in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2.0, 12),
	})

	routinesGenerated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assistbridge_routines_generated",
		Help: "Number of routines generated during the last pipeline run",
	})

	llmRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistbridge_llm_requests_total",
		Help: "Completion requests toward the text-generation endpoint by status",
	}, []string{"status"}) // status=success|error|cached

	// Warehouse metrics
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistbridge_warehouse_queries_total",
		Help: "Warehouse query executions by outcome",
	}, []string{"outcome"}) // outcome=success|rejected|failure

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assistbridge_warehouse_query_duration_seconds",
		Help:    "Warehouse query execution time in seconds",
		Buckets: prometheus.DefBuckets,
	})

	queryRowsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assistbridge_warehouse_rows_returned",
		Help:    "Rows returned per warehouse query",
		Buckets: prometheus.ExponentialBuckets(1, 10, 7),
	})

	// Blobstore metrics
	blobUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistbridge_blob_uploads_total",
		Help: "Blob uploads by outcome",
	}, []string{"outcome"})

	blobBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistbridge_blob_bytes_written_total",
		Help: "Total bytes written to the object store",
	})

	presignedIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistbridge_presigned_urls_issued_total",
		Help: "Presigned download URLs minted",
	})

	presignedDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistbridge_presigned_denied_total",
		Help: "Presigned downloads rejected by reason",
	}, []string{"reason"}) // reason=expired|signature|not_found
)

func IncPipelineRun(outcome string)   { pipelineRuns.WithLabelValues(outcome).Inc() }
func ObservePipeline(d time.Duration) { pipelineDuration.Observe(d.Seconds()) }
func RecordRoutinesGenerated(n int)   { routinesGenerated.Set(float64(n)) }
func IncLLMRequest(status string)     { llmRequestsTotal.WithLabelValues(status).Inc() }

func IncQuery(outcome string)      { queriesTotal.WithLabelValues(outcome).Inc() }
func ObserveQuery(d time.Duration) { queryDuration.Observe(d.Seconds()) }
func ObserveQueryRows(rows int)    { queryRowsReturned.Observe(float64(rows)) }

func IncBlobUpload(outcome string)     { blobUploadsTotal.WithLabelValues(outcome).Inc() }
func AddBlobBytes(n int)               { blobBytesWritten.Add(float64(n)) }
func IncPresignedIssued()              { presignedIssued.Inc() }
func IncPresignedDenied(reason string) { presignedDenied.WithLabelValues(reason).Inc() }
