package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics: compile, query, render and export.
var (
	EntriesRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entrydex",
			Name:      "entries_rendered_total",
			Help:      "Total number of entries rendered",
		},
		[]string{"format"},
	)

	ExportRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entrydex",
			Name:      "export_rows_total",
			Help:      "Total number of CSV/TSV rows written, header excluded",
		},
		[]string{"format"},
	)

	FieldDecodeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entrydex",
			Name:      "field_decode_errors_total",
			Help:      "Stored field values that failed to decode and were emitted raw",
		},
		[]string{"field_type"},
	)

	UnknownFieldTypesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entrydex",
			Name:      "unknown_field_types_total",
			Help:      "Search fields skipped because their input type is not registered",
		},
		[]string{"type"},
	)

	FiltersDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entrydex",
			Name:      "filters_dropped_total",
			Help:      "Search parameters dropped during compilation",
		},
		[]string{"reason"}, // "invalid_choice" / "invalid_value"
	)

	AccessDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entrydex",
			Name:      "access_denied_total",
			Help:      "View access denials by reason code",
		},
		[]string{"reason"},
	)

	StoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "entrydex",
			Name:      "store_query_duration_seconds",
			Help:      "Entry store query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op", "status"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(EntriesRenderedTotal)
	prometheus.MustRegister(ExportRowsTotal)
	prometheus.MustRegister(FieldDecodeErrorsTotal)
	prometheus.MustRegister(UnknownFieldTypesTotal)
	prometheus.MustRegister(FiltersDroppedTotal)
	prometheus.MustRegister(AccessDeniedTotal)
	prometheus.MustRegister(StoreQueryDuration)
	pipelineMetricsRegistered = true
}
