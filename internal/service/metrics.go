package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the ingestion pipeline
type Metrics struct {
	EventsUpserted *prometheus.CounterVec
	RecordsFailed  *prometheus.CounterVec
	EventsArchived *prometheus.CounterVec
	ArchivePurged  prometheus.Counter
	RemovedPurged  prometheus.Counter
	UnseenRows     *prometheus.GaugeVec
	CycleDuration  *prometheus.SummaryVec
}

// NewMetrics creates the pipeline collectors and registers them
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statehouse",
			Name:      "events_upserted_total",
			Help:      "Events successfully upserted, by source",
		}, []string{"source"}),
		RecordsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statehouse",
			Name:      "records_failed_total",
			Help:      "Scraped records that failed to upsert, by source",
		}, []string{"source"}),
		EventsArchived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statehouse",
			Name:      "events_archived_total",
			Help:      "Events archived after going stale, by source",
		}, []string{"source"}),
		ArchivePurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statehouse",
			Name:      "archive_rows_purged_total",
			Help:      "Archive copies physically deleted by the retention sweep",
		}),
		RemovedPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statehouse",
			Name:      "removed_rows_purged_total",
			Help:      "Soft-removed live rows physically deleted by the retention sweep",
		}),
		UnseenRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "statehouse",
			Name:      "unseen_rows",
			Help:      "Rows whose absence counter advanced in the latest cycle, by source",
		}, []string{"source"}),
		CycleDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: "statehouse",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of a full scrape cycle, by source",
		}, []string{"source"}),
	}

	reg.MustRegister(
		m.EventsUpserted,
		m.RecordsFailed,
		m.EventsArchived,
		m.ArchivePurged,
		m.RemovedPurged,
		m.UnseenRows,
		m.CycleDuration,
	)

	return m
}
