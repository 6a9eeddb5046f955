package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks store and sync operation counters for a syncdbd process.
type Metrics struct {
	DocsCreated        prometheus.Counter
	DocsPut            prometheus.Counter
	DocsDeleted        prometheus.Counter
	DocsResolved       prometheus.Counter
	RevisionConflicts  prometheus.Counter
	SyncExchanges      prometheus.Counter
	SyncExchangeErrors prometheus.Counter
	SyncExchangeDur    prometheus.Histogram
	DocsSent           prometheus.Counter
	DocsReceived       prometheus.Counter
	ActiveConnections  prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		DocsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncdb_docs_created_total",
			Help: "Total number of documents created",
		}),
		DocsPut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncdb_docs_put_total",
			Help: "Total number of document revisions written",
		}),
		DocsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncdb_docs_deleted_total",
			Help: "Total number of documents tombstoned",
		}),
		DocsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncdb_docs_resolved_total",
			Help: "Total number of conflict resolutions applied",
		}),
		RevisionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncdb_revision_conflicts_total",
			Help: "Total number of conflicts recorded during put_doc_if_newer",
		}),
		SyncExchanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncdb_sync_exchanges_total",
			Help: "Total number of sync_exchange calls served",
		}),
		SyncExchangeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncdb_sync_exchange_errors_total",
			Help: "Total number of sync_exchange calls that returned an error",
		}),
		SyncExchangeDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "syncdb_sync_exchange_duration_seconds",
			Help:    "Time taken to complete a sync_exchange",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		DocsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncdb_docs_sent_total",
			Help: "Total number of documents streamed out during sync",
		}),
		DocsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "syncdb_docs_received_total",
			Help: "Total number of documents ingested during sync",
		}),
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "syncdb_active_connections",
			Help: "Number of active HTTP sync connections",
		}),
	}
}
