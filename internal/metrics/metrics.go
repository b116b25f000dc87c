package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arkan_provider_calls_total",
			Help: "Total prayer-times provider API calls",
		},
		[]string{"endpoint", "status"},
	)

	ArchiveLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arkan_archive_lookups_total",
			Help: "Archive lookups by entry kind and outcome",
		},
		[]string{"kind", "result"},
	)

	ArchivePrunedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arkan_archive_pruned_total",
			Help: "Archive entries removed by the pruning sweep",
		},
		[]string{"kind"},
	)

	FallbackExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arkan_fallback_exhausted_total",
			Help: "Orchestrations that ran out of fallbacks and returned no data",
		},
	)

	BackupDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arkan_backup_downloads_total",
			Help: "Yearly backup download attempts by outcome",
		},
		[]string{"status"},
	)
)
