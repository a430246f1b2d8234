package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BytesHashedTotal counts bytes fed through the checksum engine
	BytesHashedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetsum_bytes_hashed_total",
			Help: "Total number of bytes checksummed",
		},
		[]string{"source"},
	)

	// ChecksumRequestsTotal counts checksum API requests
	ChecksumRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetsum_checksum_requests_total",
			Help: "Total number of checksum requests",
		},
		[]string{"endpoint"},
	)

	// AssetsIndexed gauge for assets in the index
	AssetsIndexed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assetsum_assets_indexed",
			Help: "Number of assets in the index",
		},
	)

	// ScanChangesTotal counts index changes found by scans
	ScanChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetsum_scan_changes_total",
			Help: "Total number of assets added, changed or removed by scans",
		},
		[]string{"change"},
	)

	// ScanDuration observes how long a scan takes
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assetsum_scan_duration_seconds",
			Help:    "Duration of asset tree scans",
			Buckets: prometheus.DefBuckets,
		},
	)

	// VerifyMismatchesTotal counts assets whose content no longer matches
	VerifyMismatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assetsum_verify_mismatches_total",
			Help: "Total number of assets that failed verification",
		},
	)

	// JournalSegments gauge for journal segment count
	JournalSegments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assetsum_journal_segments",
			Help: "Number of journal segments",
		},
	)

	// JournalSize gauge for total journal size
	JournalSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assetsum_journal_size_bytes",
			Help: "Total size of the journal in bytes",
		},
	)

	// RateLimitRejections counts rate limit rejections
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assetsum_rate_limit_rejections_total",
			Help: "Total number of requests rejected due to rate limiting",
		},
	)
)
