package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pool metrics
	PoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftswap_pool_count",
		Help: "Total number of registered pools",
	})

	PoolNFTCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nftswap_pool_nft_count",
			Help: "NFTs held by each pool as of the last refresh",
		},
		[]string{"collection"},
	)

	CapabilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftswap_capability_checks_total",
			Help: "Swap capability evaluations by outcome reason",
		},
		[]string{"reason"},
	)

	// Swap metrics
	SwapRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftswap_swap_requests_total",
			Help: "Total number of swap attempts by final state and error kind",
		},
		[]string{"phase", "status", "kind"},
	)

	SwapDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nftswap_swap_duration_seconds",
			Help:    "Swap phase duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"phase"},
	)

	SwapFeesLamports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftswap_swap_fees_lamports_total",
		Help: "Fees charged by confirmed swaps, in lamports",
	})

	FeeVerificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftswap_fee_verification_failures_total",
		Help: "Confirmed swaps whose fee could not be verified on chain",
	})

	TransactionSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nftswap_transaction_size_bytes",
		Help:    "Serialized size of built swap transactions",
		Buckets: []float64{300, 500, 700, 900, 1000, 1100, 1232},
	})

	PreparedSwapCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftswap_prepared_swap_cache_size",
		Help: "Current number of prepared swaps awaiting a wallet signature",
	})

	// Chain metrics
	BlockhashRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftswap_blockhash_refreshes_total",
			Help: "Blockhash cache refreshes by outcome",
		},
		[]string{"status"},
	)

	// Security metrics
	SecurityEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftswap_security_events_total",
			Help: "Security events recorded by type and severity",
		},
		[]string{"type", "severity"},
	)

	SecurityAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftswap_security_alerts_total",
			Help: "Security alerts raised after a threshold was crossed",
		},
		[]string{"type"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftswap_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"scope"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftswap_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nftswap_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
