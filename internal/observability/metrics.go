package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain collectors. HTTP traffic is instrumented separately by
// middleware.Metrics; these track what the drop service itself does.
var (
	// DropsCreated counts persisted drops by kind and whether they are replies.
	DropsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zync_drops_created_total",
			Help: "Total number of drops created.",
		},
		[]string{"kind", "reply"},
	)

	// DropRetrievals counts retrieve attempts by kind and outcome
	// (ok, not_found, expired, denied, error).
	DropRetrievals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zync_drop_retrievals_total",
			Help: "Total number of drop retrievals by outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// RateLimitRejected counts requests refused by the rate limiter.
	RateLimitRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zync_ratelimit_rejected_total",
			Help: "Total number of requests rejected by the rate limiter.",
		},
	)

	// ReaperDeleted counts expired drops removed by the reaper.
	ReaperDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zync_reaper_deleted_total",
			Help: "Total number of expired drops deleted by the reaper.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(DropsCreated, DropRetrievals, RateLimitRejected, ReaperDeleted)
}
