package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "spinearn"

var (
	SpinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spins_total",
			Help:      "Spin protocol calls by phase and result.",
		},
		[]string{"phase", "result"}, // phase: start/confirm
	)

	GrantedCoinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "granted_coins_total",
			Help:      "Coins credited through reward grants.",
		},
		[]string{"reason"},
	)

	DebitedCoinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debited_coins_total",
			Help:      "Coins debited from wallets.",
		},
		[]string{"origin"},
	)

	WithdrawalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawals_total",
			Help:      "Withdrawal requests by resulting status.",
		},
		[]string{"status"},
	)

	LedgerDriftUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_drift_users",
			Help:      "Users whose balance differs from their wallet ledger at the last reconciliation.",
		},
	)

	RateLimitBlockTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_block_total",
			Help:      "Requests rejected by the rate limiter.",
		},
		[]string{"route"},
	)

	TxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of ledger-affecting operations.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		SpinsTotal,
		GrantedCoinsTotal,
		DebitedCoinsTotal,
		WithdrawalsTotal,
		LedgerDriftUsers,
		RateLimitBlockTotal,
		TxDuration,
	)
}

// Result labels an operation outcome for counters.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
