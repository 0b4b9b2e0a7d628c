package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Contadores de domínio do núcleo de apostas, expostos via /metrics.
var (
	BetsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wager_bets_created_total",
			Help: "Apostas criadas",
		},
	)

	BetsAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wager_bets_accepted_total",
			Help: "Apostas aceitas",
		},
	)

	BetsCancelledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wager_bets_cancelled_total",
			Help: "Apostas canceladas, por origem",
		},
		[]string{"source"}, // user | sweeper | settlement
	)

	SettlementsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wager_settlements_total",
			Help: "Liquidações de confrontos processadas",
		},
	)

	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wager_http_errors_total",
			Help: "Erros retornados pela API, por motivo",
		},
		[]string{"reason"},
	)
)
