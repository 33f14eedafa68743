package stock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	movementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cambios_stock_movements_total",
		Help: "Movimientos de stock aplicados, por tipo.",
	}, []string{"type"})

	allocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cambios_stock_allocations_total",
		Help: "Resultados del selector de denominaciones.",
	}, []string{"outcome"})

	allocationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cambios_stock_allocation_duration_seconds",
		Help:    "Latencia del selector de denominaciones.",
		Buckets: prometheus.DefBuckets,
	})

	contentionTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cambios_stock_lock_contention_total",
		Help: "Operaciones rechazadas por timeout de lock.",
	})
)
