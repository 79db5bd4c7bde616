package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_orders_created_total",
		Help: "Total number of orders successfully created.",
	})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_order_transitions_total",
		Help: "Total number of successful order status transitions.",
	},
		[]string{"event"},
	)

	ClaimsLostTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_claims_lost_total",
		Help: "Total number of driver claims lost to another driver.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	RealtimeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "delivery_realtime_subscribers",
		Help: "Current number of realtime change-feed subscribers.",
	})
)
