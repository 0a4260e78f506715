package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vehicle_control_dispatch_success_total",
		Help: "Total number of control commands accepted by the remote gateway.",
	})
	dispatchFallback = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vehicle_control_dispatch_fallback_total",
		Help: "Total number of control commands served by the fallback simulator.",
	})
	dispatchFailure = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vehicle_control_dispatch_failure_total",
		Help: "Total number of control commands that failed outright.",
	})
	statusFallback = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vehicle_control_status_fallback_total",
		Help: "Total number of status reads served by the fallback simulator.",
	})
)
