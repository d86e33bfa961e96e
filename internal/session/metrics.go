package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var recoveryOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "farms",
	Subsystem: "session",
	Name:      "recovery_total",
	Help:      "Session recovery attempts by outcome.",
}, []string{"outcome"})
