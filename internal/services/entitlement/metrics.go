package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// gateChecksTotal счётчик исходов гейта по причинам
// (allowed, user_not_found, duplicate_login и т.д.).
var gateChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "appgate",
	Name:      "gate_checks_total",
	Help:      "Gate check outcomes by reason.",
}, []string{"reason"})
