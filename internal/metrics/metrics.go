// Package metrics объявляет счётчики prometheus, общие для сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntitlementResolutions счётчик решений резолвера по уровням кеша.
	EntitlementResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_resolutions_total",
		Help: "Entitlement resolutions by cache tier",
	}, []string{"tier"})

	// GateDecisions счётчик решений гейтов по состояниям.
	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_decisions_total",
		Help: "Feature gate decisions by state",
	}, []string{"state"})

	// ReconcileOutcomes счётчик исходов сверки с биллингом.
	ReconcileOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_outcomes_total",
		Help: "Reconciliation outcomes",
	}, []string{"outcome"})

	// CreditConsumes счётчик попыток списания кредитов.
	CreditConsumes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_consumes_total",
		Help: "Credit consume attempts by result",
	}, []string{"result"})
)
