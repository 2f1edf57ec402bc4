package services

import (
	"github.com/ahmetcoskunkizilkaya/realty-crm/internal/apperr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var leadOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "crm_lead_operations_total",
	Help: "Lead operations by name and outcome.",
}, []string{"operation", "result"})

func recordOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = string(apperr.CodeOf(err))
		if result == "" {
			result = "error"
		}
	}
	leadOperationsTotal.WithLabelValues(operation, result).Inc()
}
