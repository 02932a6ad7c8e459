// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status label values for ledger metrics.
const (
	statusSuccess      = "success"
	statusInvalid      = "invalid"
	statusInsufficient = "insufficient"
	statusError        = "error"
)

// operations counts ledger mutations by reason and outcome. Use
// RegisterMetrics to register this with a Prometheus registry.
var operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "moodvault_ledger_operations_total",
		Help: "Total number of ledger operations by reason and outcome",
	},
	[]string{"reason", "status"},
)

// RegisterMetrics registers ledger package metrics with the given Prometheus
// registry. Call once at startup. Panics if registration fails (prometheus
// convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(operations)
}

func recordOperation(reason Reason, status string) {
	operations.WithLabelValues(string(reason), status).Inc()
}
