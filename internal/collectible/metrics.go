// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package collectible

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Action and status label values for collectible metrics.
const (
	actionCreate = "create"
	actionMint   = "mint"
	actionBurn   = "burn"
	actionGift   = "gift"

	statusSuccess      = "success"
	statusInvalid      = "invalid"
	statusDenied       = "denied"
	statusInsufficient = "insufficient"
	statusError        = "error"
)

// transitions counts collectible lifecycle operations by action and
// outcome. Use RegisterMetrics to register this with a Prometheus registry.
var transitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "moodvault_collectible_transitions_total",
		Help: "Total number of collectible lifecycle operations by action and outcome",
	},
	[]string{"action", "status"},
)

// RegisterMetrics registers collectible package metrics with the given
// Prometheus registry. Call once at startup. Panics if registration fails
// (prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(transitions)
}

func recordTransition(action, status string) {
	transitions.WithLabelValues(action, status).Inc()
}
