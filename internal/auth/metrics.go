// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodvault Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status label values for auth metrics.
const (
	statusSuccess   = "success"
	statusInvalid   = "invalid"
	statusDuplicate = "duplicate"
	statusLocked    = "locked"
	statusError     = "error"
)

// loginAttempts counts login outcomes. Use RegisterMetrics to register this
// with a Prometheus registry.
var loginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "moodvault_login_attempts_total",
		Help: "Total number of login attempts by outcome",
	},
	[]string{"status"},
)

// registrations counts registration outcomes. Use RegisterMetrics to
// register this with a Prometheus registry.
var registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "moodvault_registrations_total",
		Help: "Total number of registration attempts by outcome",
	},
	[]string{"status"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus
// registry. Call once at startup. Panics if registration fails (prometheus
// convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(loginAttempts)
	reg.MustRegister(registrations)
}

func recordLogin(status string) {
	loginAttempts.WithLabelValues(status).Inc()
}

func recordRegistration(status string) {
	registrations.WithLabelValues(status).Inc()
}
