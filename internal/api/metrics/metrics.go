// Package metrics defines and registers all custom Prometheus metrics for the
// user directory API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto) and exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "userdir"

// ── Auth flow metrics ────────────────────────────────────────────────────────

// AuthOperationsTotal counts auth flow outcomes.
// Labels:
//   - operation: "signup", "login", "update_password", "logout"
//   - result: "success", "invalid", "conflict", "unauthorized", "not_found", "error"
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of auth flow invocations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// TokensIssuedTotal counts bearer tokens minted.
// Label:
//   - operation: the flow that issued the token ("login", "update_password")
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of bearer tokens issued.",
	},
	[]string{"operation"},
)

// PasswordHashDuration measures bcrypt hashing time.
var PasswordHashDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hashing.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
)

// ── Route guard metrics ──────────────────────────────────────────────────────

// GuardDecisionsTotal counts route guard decisions on protected paths.
// Label:
//   - decision: "allow", "enrich", "deny"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions on protected paths.",
	},
	[]string{"decision"},
)

// ── Directory metrics ────────────────────────────────────────────────────────

// DirectoryCacheTotal counts directory cache lookups.
// Label:
//   - result: "hit", "miss", "error"
var DirectoryCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directory_cache_total",
		Help:      "Total number of directory cache lookups, labelled by result.",
	},
	[]string{"result"},
)
