// Package metrics defines and registers all custom Prometheus metrics for
// the taskhive API. It is the single source of truth for metric names,
// labels, and help strings. Request-level metrics (latency, status codes)
// come from the echoprometheus middleware; only domain counters live here.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskhive"

// TasksCreatedTotal counts newly created tasks.
// Label:
//   - priority: "low", "medium", or "high"
var TasksCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_created_total",
		Help:      "Total number of tasks created, by priority.",
	},
	[]string{"priority"},
)

// TasksAssignedTotal counts successful assignment operations.
var TasksAssignedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_assigned_total",
		Help:      "Total number of task assignments performed by admins.",
	},
)

// PolicyDenialsTotal counts requests rejected by the authorization policy
// after authentication succeeded.
// Label:
//   - operation: the denied operation ("update", "delete", "assign", ...)
var PolicyDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "policy_denials_total",
		Help:      "Total number of operations denied by the authorization policy.",
	},
	[]string{"operation"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)
