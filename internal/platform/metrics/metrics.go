// Package metrics registers the Prometheus instruments for the periodic
// workers. Cycle counters expose throughput, the error counters feed alerting
// on silent per-item failures that never abort a batch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AllocatorCycles counts completed allocator polling cycles.
	AllocatorCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "allocator_cycles_total",
		Help: "Completed job allocator polling cycles.",
	})

	// AllocationsCreated counts allocations created by the allocator.
	AllocationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "allocations_created_total",
		Help: "Allocations created by the job allocator.",
	})

	// AllocatorItemErrors counts per-job failures inside allocator cycles.
	AllocatorItemErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "allocator_item_errors_total",
		Help: "Per-job errors swallowed by the allocator batch loop.",
	})

	// StatsApplied counts allocations whose revenue and count reached the
	// shop counters.
	StatsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stats_allocations_counted_total",
		Help: "Completed allocations applied to shop counters exactly once.",
	})

	// StatsReleased counts claims released after a failed increment.
	StatsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stats_claims_released_total",
		Help: "Aggregator claims released for retry after a failure.",
	})

	// RollupsPerformed counts bucket compactions by target granularity.
	RollupsPerformed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenue_rollups_total",
		Help: "Revenue bucket compactions performed.",
	}, []string{"granularity"})

	// PrintersReconciled counts pending-off printers flipped to off.
	PrintersReconciled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printers_drained_off_total",
		Help: "Printers moved from pending-off to off by the reconciler.",
	})

	// PendingJobs is the pending job backlog observed at the last cycle.
	PendingJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "allocator_pending_jobs",
		Help: "Pending jobs seen by the most recent allocator cycle.",
	})
)
