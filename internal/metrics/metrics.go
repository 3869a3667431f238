package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Ledger
	LedgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Committed ledger mutations",
		},
		[]string{"direction", "purpose"},
	)
	LedgerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_failures_total",
			Help: "Rejected or aborted ledger mutations by reason",
		},
		[]string{"reason"},
	)

	// Pending actions
	PendingIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pending_actions_issued_total",
			Help: "One-time codes issued for withdrawals and transfers",
		},
	)
	PendingConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pending_actions_consumed_total",
			Help: "One-time codes consumed by a successful engine hand-off",
		},
	)

	// Scheduler
	SchedulerRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Recurring-charge scheduler batch runs",
		},
	)
	SchedulerCharges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_charges_total",
			Help: "Recurring charges handed to a gateway",
		},
	)
	SchedulerSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_skips_total",
			Help: "Plans skipped by the scheduler, by reason",
		},
		[]string{"reason"},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(LedgerOps)
	prometheus.MustRegister(LedgerFailures)
	prometheus.MustRegister(PendingIssued)
	prometheus.MustRegister(PendingConsumed)
	prometheus.MustRegister(SchedulerRuns)
	prometheus.MustRegister(SchedulerCharges)
	prometheus.MustRegister(SchedulerSkips)
	prometheus.MustRegister(WorkerQueueDepth)
}
