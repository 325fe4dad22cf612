package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes scheduler queue and pool depths as Prometheus gauges.
type Metrics struct {
	WaitingTasks    prometheus.Gauge
	DispatchTasks   prometheus.Gauge
	Workers         prometheus.Gauge
	IdleWorkers     prometheus.Gauge
	Reconstructions prometheus.Counter
	TasksAssigned   prometheus.Counter
	TasksDone       prometheus.Counter
	TasksFailed     prometheus.Counter
}

// NewMetrics builds the gauge set and registers it with reg. Pass a fresh
// registry in tests to avoid duplicate-collector panics.
func NewMetrics(reg prometheus.Registerer, nodeID string) *Metrics {
	labels := prometheus.Labels{"node_id": nodeID}
	m := &Metrics{
		WaitingTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "scheduler_waiting_tasks",
			Help:        "Tasks parked with unmet object dependencies.",
			ConstLabels: labels,
		}),
		DispatchTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "scheduler_dispatch_tasks",
			Help:        "Tasks ready to run, waiting for an idle worker.",
			ConstLabels: labels,
		}),
		Workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "scheduler_registered_workers",
			Help:        "Worker processes registered with this scheduler.",
			ConstLabels: labels,
		}),
		IdleWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "scheduler_idle_workers",
			Help:        "Registered workers with no assignment.",
			ConstLabels: labels,
		}),
		Reconstructions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "scheduler_reconstructions_total",
			Help:        "Reconstruction attempts that resubmitted a task.",
			ConstLabels: labels,
		}),
		TasksAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "scheduler_tasks_assigned_total",
			Help:        "Tasks handed to a worker.",
			ConstLabels: labels,
		}),
		TasksDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "scheduler_tasks_done_total",
			Help:        "Tasks reported finished by workers.",
			ConstLabels: labels,
		}),
		TasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "scheduler_tasks_failed_total",
			Help:        "Tasks reported failed by workers.",
			ConstLabels: labels,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.WaitingTasks, m.DispatchTasks, m.Workers, m.IdleWorkers,
			m.Reconstructions, m.TasksAssigned, m.TasksDone, m.TasksFailed,
		)
	}
	return m
}
