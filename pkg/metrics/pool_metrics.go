// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the pool's internal counters and gauges through
// a Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolMetrics holds every collector a single named pool instance reports.
// One PoolMetrics is created per *concurrent.Pool, labeled by pool name, so
// multiple pools in the same process can be distinguished on scrape.
type PoolMetrics struct {
	WorkersAlive       prometheus.Gauge
	WorkersCreated     prometheus.Counter
	WorkersKilled      prometheus.Counter
	ReadyDepth         prometheus.Gauge
	DelayedDepth       prometheus.Gauge
	TasksConsumed      prometheus.Counter
	TasksRejected      prometheus.Counter
	TasksDiscarded     prometheus.Counter
	TasksPanicked      prometheus.Counter
	TasksPromoted      prometheus.Counter
	TaskWaitDuration   prometheus.Histogram
	TaskExecDuration   prometheus.Histogram
	ScaleUpEvents      prometheus.Counter
	ScaleDownEvents    prometheus.Counter
}

// NewPoolMetrics registers a fresh set of collectors labeled by pool name
// against reg. Passing prometheus.NewRegistry() (rather than the global
// DefaultRegisterer) lets tests create many pools without collector
// name collisions.
func NewPoolMetrics(reg prometheus.Registerer, poolName string) *PoolMetrics {
	constLabels := prometheus.Labels{"pool": poolName}
	m := &PoolMetrics{
		WorkersAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "threadpool", Name: "workers_alive",
			Help: "Current number of live worker goroutines.", ConstLabels: constLabels,
		}),
		WorkersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "threadpool", Name: "workers_created_total",
			Help: "Workers created since pool start.", ConstLabels: constLabels,
		}),
		WorkersKilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "threadpool", Name: "workers_killed_total",
			Help: "Workers removed since pool start.", ConstLabels: constLabels,
		}),
		ReadyDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "threadpool", Name: "ready_queue_depth",
			Help: "Tasks currently waiting in the ready queue.", ConstLabels: constLabels,
		}),
		DelayedDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "threadpool", Name: "delayed_queue_depth",
			Help: "Delayed tasks currently waiting for their deadline.", ConstLabels: constLabels,
		}),
		TasksConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "threadpool", Name: "tasks_consumed_total",
			Help: "Tasks executed to completion.", ConstLabels: constLabels,
		}),
		TasksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "threadpool", Name: "tasks_rejected_total",
			Help: "Submissions rejected (pool stopped or queue full).", ConstLabels: constLabels,
		}),
		TasksDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "threadpool", Name: "tasks_discarded_total",
			Help: "Un-run tasks destroyed by shutdown/clear.", ConstLabels: constLabels,
		}),
		TasksPanicked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "threadpool", Name: "tasks_panicked_total",
			Help: "Task bodies that panicked during execution.", ConstLabels: constLabels,
		}),
		TasksPromoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "threadpool", Name: "tasks_promoted_total",
			Help: "Delayed tasks promoted into the ready queue.", ConstLabels: constLabels,
		}),
		TaskWaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "threadpool", Name: "task_wait_duration_seconds",
			Help: "Time a task spent queued before a worker picked it up.", ConstLabels: constLabels,
			Buckets: prometheus.DefBuckets,
		}),
		TaskExecDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "threadpool", Name: "task_exec_duration_seconds",
			Help: "Time a task spent executing on a worker.", ConstLabels: constLabels,
			Buckets: prometheus.DefBuckets,
		}),
		ScaleUpEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "threadpool", Name: "scale_up_events_total",
			Help: "Controller-triggered worker additions.", ConstLabels: constLabels,
		}),
		ScaleDownEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "threadpool", Name: "scale_down_events_total",
			Help: "Controller-triggered worker removals.", ConstLabels: constLabels,
		}),
	}
	for _, c := range m.collectors() {
		reg.MustRegister(c)
	}
	return m
}

func (m *PoolMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.WorkersAlive, m.WorkersCreated, m.WorkersKilled,
		m.ReadyDepth, m.DelayedDepth,
		m.TasksConsumed, m.TasksRejected, m.TasksDiscarded, m.TasksPanicked, m.TasksPromoted,
		m.TaskWaitDuration, m.TaskExecDuration,
		m.ScaleUpEvents, m.ScaleDownEvents,
	}
}

// ObserveWait records how long a task waited between submission and a
// worker picking it up.
func (m *PoolMetrics) ObserveWait(d time.Duration) { m.TaskWaitDuration.Observe(d.Seconds()) }

// ObserveExec records how long a task spent executing.
func (m *PoolMetrics) ObserveExec(d time.Duration) { m.TaskExecDuration.Observe(d.Seconds()) }
