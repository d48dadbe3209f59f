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

// Package concurrent implements the thread pool scheduler: task intake,
// the priority-ordered ReadyQueue, the deadline-scanned DelayedQueue, the
// elastic WorkerSet, and the Controller loop that ties them together.
package concurrent

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/icke2063/threadpool/pkg/logger"
	"github.com/icke2063/threadpool/pkg/metrics"
)

// Config configures a new Pool. Zero-value fields fall back to documented
// defaults, applied by New.
type Config struct {
	// Name tags this pool's metrics, distinguishing it from others in the
	// same process.
	Name string
	// WorkerCount is the initial number of workers, clamped to
	// [1, WorkerThreadMax]. Construction fails if not even one can be added.
	WorkerCount int
	// Manual leaves the Controller loop stopped after construction; the
	// caller must invoke StartLoop explicitly. The zero value starts the
	// loop immediately, matching a bare New(Config{}).
	Manual bool
	// Clock is the time source for the Controller, Workers, and deadline
	// comparisons. Defaults to clockwork.NewRealClock(); tests inject a
	// clockwork.NewFakeClock() (or a gomock-generated Clock) to drive the
	// Controller deterministically.
	Clock Clock
	// Registerer receives this pool's Prometheus collectors. Defaults to
	// prometheus.NewRegistry() (not the global DefaultRegisterer), so
	// multiple pools in tests never collide on metric names.
	Registerer prometheus.Registerer
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.WorkerCount > WorkerThreadMax {
		c.WorkerCount = WorkerThreadMax
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Registerer == nil {
		c.Registerer = prometheus.NewRegistry()
	}
}

// metricsAdapter lets Worker report task outcomes without importing the
// metrics package's full surface into worker.go.
type metricsAdapter struct{ m *metrics.PoolMetrics }

func (a metricsAdapter) onConsumed()            { a.m.TasksConsumed.Inc() }
func (a metricsAdapter) onPanicked()            { a.m.TasksPanicked.Inc() }
func (a metricsAdapter) onWait(d time.Duration) { a.m.ObserveWait(d) }
func (a metricsAdapter) onExec(d time.Duration) { a.m.ObserveExec(d) }

// Pool is the public facade: it owns the ReadyQueue, DelayedQueue,
// WorkerSet, and Controller, and manages their combined lifecycle.
type Pool struct {
	name    string
	ready   *ReadyQueue
	delayed *DelayedQueue
	workers *WorkerSet
	ctrl    *controller
	queues  *poolQueues
	clock   Clock
	metrics *metrics.PoolMetrics
	log     *logger.Logger

	running      atomic.Bool
	workerIdleNs atomic.Int64

	shutdownOnce sync.Once
}

// New allocates a Pool, starts cfg.WorkerCount initial workers, and — if
// cfg.Manual is not set — starts the Controller loop. dynamic_enabled is true iff
// more than one worker was requested.
func New(cfg Config) (*Pool, error) {
	cfg.setDefaults()

	m := metrics.NewPoolMetrics(cfg.Registerer, cfg.Name)
	p := &Pool{
		name:    cfg.Name,
		ready:   NewReadyQueue(FunctorMax),
		delayed: NewDelayedQueue(DelayedFunctorMax),
		clock:   cfg.Clock,
		metrics: m,
		log:     logger.GetLogger("concurrent", "Pool"),
	}
	p.running.Store(true)
	p.workerIdleNs.Store(int64(DefaultWorkerIdle))

	p.queues = &poolQueues{ready: p.ready, metrics: metricsAdapter{m}}
	running := &boolFlag{get: p.running.Load}
	p.workers = newWorkerSet(WorkerThreadMax, running, p.queues, cfg.Clock, p.workerIdle, m)

	added := 0
	for i := 0; i < cfg.WorkerCount; i++ {
		if err := p.workers.AddWorker(); err != nil {
			break
		}
		added++
	}
	if added == 0 {
		return nil, errors.Wrap(ErrWorkerSpawnFailed, "pool: could not start a single worker")
	}

	p.ctrl = newController(p.ready, p.delayed, p.workers, cfg.Clock, m)
	p.ctrl.setLowWatermark(added)
	p.ctrl.setHighWatermark(added)
	p.ctrl.dynamicEnabled.Store(added > 1)

	if !cfg.Manual {
		p.ctrl.start()
	}

	p.log.Info("pool started",
		logger.String("name", cfg.Name),
		logger.Int("workers", added))
	return p, nil
}

func (p *Pool) workerIdle() time.Duration {
	return time.Duration(p.workerIdleNs.Load())
}

// Submit inserts task into the ReadyQueue according to mode. On success it
// wakes one idle worker. On failure (pool stopped or queue full) the task
// is returned to the caller untouched.
func (p *Pool) Submit(task Task, mode SubmitMode) (Task, error) {
	if !p.running.Load() {
		return task, ErrPoolStopped
	}
	task.markEnqueued(p.clock.Now())
	if err := p.ready.Push(task, mode); err != nil {
		p.metrics.TasksRejected.Inc()
		return task, err
	}
	p.metrics.ReadyDepth.Set(float64(p.ready.Len()))
	p.workers.WakeOneIdle()
	return Task{}, nil
}

// SubmitDelayed inserts dt into the DelayedQueue. On failure (pool stopped
// or queue full) dt is left untouched and still owned by the caller.
func (p *Pool) SubmitDelayed(dt *DelayedTask) error {
	if !p.running.Load() {
		return ErrPoolStopped
	}
	if err := p.delayed.Insert(dt); err != nil {
		p.metrics.TasksRejected.Inc()
		return err
	}
	p.metrics.DelayedDepth.Set(float64(p.delayed.Len()))
	return nil
}

// PositionInReady returns the zero-based index of the task with the given
// correlation ID within the ReadyQueue, if present.
func (p *Pool) PositionInReady(taskID uint64) (int, bool) {
	return p.ready.PositionOf(taskID)
}

// SetLowWatermark sets the minimum worker count under dynamic scaling.
// Effective only while dynamic scaling is enabled (more than one initial
// worker); clamped so low <= high.
func (p *Pool) SetLowWatermark(n int) {
	if n < 1 {
		n = 1
	}
	high := int(p.ctrl.highWM.Load())
	if n > high {
		n = high
	}
	p.ctrl.setLowWatermark(n)
}

// SetHighWatermark sets the maximum worker count under dynamic scaling.
// Clamped to [low, WorkerThreadMax].
func (p *Pool) SetHighWatermark(n int) {
	low := int(p.ctrl.lowWM.Load())
	if n < low {
		n = low
	}
	if n > WorkerThreadMax {
		n = WorkerThreadMax
	}
	p.ctrl.setHighWatermark(n)
}

// StartLoop starts the Controller without touching the WorkerSet.
func (p *Pool) StartLoop() { p.ctrl.start() }

// StopLoop stops the Controller without tearing down workers.
func (p *Pool) StopLoop() { p.ctrl.stop() }

// SetControllerIdle sets the Controller's per-tick sleep duration.
func (p *Pool) SetControllerIdle(d time.Duration) { p.ctrl.setIdlePeriod(d) }

// SetWorkerIdle sets how long an idle Worker sleeps between wake checks.
func (p *Pool) SetWorkerIdle(d time.Duration) { p.workerIdleNs.Store(int64(d)) }

// ReadyCount returns the number of tasks currently waiting in the ReadyQueue.
func (p *Pool) ReadyCount() int { return p.ready.Len() }

// DelayedCount returns the number of tasks currently waiting in the DelayedQueue.
func (p *Pool) DelayedCount() int { return p.delayed.Len() }

// WorkerCount returns the number of workers currently in the WorkerSet.
func (p *Pool) WorkerCount() int { return p.workers.Len() }

// Watermarks returns the Controller's current low/high watermark settings,
// satisfying pkg/monitoring.StatusSource.
func (p *Pool) Watermarks() (low, high int) {
	return int(p.ctrl.lowWM.Load()), int(p.ctrl.highWM.Load())
}

// Metrics returns the pool's Prometheus collector set, for wiring into a
// monitoring server.
func (p *Pool) Metrics() *metrics.PoolMetrics { return p.metrics }

// Shutdown stops accepting new work, joins the Controller, and destroys
// every un-run task and worker. Idempotent: safe to call more than once,
// e.g. from a defer alongside an explicit call on a clean-exit path.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.running.Store(false)
		p.ctrl.stop()

		discardedDelayed := p.delayed.Clear()
		discardedReady := p.ready.Clear()
		if n := discardedDelayed + discardedReady; n > 0 {
			p.metrics.TasksDiscarded.Add(float64(n))
		}
		p.workers.Clear()

		p.log.Info("pool stopped",
			logger.String("name", p.name),
			logger.Int("discarded", discardedDelayed+discardedReady))
	})
}
