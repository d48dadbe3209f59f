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

package concurrent

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/icke2063/threadpool/pkg/logger"
	"github.com/icke2063/threadpool/pkg/metrics"
)

// controller runs the background loop that promotes due DelayedTasks and,
// when dynamic scaling is enabled, resizes the WorkerSet based on backlog.
// It owns no queues itself; it only orchestrates the ReadyQueue,
// DelayedQueue and WorkerSet it is given.
type controller struct {
	ready       *ReadyQueue
	delayed     *DelayedQueue
	workers     *WorkerSet
	clock       Clock
	metrics     *metrics.PoolMetrics
	log         *logger.Logger

	dynamicEnabled atomic.Bool
	lowWM          atomic.Int64
	highWM         atomic.Int64
	idlePeriod     atomic.Int64 // nanoseconds
	threshold      atomic.Int64

	loopRunning atomic.Bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	stopOnce    sync.Once
}

func newController(ready *ReadyQueue, delayed *DelayedQueue, workers *WorkerSet, clock Clock, m *metrics.PoolMetrics) *controller {
	c := &controller{
		ready:   ready,
		delayed: delayed,
		workers: workers,
		clock:   clock,
		metrics: m,
		log:     logger.GetLogger("concurrent", "Controller"),
	}
	c.idlePeriod.Store(int64(DefaultControllerIdle))
	return c
}

// start launches the controller's goroutine. It is idempotent: calling
// start while already running is a no-op.
func (c *controller) start() {
	if !c.loopRunning.CompareAndSwap(false, true) {
		return
	}
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.stopOnce = sync.Once{}
	go c.loop()
}

// stop signals the controller's goroutine to exit and waits for it to do
// so. Safe to call when the controller is not running.
func (c *controller) stop() {
	if !c.loopRunning.Load() {
		return
	}
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.doneCh
	c.loopRunning.Store(false)
}

func (c *controller) loop() {
	defer close(c.doneCh)
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		runtime.Gosched()

		if c.dynamicEnabled.Load() {
			c.scale()
		}

		promoted := c.delayed.ScanAndPromote(c.clock.Now(), func(task Task) error {
			return c.ready.Push(task, Default)
		})
		if promoted > 0 {
			c.metrics.TasksPromoted.Add(float64(promoted))
			c.workers.WakeOneIdle()
		}
		c.metrics.ReadyDepth.Set(float64(c.ready.Len()))
		c.metrics.DelayedDepth.Set(float64(c.delayed.Len()))

		select {
		case <-c.stopCh:
			return
		case <-c.clock.After(time.Duration(c.idlePeriod.Load())):
		}
	}
}

// scale applies the watermark-driven sizing rule once per tick.
func (c *controller) scale() {
	low := int(c.lowWM.Load())
	high := int(c.highWM.Load())

	for c.workers.Len() < low {
		if err := c.workers.AddWorker(); err != nil {
			break
		}
		c.metrics.ScaleUpEvents.Inc()
	}

	threshold := int(c.threshold.Load())
	if c.ready.Len() > threshold && c.workers.Len() < high {
		if err := c.workers.AddWorker(); err == nil {
			c.metrics.ScaleUpEvents.Inc()
			c.log.Info("scaled up", logger.Int("workers", c.workers.Len()), logger.Int("ready", c.ready.Len()))
		}
	}

	if c.ready.Len() == 0 && c.workers.Len() > low {
		if err := c.workers.RemoveOneIdle(); err == nil {
			c.metrics.ScaleDownEvents.Inc()
			c.log.Info("scaled down", logger.Int("workers", c.workers.Len()))
		}
	}

	c.threshold.Store(1 << uint(c.workers.Len()))
}

func (c *controller) setLowWatermark(n int) {
	c.lowWM.Store(int64(n))
}

func (c *controller) setHighWatermark(n int) {
	c.highWM.Store(int64(n))
}

func (c *controller) setIdlePeriod(d time.Duration) {
	c.idlePeriod.Store(int64(d))
}
