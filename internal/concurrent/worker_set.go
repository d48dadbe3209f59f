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
	"sync"
	"time"

	"github.com/icke2063/threadpool/pkg/metrics"
)

// fastShutdownGrace and fastShutdownPoll bound how long WorkerSet.Clear
// waits for a worker to notice shutdown before abandoning its goroutine:
// ~100ms total, polled every 100us.
const (
	fastShutdownGrace = 100 * time.Millisecond
	fastShutdownPoll  = 100 * time.Microsecond
)

// WorkerSet is the mutable, insertion-ordered collection of a Pool's
// Workers, bounded by WorkerThreadMax.
type WorkerSet struct {
	mu      sync.Mutex
	workers []*Worker
	max     int
	nextID  int
	running *boolFlag
	queues  *poolQueues
	clock   Clock
	idle    func() time.Duration
	metrics *metrics.PoolMetrics
}

// boolFlag is a tiny indirection so WorkerSet can observe the Pool's
// running flag without importing *Pool itself.
type boolFlag struct {
	get func() bool
}

func newWorkerSet(max int, running *boolFlag, queues *poolQueues, clock Clock, idle func() time.Duration, m *metrics.PoolMetrics) *WorkerSet {
	return &WorkerSet{max: max, running: running, queues: queues, clock: clock, idle: idle, metrics: m}
}

// Len returns the current number of Workers in the set.
func (ws *WorkerSet) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.workers)
}

// AddWorker creates and starts a new Worker, appending it to the set.
func (ws *WorkerSet) AddWorker() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.running.get() {
		return ErrPoolStopped
	}
	if len(ws.workers) >= ws.max {
		return ErrWorkerCapExceeded
	}

	handle := newWorkerHandle(ws.queues)
	ws.nextID++
	w := newWorker(ws.nextID, handle, ws.clock, ws.idle)
	ws.workers = append(ws.workers, w)
	go w.run()

	ws.metrics.WorkersCreated.Inc()
	ws.metrics.WorkersAlive.Set(float64(len(ws.workers)))
	return nil
}

// RemoveOneIdle finds the first Idle Worker, detaches it, invalidates its
// back-reference, and joins it. Returns ErrNoIdleWorker if none are Idle.
func (ws *WorkerSet) RemoveOneIdle() error {
	ws.mu.Lock()
	idx := -1
	for i, w := range ws.workers {
		if w.State() == Idle {
			idx = i
			break
		}
	}
	if idx == -1 {
		ws.mu.Unlock()
		return ErrNoIdleWorker
	}
	w := ws.workers[idx]
	ws.workers = append(ws.workers[:idx], ws.workers[idx+1:]...)
	ws.mu.Unlock()

	w.handle.invalidate()
	w.stop()
	<-w.done

	ws.metrics.WorkersKilled.Inc()
	ws.metrics.WorkersAlive.Set(float64(ws.Len()))
	return nil
}

// WakeOneIdle signals the wake channel of the first Idle Worker found, or
// does nothing if every Worker is Running.
func (ws *WorkerSet) WakeOneIdle() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, w := range ws.workers {
		if w.State() == Idle {
			w.Wake()
			return
		}
	}
}

// Clear stops every Worker, giving each a bounded fast-shutdown grace
// period before abandoning its goroutine rather than blocking forever.
// Invoked only during pool teardown, after the ReadyQueue is drained.
func (ws *WorkerSet) Clear() {
	ws.mu.Lock()
	workers := ws.workers
	ws.workers = nil
	ws.mu.Unlock()

	for _, w := range workers {
		w.fastShutdown.Store(true)
		w.handle.invalidate()
		w.stop()
	}
	for _, w := range workers {
		w.awaitFinished(fastShutdownGrace, fastShutdownPoll)
	}
	ws.metrics.WorkersAlive.Set(0)
}
