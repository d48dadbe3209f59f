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
	"time"

	"go.uber.org/atomic"

	"github.com/icke2063/threadpool/pkg/logger"
)

// WorkerState is the observable lifecycle state of a Worker, used by the
// Controller to decide which worker is eligible for scale-down.
type WorkerState int32

const (
	Idle WorkerState = iota
	Running
	Finished
)

func (s WorkerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// workerHandle is the non-owning back-reference a Worker holds to its
// parent Pool. Pool owns Workers; Workers hold this handle rather than a
// direct *Pool pointer so Pool teardown can atomically invalidate it and
// let the Worker observe "gone" without a cyclic strong-ownership graph.
type workerHandle struct {
	valid atomic.Bool
	pool  *poolQueues
}

func newWorkerHandle(p *poolQueues) *workerHandle {
	h := &workerHandle{pool: p}
	h.valid.Store(true)
	return h
}

func (h *workerHandle) invalidate() { h.valid.Store(false) }

// poolQueues is the slice of Pool state a Worker needs: the shared
// ReadyQueue and enough bookkeeping to report a completed task. It is a
// separate type (rather than a direct *Pool reference) purely to keep the
// Worker/Pool coupling to the minimum surface required.
type poolQueues struct {
	ready   *ReadyQueue
	metrics interface {
		onConsumed()
		onPanicked()
		onWait(time.Duration)
		onExec(time.Duration)
	}
}

// Worker is one long-lived goroutine that pops Tasks off the pool's shared
// ReadyQueue and executes them sequentially. Exactly one goroutine backs
// each Worker; its lifecycle is Idle -> Running -> Idle -> ... -> Finished,
// with Finished reached only after the loop observes the pool is gone (or
// told to stop) and releases any held task.
type Worker struct {
	id           int
	handle       *workerHandle
	state        atomic.Int32
	wakeCh       chan struct{}
	running      atomic.Bool
	fastShutdown atomic.Bool
	clock        Clock
	idle         func() time.Duration
	log          *logger.Logger
	done         chan struct{}
}

func newWorker(id int, handle *workerHandle, clock Clock, idle func() time.Duration) *Worker {
	w := &Worker{
		id:     id,
		handle: handle,
		wakeCh: make(chan struct{}, 1),
		clock:  clock,
		idle:   idle,
		log:    logger.GetLogger("concurrent", "Worker"),
		done:   make(chan struct{}),
	}
	w.state.Store(int32(Idle))
	w.running.Store(true)
	return w
}

// State returns the Worker's current observable lifecycle state.
func (w *Worker) State() WorkerState { return WorkerState(w.state.Load()) }

// Wake signals the worker's wake channel; a no-op if a wake signal is
// already pending, since the channel is edge-triggered and size-1.
func (w *Worker) Wake() {
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

// stop tells the worker loop to exit after it finishes any task it is
// currently running.
func (w *Worker) stop() {
	w.running.Store(false)
	w.Wake()
}

// run is the Worker's main loop, started on its own goroutine by WorkerSet.
func (w *Worker) run() {
	defer close(w.done)
	for {
		if !w.running.Load() || !w.handle.valid.Load() {
			break
		}

		task, ok := w.handle.pool.ready.PopHead()
		if ok {
			w.state.Store(int32(Running))
			w.handle.pool.metrics.onWait(task.waitSince(w.clock.Now()))
			start := w.clock.Now()
			task.Execute(w.log, w.handle.pool.metrics.onPanicked)
			w.handle.pool.metrics.onExec(w.clock.Now().Sub(start))
			w.handle.pool.metrics.onConsumed()
			task = Task{}
			w.state.Store(int32(Idle))
			continue
		}

		w.state.Store(int32(Idle))
		select {
		case <-w.wakeCh:
		case <-w.clock.After(w.idle()):
		}
	}
	w.state.Store(int32(Finished))
}

// awaitFinished blocks until the worker's loop has returned, or the grace
// period elapses, whichever comes first. It returns true if the worker
// finished within the grace period.
func (w *Worker) awaitFinished(grace time.Duration, poll time.Duration) bool {
	deadline := w.clock.Now().Add(grace)
	for {
		select {
		case <-w.done:
			return true
		default:
		}
		if w.clock.Now().After(deadline) {
			return false
		}
		w.clock.Sleep(poll)
	}
}
