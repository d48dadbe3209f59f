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

import "github.com/pkg/errors"

// Errors surfaced across the pool's public API. ErrWorkerCapExceeded and
// ErrNoIdleWorker are recovered locally by the Controller's scaling rule and
// never reach a Pool caller.
var (
	// ErrPoolStopped is returned by Submit/SubmitDelayed once shutdown has begun.
	ErrPoolStopped = errors.New("concurrent: pool is stopped")
	// ErrReadyQueueFull is returned when the ReadyQueue has reached FunctorMax.
	ErrReadyQueueFull = errors.New("concurrent: ready queue is full")
	// ErrDelayedQueueFull is returned when the DelayedQueue has reached DelayedFunctorMax.
	ErrDelayedQueueFull = errors.New("concurrent: delayed queue is full")
	// ErrWorkerCapExceeded is returned by WorkerSet.AddWorker at WorkerThreadMax.
	ErrWorkerCapExceeded = errors.New("concurrent: worker thread cap exceeded")
	// ErrNoIdleWorker is returned by WorkerSet.RemoveOneIdle when every worker is running.
	ErrNoIdleWorker = errors.New("concurrent: no idle worker to remove")
	// ErrWorkerSpawnFailed is returned when a worker goroutine could not be started.
	ErrWorkerSpawnFailed = errors.New("concurrent: worker spawn failed")
	// ErrDelayedTaskEmpty describes a DelayedTask slot with no inner task.
	// DelayedTask.Take reports that case with ok == false instead of this error.
	ErrDelayedTaskEmpty = errors.New("concurrent: delayed task has no inner task")
	// ErrDelayedTaskOccupied is returned by Restore when the slot is not empty.
	ErrDelayedTaskOccupied = errors.New("concurrent: delayed task slot already occupied")
)
