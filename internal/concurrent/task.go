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
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/icke2063/threadpool/pkg/logger"
)

// MaxPriority and MinPriority bound the priority a Task may carry; values
// passed to SetPriority outside this range are clamped, never rejected.
const (
	MinPriority uint8 = 0
	MaxPriority uint8 = 100
)

// taskSeq feeds every Task's correlation ID; it is process-wide because IDs
// only need to be unique for the lifetime of a log line or PositionOf call,
// not globally unique across restarts.
var taskSeq uint64

func nextTaskID() uint64 {
	n := atomic.AddUint64(&taskSeq, 1)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	return xxhash.Sum64(buf[:])
}

// Task is a one-shot, owned unit of work: a body with no input and no
// return value, plus a priority the ReadyQueue uses for ordering. Once
// handed to a Pool, a Task is owned by whichever component is currently
// holding it (submitter -> queue -> worker -> drop) and must not be
// resubmitted after it runs.
type Task struct {
	id         uint64
	body       func()
	priority   uint8
	enqueuedAt time.Time
}

// NewTask wraps body as a Task with priority 0. Use SetPriority to change
// it before submission; ReadyQueue itself overrides priority for FIFO and
// LIFO submission modes regardless of what is set here.
func NewTask(body func()) Task {
	return Task{id: nextTaskID(), body: body, priority: MinPriority}
}

// ID returns the Task's log/trace correlation ID.
func (t *Task) ID() uint64 { return t.id }

// SetPriority clamps p to [MinPriority, MaxPriority] and stores it.
func (t *Task) SetPriority(p uint8) {
	if p > MaxPriority {
		p = MaxPriority
	}
	t.priority = p
}

// Priority returns the Task's current priority.
func (t *Task) Priority() uint8 { return t.priority }

// IsZero reports whether t is the zero Task (no body), used by callers
// that receive a Task back from a queue operation that may come up empty.
func (t *Task) IsZero() bool { return t.body == nil }

// markEnqueued stamps the moment a Task enters the ReadyQueue, so a Worker
// can later report how long it waited before being picked up.
func (t *Task) markEnqueued(now time.Time) { t.enqueuedAt = now }

// waitSince reports how long the task has been waiting as of now. Zero if
// it was never stamped (e.g. a task executed directly in a test without
// going through Pool.Submit).
func (t *Task) waitSince(now time.Time) time.Duration {
	if t.enqueuedAt.IsZero() {
		return 0
	}
	return now.Sub(t.enqueuedAt)
}

// Execute runs the task body exactly once. A panic raised by the body is
// recovered, logged, and reported through onPanic rather than propagated,
// so a single bad task cannot take down its worker goroutine.
func (t *Task) Execute(log *logger.Logger, onPanic func()) {
	defer func() {
		if r := recover(); r != nil {
			if onPanic != nil {
				onPanic()
			}
			if log != nil {
				log.Error("task panicked",
					logger.Int("task_id", int(t.id)),
					logger.String("recovered", safeString(r)),
					logger.Stack("stack"))
			}
		}
	}()
	if t.body != nil {
		t.body()
	}
}

func safeString(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "non-string panic value"
}
