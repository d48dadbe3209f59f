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
)

// DelayedTask wraps a Task with a deadline. The inner Task can be
// atomically extracted exactly once (by the Controller, when promoting it
// to the ReadyQueue) and may be put back if promotion fails, so the
// Controller's next scan can retry. All mutating operations are serialized
// by an internal lock so concurrent Take/Renew/Restore cannot corrupt the
// slot.
type DelayedTask struct {
	mu        sync.Mutex
	inner     *Task
	deadline  time.Time
	extracted bool
}

// NewDelayedTask creates a DelayedTask wrapping task, due at deadline.
func NewDelayedTask(task Task, deadline time.Time) *DelayedTask {
	t := task
	return &DelayedTask{inner: &t, deadline: deadline}
}

// Deadline returns the wrapper's current deadline.
func (d *DelayedTask) Deadline() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deadline
}

// Renew sets a new deadline. Legal at any time before the inner Task has
// been extracted; once extracted the deadline is meaningless and Renew is
// a no-op.
func (d *DelayedTask) Renew(deadline time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.extracted {
		return
	}
	d.deadline = deadline
}

// ResetDeadline is equivalent to Renew(clock.Now()), marking the task for
// immediate promotion on the Controller's next scan.
func (d *DelayedTask) ResetDeadline(clock Clock) {
	d.Renew(clock.Now())
}

// Due reports whether the deadline has arrived as of now.
func (d *DelayedTask) Due(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.extracted && !d.deadline.After(now)
}

// Take atomically extracts the inner Task, returning it to the caller
// exactly once; the wrapper is empty thereafter and subsequent calls
// return (Task{}, false).
func (d *DelayedTask) Take() (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.extracted || d.inner == nil {
		return Task{}, false
	}
	task := *d.inner
	d.inner = nil
	d.extracted = true
	return task, true
}

// Restore puts task back into the wrapper. It is only legal when the slot
// is empty (extracted but not yet re-populated); used when the Controller
// fails to readmit a promoted Task to a full ReadyQueue and must keep the
// DelayedTask alive for the next scan.
func (d *DelayedTask) Restore(task Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.extracted || d.inner != nil {
		return ErrDelayedTaskOccupied
	}
	t := task
	d.inner = &t
	d.extracted = false
	return nil
}

// Extracted reports whether the inner Task has been taken and not restored.
func (d *DelayedTask) Extracted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.extracted
}
