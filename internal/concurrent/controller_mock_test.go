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
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/icke2063/threadpool/pkg/metrics"
)

// TestController_TickLoopCallsClockThroughMock exercises the Controller
// against a gomock-generated Clock rather than clockwork's fake, asserting
// the tick loop actually consults Now and After on its collaborator instead
// of just observing an end-to-end effect.
func TestController_TickLoopCallsClockThroughMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClock := NewMockClock(ctrl)

	never := make(chan time.Time)
	mockClock.EXPECT().Now().Return(time.Unix(0, 0)).MinTimes(1)
	mockClock.EXPECT().After(gomock.Any()).Return((<-chan time.Time)(never)).MinTimes(1)

	m := metrics.NewPoolMetrics(prometheus.NewRegistry(), t.Name())
	ready := NewReadyQueue(FunctorMax)
	delayed := NewDelayedQueue(DelayedFunctorMax)
	queues := &poolQueues{ready: ready, metrics: metricsAdapter{m}}
	flag := &boolFlag{get: func() bool { return true }}
	ws := newWorkerSet(WorkerThreadMax, flag, queues, mockClock, func() time.Duration { return time.Millisecond }, m)

	c := newController(ready, delayed, ws, mockClock, m)
	c.dynamicEnabled.Store(false)
	c.start()

	// Give the loop goroutine a chance to run at least one tick and block
	// in its select before asking it to stop.
	time.Sleep(20 * time.Millisecond)
	c.stop()
}
