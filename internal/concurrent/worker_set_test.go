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

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icke2063/threadpool/pkg/metrics"
)

func newTestWorkerSet(t *testing.T, max int, running bool) *WorkerSet {
	t.Helper()
	m := metrics.NewPoolMetrics(prometheus.NewRegistry(), t.Name())
	queues := &poolQueues{ready: NewReadyQueue(FunctorMax), metrics: &metricsAdapter{m}}
	flag := &boolFlag{get: func() bool { return running }}
	return newWorkerSet(max, flag, queues, clockwork.NewRealClock(), func() time.Duration { return time.Millisecond }, m)
}

func TestWorkerSet_AddWorkerRespectsCap(t *testing.T) {
	ws := newTestWorkerSet(t, 2, true)

	require.NoError(t, ws.AddWorker())
	require.NoError(t, ws.AddWorker())
	assert.ErrorIs(t, ws.AddWorker(), ErrWorkerCapExceeded)
	assert.Equal(t, 2, ws.Len())

	ws.Clear()
}

func TestWorkerSet_AddWorkerRejectedWhenNotRunning(t *testing.T) {
	ws := newTestWorkerSet(t, 2, false)
	assert.ErrorIs(t, ws.AddWorker(), ErrPoolStopped)
}

func TestWorkerSet_RemoveOneIdle(t *testing.T) {
	ws := newTestWorkerSet(t, 2, true)
	require.NoError(t, ws.AddWorker())
	require.NoError(t, ws.AddWorker())

	require.Eventually(t, func() bool { return ws.Len() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, ws.RemoveOneIdle())
	assert.Equal(t, 1, ws.Len())

	ws.Clear()
}

func TestWorkerSet_RemoveOneIdle_NoneIdle(t *testing.T) {
	ws := newTestWorkerSet(t, 1, true)
	assert.ErrorIs(t, ws.RemoveOneIdle(), ErrNoIdleWorker)
}

func TestWorkerSet_ClearStopsAllWorkers(t *testing.T) {
	ws := newTestWorkerSet(t, 3, true)
	require.NoError(t, ws.AddWorker())
	require.NoError(t, ws.AddWorker())
	require.NoError(t, ws.AddWorker())

	ws.Clear()
	assert.Equal(t, 0, ws.Len())
}
