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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_DefaultConstructionYieldsOneWorker(t *testing.T) {
	pool, err := New(Config{})
	require.NoError(t, err)
	defer pool.Shutdown()

	assert.Equal(t, 1, pool.WorkerCount())
	assert.True(t, pool.ctrl.loopRunning.Load())
	low, high := pool.Watermarks()
	assert.Equal(t, 1, low)
	assert.Equal(t, 1, high)
}

func TestPool_RequestingCapacityCeilingClampsToWorkerThreadMax(t *testing.T) {
	pool, err := New(Config{WorkerCount: WorkerThreadMax})
	require.NoError(t, err)
	defer pool.Shutdown()

	assert.Equal(t, WorkerThreadMax, pool.WorkerCount())
}

func TestPool_SubmitAndRun_TaskExecutesAndDrainsReady(t *testing.T) {
	pool, err := New(Config{WorkerCount: 1})
	require.NoError(t, err)
	defer pool.Shutdown()

	var flags []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		flags = append(flags, s)
		mu.Unlock()
	}

	record("init")
	_, err = pool.Submit(NewTask(func() {
		record("start")
		record("stop")
	}), Default)
	require.NoError(t, err)
	record("construct")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flags) == 4
	}, 100*time.Millisecond, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, flags, "start")
	assert.Contains(t, flags, "stop")
	assert.Equal(t, 0, pool.ReadyCount())
}

func TestPool_BacklogRejection_QueueFullAtCapacityPlusRunning(t *testing.T) {
	pool, err := New(Config{WorkerCount: 5})
	require.NoError(t, err)
	defer pool.Shutdown()

	block := make(chan struct{})
	var started int32
	for i := 0; i < 5; i++ {
		_, err := pool.Submit(NewTask(func() {
			atomic.AddInt32(&started, 1)
			<-block
		}), Default)
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&started) == 5 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return pool.ReadyCount() == 0 }, time.Second, time.Millisecond)

	for i := 0; i < FunctorMax; i++ {
		_, err := pool.Submit(NewTask(func() {}), Default)
		require.NoError(t, err)
	}
	assert.Equal(t, FunctorMax, pool.ReadyCount())

	overflow := NewTask(func() {})
	returned, err := pool.Submit(overflow, Default)
	assert.ErrorIs(t, err, ErrReadyQueueFull)
	assert.Equal(t, overflow.ID(), returned.ID(), "the rejected task is handed back to the caller")

	close(block)
}

func TestPool_DelayedPromotion_PromotesOnlyAfterDeadline(t *testing.T) {
	pool, err := New(Config{WorkerCount: 1})
	require.NoError(t, err)
	defer pool.Shutdown()
	pool.SetControllerIdle(time.Millisecond)

	var flag int32 // 0=init, 1=start, 2=stop
	deadline := time.Now().Add(150 * time.Millisecond)
	dt := NewDelayedTask(NewTask(func() {
		atomic.StoreInt32(&flag, 1)
		atomic.StoreInt32(&flag, 2)
	}), deadline)
	require.NoError(t, pool.SubmitDelayed(dt))

	time.Sleep(100 * time.Millisecond) // still well before deadline-10ms
	assert.Equal(t, 1, pool.DelayedCount())
	assert.Equal(t, 0, pool.ReadyCount())
	assert.Equal(t, int32(0), atomic.LoadInt32(&flag))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&flag) == 2 }, 500*time.Millisecond, 2*time.Millisecond)
	assert.Equal(t, 0, pool.DelayedCount())
}

func TestPool_LIFOAndFIFOPriorityOrderingUnderBacklog(t *testing.T) {
	pool, err := New(Config{WorkerCount: 1, Manual: true})
	require.NoError(t, err)
	defer pool.Shutdown()

	block := make(chan struct{})
	started := make(chan struct{})
	_, err = pool.Submit(NewTask(func() {
		close(started)
		<-block
	}), Default)
	require.NoError(t, err)
	<-started

	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	p10 := NewTask(record("p10"))
	p10.SetPriority(10)
	p50 := NewTask(record("p50"))
	p50.SetPriority(50)
	p90 := NewTask(record("p90"))
	p90.SetPriority(90)
	lifoTask := NewTask(record("lifo"))
	fifoTask := NewTask(record("fifo"))

	_, err = pool.Submit(p10, Priority)
	require.NoError(t, err)
	_, err = pool.Submit(p50, Priority)
	require.NoError(t, err)
	_, err = pool.Submit(p90, Priority)
	require.NoError(t, err)
	_, err = pool.Submit(lifoTask, LIFO)
	require.NoError(t, err)
	_, err = pool.Submit(fifoTask, FIFO)
	require.NoError(t, err)

	close(block)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 5
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"lifo", "p90", "p50", "p10", "fifo"}, order)
}

func TestPool_WatermarksClampToEachOtherAndCeiling(t *testing.T) {
	pool, err := New(Config{WorkerCount: 2})
	require.NoError(t, err)
	defer pool.Shutdown()

	pool.SetHighWatermark(10)
	pool.SetLowWatermark(20) // clamped down to high
	low, high := pool.Watermarks()
	assert.Equal(t, 10, low)
	assert.Equal(t, 10, high)

	pool.SetHighWatermark(WorkerThreadMax + 50)
	_, high = pool.Watermarks()
	assert.Equal(t, WorkerThreadMax, high)
}

func TestPool_ShutdownIsIdempotentAndDiscardsPendingWork(t *testing.T) {
	pool, err := New(Config{WorkerCount: 2})
	require.NoError(t, err)

	block := make(chan struct{})
	defer close(block)
	for i := 0; i < 2; i++ {
		_, err := pool.Submit(NewTask(func() { <-block }), Default)
		require.NoError(t, err)
	}
	_, err = pool.Submit(NewTask(func() {}), Default)
	require.NoError(t, err)

	pool.Shutdown()
	assert.NotPanics(t, pool.Shutdown)

	_, err = pool.Submit(NewTask(func() {}), Default)
	assert.ErrorIs(t, err, ErrPoolStopped)
}
