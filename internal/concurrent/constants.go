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

import "time"

// Compile-time-constant defaults for the scheduler's capacity bounds and
// default tick periods.
const (
	// WorkerThreadMax bounds the WorkerSet.
	WorkerThreadMax = 60
	// FunctorMax bounds the ReadyQueue.
	FunctorMax = 1024
	// DelayedFunctorMax bounds the DelayedQueue.
	DelayedFunctorMax = 1024
	// DefaultControllerIdle is the Controller's default tick sleep.
	DefaultControllerIdle = 1000 * time.Microsecond
	// DefaultWorkerIdle is a Worker's default sleep while waiting for a wake signal.
	DefaultWorkerIdle = 1000 * time.Microsecond
)
