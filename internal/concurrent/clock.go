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

//go:generate mockgen -source=clock.go -destination=clock_mock_test.go -package=concurrent

import "time"

// Clock is the minimal time source the Controller, Worker and DelayedTask
// need. Any github.com/jonboulle/clockwork.Clock satisfies it, since its
// method set is a superset of this one; gomock-generated fakes satisfy it
// too, for tests that need to assert on call sequences rather than just
// advance a fake clock.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Sleep(d time.Duration)
}
