/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package replay

import (
	"io"
	"time"

	"jinr.ru/greenlab/go-nlx/pkg/timeutil"
)

// Pacer keeps a fixed schedule of deadlines one period apart.
// Deadlines follow the planned schedule, not the actual wake up time, so the
// schedule does not drift. An action that overruns its slot is not caught up,
// the following sleeps are just skipped until the schedule is ahead again.
type Pacer struct {
	clock    timeutil.Clock
	period   time.Duration
	deadline time.Time
}

// NewPacer starts a schedule whose first deadline is one period from now
func NewPacer(clock timeutil.Clock, period time.Duration) *Pacer {
	return &Pacer{
		clock:    clock,
		period:   period,
		deadline: clock.Now().Add(period),
	}
}

// Wait sleeps until the current deadline if it is still ahead and moves the deadline one period on
func (p *Pacer) Wait() {
	if remaining := p.deadline.Sub(p.clock.Now()); remaining > 0 {
		p.clock.Sleep(remaining)
	}
	p.deadline = p.deadline.Add(p.period)
}

// PeriodicFor invokes action for every item, one item per period.
// The first failing action aborts the run and its error is returned.
func PeriodicFor[T any](clock timeutil.Clock, period time.Duration, items []T, action func(T) error) error {
	pacer := NewPacer(clock, period)
	for _, item := range items {
		if err := action(item); err != nil {
			return err
		}
		pacer.Wait()
	}
	return nil
}

// PeriodicEach is PeriodicFor over a lazy sequence. next returns io.EOF when
// the sequence is exhausted, any other error from next aborts the run.
func PeriodicEach[T any](clock timeutil.Clock, period time.Duration, next func() (T, error), action func(T) error) error {
	pacer := NewPacer(clock, period)
	for {
		item, err := next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := action(item); err != nil {
			return err
		}
		pacer.Wait()
	}
}

// PeriodicWhile invokes action once per period as long as cond holds
func PeriodicWhile(clock timeutil.Clock, period time.Duration, cond func() bool, action func() error) error {
	pacer := NewPacer(clock, period)
	for cond() {
		if err := action(); err != nil {
			return err
		}
		pacer.Wait()
	}
	return nil
}
