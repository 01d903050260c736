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
	"errors"
	"fmt"
)

var (
	// ErrNoChannels returned when a transform is asked for zero channels
	ErrNoChannels = errors.New("At least one channel is required")
	// ErrZeroFrequency returned when the first record has zero sampling frequency
	ErrZeroFrequency = errors.New("Sampling frequency must not be zero")
)

// ErrSampleCountMismatch returned when channel records of the same generation
// carry different numbers of valid samples
type ErrSampleCountMismatch struct {
	Channel int
	Got     uint32
	Want    uint32
}

func (e ErrSampleCountMismatch) Error() string {
	return fmt.Sprintf("Channel %d has %d valid samples, expected %d", e.Channel, e.Got, e.Want)
}

// ErrReplayRunning returned when Run is called on a replayer that is already running
type ErrReplayRunning struct{}

func (e ErrReplayRunning) Error() string {
	return "Replay is already running"
}
