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

package layers

import (
	"fmt"
)

// ErrPacketTruncated returned when packet data ends before all declared fields are read
type ErrPacketTruncated struct {
	Want int
	Got  int
}

func (e ErrPacketTruncated) Error() string {
	return fmt.Sprintf("Nlx packet truncated: want %d bytes, got %d", e.Want, e.Got)
}

// ErrDeclaredLength returned when the declared packet size can not describe a valid body
type ErrDeclaredLength struct {
	Count int32
}

func (e ErrDeclaredLength) Error() string {
	return fmt.Sprintf("Invalid Nlx packet size %d. Must be between %d and %d", e.Count, NlxExtrasLength, NlxMaxPacketSize)
}
