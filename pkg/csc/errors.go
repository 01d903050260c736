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

package csc

import (
	"fmt"
)

const (
	WhatHeader = "header"
	WhatRecord = "record"
)

// ErrShortRead returned when a fixed size frame can not be read completely
type ErrShortRead struct {
	What string
	// Index of the record, -1 for the header
	Index int
	Want  int
	Got   int
}

func (e ErrShortRead) Error() string {
	if e.What == WhatRecord {
		return fmt.Sprintf("Short read of CSC record %d: want %d bytes, got %d", e.Index, e.Want, e.Got)
	}
	return fmt.Sprintf("Short read of CSC %s: want %d bytes, got %d", e.What, e.Want, e.Got)
}

// ErrPartialFrame returned when the file ends with an incomplete record frame
type ErrPartialFrame struct {
	Remainder int64
}

func (e ErrPartialFrame) Error() string {
	return fmt.Sprintf("CSC file ends with a partial record frame of %d bytes", e.Remainder)
}
