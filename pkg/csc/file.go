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
	"jinr.ru/greenlab/go-nlx/pkg/log"
)

// File is a completely loaded CSC file
type File struct {
	Header  *Header
	Records []Record
}

// ReadFile loads the header and up to limit records of a CSC file.
// Use NoLimit to load all of them.
func ReadFile(path string, limit int) (*File, error) {
	src, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	log.Debug("Reading CSC file: %s size: %d", path, src.Size())
	return Decode(src, limit)
}

// Decode loads a CSC file from src
func Decode(src Source, limit int) (*File, error) {
	l := newLayout(src.Size(), limit)

	header, err := readHeader(src)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, l.records)
	buf := make([]byte, RecordSize)
	for i := 0; i < l.records; i++ {
		if err := readFrame(src, buf, WhatRecord, i); err != nil {
			return nil, err
		}
		record, err := DecodeRecord(buf)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if l.partial != 0 {
		return nil, ErrPartialFrame{Remainder: l.partial}
	}

	return &File{
		Header:  header,
		Records: records,
	}, nil
}
