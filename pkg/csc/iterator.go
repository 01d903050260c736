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
	"io"

	"jinr.ru/greenlab/go-nlx/pkg/log"
)

// Iterator reads records of a CSC file one frame at a time.
// It is forward only and can not be restarted.
type Iterator struct {
	src    Source
	closer io.Closer
	layout layout
	index  int
	buf    [RecordSize]byte
	err    error
}

// NewIterator opens a CSC file, decodes its header and returns an iterator
// over at most limit records. Use NoLimit to iterate over all of them.
func NewIterator(path string, limit int) (*Header, *Iterator, error) {
	src, err := OpenSource(path)
	if err != nil {
		return nil, nil, err
	}
	header, it, err := NewIteratorFromSource(src, limit)
	if err != nil {
		src.Close()
		return nil, nil, err
	}
	it.closer = src
	log.Debug("Streaming CSC file: %s records: %d", path, it.Count())
	return header, it, nil
}

func NewIteratorFromSource(src Source, limit int) (*Header, *Iterator, error) {
	l := newLayout(src.Size(), limit)
	header, err := readHeader(src)
	if err != nil {
		return nil, nil, err
	}
	return header, &Iterator{src: src, layout: l}, nil
}

// Next returns the next record or io.EOF once Count records have been produced.
// After a failed step every further call returns the same error.
func (it *Iterator) Next() (Record, error) {
	if it.err != nil {
		return Record{}, it.err
	}
	if it.index == it.layout.records {
		if it.layout.partial != 0 {
			it.err = ErrPartialFrame{Remainder: it.layout.partial}
			return Record{}, it.err
		}
		return Record{}, io.EOF
	}
	if err := readFrame(it.src, it.buf[:], WhatRecord, it.index); err != nil {
		it.err = err
		return Record{}, err
	}
	record, err := DecodeRecord(it.buf[:])
	if err != nil {
		it.err = err
		return Record{}, err
	}
	it.index++
	return record, nil
}

// Count is the number of records the iterator produces
func (it *Iterator) Count() int {
	return it.layout.records
}

// Index is the number of records produced so far
func (it *Iterator) Index() int {
	return it.index
}

func (it *Iterator) Close() error {
	if it.closer == nil {
		return nil
	}
	err := it.closer.Close()
	it.closer = nil
	return err
}
