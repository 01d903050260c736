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
	"bufio"
	"errors"
	"io"
	"os"
)

// NoLimit makes the readers consume every complete record of a file
const NoLimit = -1

// Source is a sequential byte stream of known total length.
// *bytes.Reader satisfies it.
type Source interface {
	io.Reader
	Size() int64
}

// FileSource is a Source backed by a file on disk
type FileSource struct {
	file   *os.File
	reader *bufio.Reader
	size   int64
}

func OpenSource(path string) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	return &FileSource{
		file:   file,
		reader: bufio.NewReaderSize(file, 64*RecordSize),
		size:   info.Size(),
	}, nil
}

func (s *FileSource) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *FileSource) Size() int64 {
	return s.size
}

func (s *FileSource) Close() error {
	return s.file.Close()
}

// layout describes how many record frames a source holds
type layout struct {
	// records is the number of records the readers will produce
	records int
	// partial is the size of the trailing incomplete frame, 0 if there is none
	// or if the readers stop before reaching it
	partial int64
}

func newLayout(size int64, limit int) layout {
	payload := size - HeaderSize
	if payload < 0 {
		payload = 0
	}
	complete := payload / RecordSize
	l := layout{records: int(complete), partial: payload % RecordSize}
	// a limit that is reached on the last complete frame stops before the tail
	if limit >= 0 && int64(limit) <= complete {
		l.records = limit
		l.partial = 0
	}
	return l
}

// FrameCount returns the number of complete record frames in a CSC file of the
// given size and the size of a trailing partial frame
func FrameCount(size int64) (int, int64) {
	l := newLayout(size, NoLimit)
	return l.records, l.partial
}

// readFrame fills buf completely or fails with ErrShortRead
func readFrame(r io.Reader, buf []byte, what string, index int) error {
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrShortRead{What: what, Index: index, Want: len(buf), Got: n}
	}
	return err
}

func readHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if err := readFrame(r, buf, WhatHeader, -1); err != nil {
		return nil, err
	}
	return DecodeHeader(buf)
}
