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
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	// HeaderSize is the size of the text header in the beginning of each CSC file
	HeaderSize = 16384
	// HeaderKeyMarker starts every meaningful header line, e.g. "-SamplingFrequency 32000"
	HeaderKeyMarker = '-'
)

// Header is the key/value part of the CSC text header
type Header struct {
	dict map[string]string
}

// DecodeHeader parses a HeaderSize bytes long header frame.
// Every byte is one ISO 8859-1 character, so decoding itself never fails.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) != HeaderSize {
		return nil, ErrShortRead{What: WhatHeader, Index: -1, Want: HeaderSize, Got: len(data)}
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, err
	}

	dict := make(map[string]string)
	for _, line := range strings.Split(string(text), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if len(line) == 0 || line[0] != HeaderKeyMarker {
			continue
		}
		key, value, found := strings.Cut(line[1:], " ")
		if !found {
			continue
		}
		dict[key] = value
	}
	return &Header{dict: dict}, nil
}

// NewHeader builds a header from a mapping. The mapping is copied.
func NewHeader(dict map[string]string) *Header {
	h := &Header{dict: make(map[string]string, len(dict))}
	for k, v := range dict {
		h.dict[k] = v
	}
	return h
}

func (h *Header) Get(key string) (string, bool) {
	v, ok := h.dict[key]
	return v, ok
}

func (h *Header) Len() int {
	return len(h.dict)
}

// Keys returns header keys in lexical order
func (h *Header) Keys() []string {
	keys := make([]string, 0, len(h.dict))
	for k := range h.dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the header mapping
func (h *Header) Map() map[string]string {
	m := make(map[string]string, len(h.dict))
	for k, v := range h.dict {
		m[k] = v
	}
	return m
}

// Float parses the first whitespace separated field of the value
func (h *Header) Float(key string) (float64, bool) {
	field, ok := h.field(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (h *Header) Int(key string) (int64, bool) {
	field, ok := h.field(key)
	if !ok {
		return 0, false
	}
	i, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

func (h *Header) field(key string) (string, bool) {
	v, ok := h.dict[key]
	if !ok {
		return "", false
	}
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}
