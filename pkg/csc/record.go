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
	"encoding/binary"
	"errors"
)

const (
	// RecordSize is the size of one record frame
	RecordSize = 1044
	// SamplesPerRecord is the sample slot capacity of a record
	SamplesPerRecord = 512
	// recordHeaderSize is the part of the frame before the samples
	recordHeaderSize = 20
)

/*
Record frame layout, little endian

timestamp [0:8]
channel number [8:12]
sample frequency [12:16]
number of valid samples [16:20]
samples [20:1044] 512 x int16
*/

// Record is one decoded record frame.
// Samples is an array so a Record never shares memory with the buffer it was decoded from.
type Record struct {
	// Timestamp in device clock units (microseconds)
	Timestamp       uint64
	ChannelNumber   uint32
	SampleFrequency uint32
	// NumValidSamples tells how many leading slots of Samples hold real data
	NumValidSamples uint32
	Samples         [SamplesPerRecord]int16
}

// DecodeRecord decodes exactly RecordSize bytes
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if len(data) != RecordSize {
		return r, errors.New("CSC record frame must be exactly 1044 bytes")
	}
	r.Timestamp = binary.LittleEndian.Uint64(data[0:8])
	r.ChannelNumber = binary.LittleEndian.Uint32(data[8:12])
	r.SampleFrequency = binary.LittleEndian.Uint32(data[12:16])
	r.NumValidSamples = binary.LittleEndian.Uint32(data[16:20])
	for i := range r.Samples {
		offset := recordHeaderSize + 2*i
		r.Samples[i] = int16(binary.LittleEndian.Uint16(data[offset : offset+2]))
	}
	return r, nil
}

// Serialize writes the record frame into buf which must be at least RecordSize long
func (r *Record) Serialize(buf []byte) error {
	if len(buf) < RecordSize {
		return errors.New("Buffer too short for CSC record frame")
	}
	binary.LittleEndian.PutUint64(buf[0:8], r.Timestamp)
	binary.LittleEndian.PutUint32(buf[8:12], r.ChannelNumber)
	binary.LittleEndian.PutUint32(buf[12:16], r.SampleFrequency)
	binary.LittleEndian.PutUint32(buf[16:20], r.NumValidSamples)
	for i, s := range r.Samples {
		offset := recordHeaderSize + 2*i
		binary.LittleEndian.PutUint16(buf[offset:offset+2], uint16(s))
	}
	return nil
}

// Bytes returns the encoded record frame
func (r *Record) Bytes() []byte {
	buf := make([]byte, RecordSize)
	r.Serialize(buf)
	return buf
}

// ValidSamples returns the samples that carry data.
// Slots past NumValidSamples are padding.
func (r *Record) ValidSamples() []int16 {
	n := int(r.NumValidSamples)
	if n > SamplesPerRecord {
		n = SamplesPerRecord
	}
	return r.Samples[:n]
}
