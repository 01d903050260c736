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
	"io"
	"time"

	"jinr.ru/greenlab/go-nlx/pkg/csc"
	"jinr.ru/greenlab/go-nlx/pkg/layers"
	"jinr.ru/greenlab/go-nlx/pkg/log"
)

// RecordIterator is a forward only sequence of records of one channel.
// *csc.Iterator implements it.
type RecordIterator interface {
	Next() (csc.Record, error)
	Count() int
}

// PacketStream zips channel iterators together and hands out the packets
// of one record generation at a time
type PacketStream struct {
	channels   []RecordIterator
	nextID     int32
	pending    []*layers.NlxLayer
	frequency  uint32
	generation int
	done       bool
}

func NewPacketStream(channels []RecordIterator, firstID int32) (*PacketStream, error) {
	if len(channels) == 0 {
		return nil, ErrNoChannels
	}
	shortest := channels[0].Count()
	for i, ch := range channels {
		if ch.Count() != channels[0].Count() {
			log.Warning("Channel %d has %d records, channel 0 has %d", i, ch.Count(), channels[0].Count())
		}
		if ch.Count() < shortest {
			shortest = ch.Count()
		}
	}
	log.Debug("Packet stream over %d channels, %d record generations", len(channels), shortest)
	return &PacketStream{
		channels: channels,
		nextID:   firstID,
	}, nil
}

// Next returns the next packet or io.EOF once the shortest channel is exhausted
func (s *PacketStream) Next() (*layers.NlxLayer, error) {
	for len(s.pending) == 0 {
		if s.done {
			return nil, io.EOF
		}
		if err := s.advance(); err != nil {
			return nil, err
		}
	}
	packet := s.pending[0]
	s.pending = s.pending[1:]
	return packet, nil
}

// advance reads the next record generation and transforms it
func (s *PacketStream) advance() error {
	records := make([]csc.Record, len(s.channels))
	for i, ch := range s.channels {
		record, err := ch.Next()
		if err == io.EOF {
			s.done = true
			return nil
		}
		var partial csc.ErrPartialFrame
		if errors.As(err, &partial) {
			log.Warning("Channel %d ends with a partial frame of %d bytes, stopping", i, partial.Remainder)
			s.done = true
			return nil
		}
		if err != nil {
			return err
		}
		records[i] = record
	}
	packets, err := CscToPackets(records, s.nextID)
	if err != nil {
		return err
	}
	s.frequency = records[0].SampleFrequency
	s.nextID += int32(len(packets))
	s.generation++
	s.pending = packets
	return nil
}

// SamplePeriod is the period of the most recent record generation, 0 before the first one
func (s *PacketStream) SamplePeriod() time.Duration {
	return SamplePeriod(s.frequency)
}

// NextID is the id the next generated packet will get
func (s *PacketStream) NextID() int32 {
	if len(s.pending) > 0 {
		return s.pending[0].PacketID
	}
	return s.nextID
}

// Generation is the number of record generations read so far
func (s *PacketStream) Generation() int {
	return s.generation
}
