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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-nlx/pkg/csc"
	"jinr.ru/greenlab/go-nlx/pkg/layers"
)

func channelRecord(channel uint32, generation int, valid uint32) csc.Record {
	r := csc.Record{
		Timestamp:       uint64(5000000 + generation*16000),
		ChannelNumber:   channel,
		SampleFrequency: 32000,
		NumValidSamples: valid,
	}
	for i := range r.Samples {
		r.Samples[i] = int16(int(channel)*1000 - generation*100 - i)
	}
	return r
}

type sliceIterator struct {
	records []csc.Record
	index   int
	err     error
}

func (s *sliceIterator) Next() (csc.Record, error) {
	if s.index == len(s.records) {
		if s.err != nil {
			return csc.Record{}, s.err
		}
		return csc.Record{}, io.EOF
	}
	r := s.records[s.index]
	s.index++
	return r, nil
}

func (s *sliceIterator) Count() int {
	return len(s.records)
}

func TestCscToPackets(t *testing.T) {
	records := []csc.Record{
		channelRecord(0, 0, csc.SamplesPerRecord),
		channelRecord(1, 0, csc.SamplesPerRecord),
		channelRecord(2, 0, csc.SamplesPerRecord),
	}
	packets, err := CscToPackets(records, 100)
	require.NoError(t, err)
	require.Len(t, packets, csc.SamplesPerRecord)

	// 1000000 / 32000 truncates to 31
	for i, p := range packets {
		assert.Equal(t, int32(100+i), p.PacketID)
		assert.Equal(t, int32(layers.NlxStx), p.Stx)
		assert.Equal(t, int32(layers.NlxPacketSize), p.PacketSize)
		assert.Equal(t, uint64(5000000+31*i), p.Timestamp())
		assert.Equal(t, int32(0), p.Status)
		assert.Equal(t, uint32(0), p.ParallelInputPort)
		assert.Equal(t, [layers.NlxExtrasLength]int32{}, p.Extras)
		assert.Equal(t, int32(0), p.Crc)
		require.Len(t, p.Data, 3)
		for ch := range records {
			assert.Equal(t, int32(records[ch].Samples[i]), p.Data[ch])
		}
	}
}

func TestCscToPacketsMismatch(t *testing.T) {
	records := []csc.Record{
		channelRecord(0, 0, 512),
		channelRecord(1, 0, 511),
	}
	_, err := CscToPackets(records, 0)
	var mismatch ErrSampleCountMismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 1, mismatch.Channel)
	assert.Equal(t, uint32(511), mismatch.Got)
	assert.Equal(t, uint32(512), mismatch.Want)
}

func TestCscToPacketsPreconditions(t *testing.T) {
	_, err := CscToPackets(nil, 0)
	assert.Equal(t, ErrNoChannels, err)

	r := channelRecord(0, 0, 4)
	r.SampleFrequency = 0
	_, err = CscToPackets([]csc.Record{r}, 0)
	assert.Equal(t, ErrZeroFrequency, err)
}

func TestCscToPacketsValidCount(t *testing.T) {
	packets, err := CscToPackets([]csc.Record{channelRecord(0, 0, 4)}, 0)
	require.NoError(t, err)
	assert.Len(t, packets, 4)

	packets, err = CscToPackets([]csc.Record{channelRecord(0, 0, 0)}, 0)
	require.NoError(t, err)
	assert.Empty(t, packets)
}

func TestSamplePeriod(t *testing.T) {
	assert.Equal(t, 31*time.Microsecond, SamplePeriod(32000))
	assert.Equal(t, time.Millisecond, SamplePeriod(1000))
	assert.Equal(t, time.Duration(0), SamplePeriod(0))
}

func TestPacketStream(t *testing.T) {
	channels := []RecordIterator{
		&sliceIterator{records: []csc.Record{channelRecord(0, 0, 4), channelRecord(0, 1, 4)}},
		&sliceIterator{records: []csc.Record{channelRecord(1, 0, 4), channelRecord(1, 1, 4), channelRecord(1, 2, 4)}},
	}
	stream, err := NewPacketStream(channels, 10)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), stream.SamplePeriod())

	var packets []*layers.NlxLayer
	for {
		p, err := stream.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		packets = append(packets, p)
	}
	require.Len(t, packets, 8)
	for i, p := range packets {
		assert.Equal(t, int32(10+i), p.PacketID)
	}
	// the second generation starts from its own record timestamp
	assert.Equal(t, uint64(5016000), packets[4].Timestamp())
	assert.Equal(t, int32(channelRecord(1, 1, 4).Samples[2]), packets[6].Data[1])
	assert.Equal(t, 31*time.Microsecond, stream.SamplePeriod())
	assert.Equal(t, 2, stream.Generation())
	assert.Equal(t, int32(18), stream.NextID())

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestPacketStreamPartialFrame(t *testing.T) {
	channels := []RecordIterator{
		&sliceIterator{records: []csc.Record{channelRecord(0, 0, 2)}, err: csc.ErrPartialFrame{Remainder: 10}},
	}
	stream, err := NewPacketStream(channels, 0)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := stream.Next()
		require.NoError(t, err)
	}
	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestPacketStreamErrors(t *testing.T) {
	_, err := NewPacketStream(nil, 0)
	assert.Equal(t, ErrNoChannels, err)

	failure := errors.New("disk error")
	stream, err := NewPacketStream([]RecordIterator{&sliceIterator{err: failure}}, 0)
	require.NoError(t, err)
	_, err = stream.Next()
	assert.Equal(t, failure, err)

	stream, err = NewPacketStream([]RecordIterator{
		&sliceIterator{records: []csc.Record{channelRecord(0, 0, 4)}},
		&sliceIterator{records: []csc.Record{channelRecord(1, 0, 3)}},
	}, 0)
	require.NoError(t, err)
	_, err = stream.Next()
	var mismatch ErrSampleCountMismatch
	assert.True(t, errors.As(err, &mismatch))
}
