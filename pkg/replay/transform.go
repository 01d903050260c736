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
	"time"

	"jinr.ru/greenlab/go-nlx/pkg/csc"
	"jinr.ru/greenlab/go-nlx/pkg/layers"
)

// microsecondsPerSecond converts a sampling frequency into a timestamp step
const microsecondsPerSecond = 1000000

// samplePeriod is the integer timestamp step between samples in microseconds.
// Fractional periods are truncated.
func samplePeriod(frequency uint32) uint64 {
	return microsecondsPerSecond / uint64(frequency)
}

// SamplePeriod is the wall clock period between packets of a channel sampled at frequency
func SamplePeriod(frequency uint32) time.Duration {
	if frequency == 0 {
		return 0
	}
	return time.Duration(samplePeriod(frequency)) * time.Microsecond
}

// CscToPackets turns one record per channel, all of the same generation, into
// one packet per sample. Packet i carries sample i of every channel in the order
// of records and gets id firstID+i.
func CscToPackets(records []csc.Record, firstID int32) ([]*layers.NlxLayer, error) {
	if len(records) == 0 {
		return nil, ErrNoChannels
	}
	first := &records[0]
	want := first.NumValidSamples
	for i := range records {
		if records[i].NumValidSamples != want {
			return nil, ErrSampleCountMismatch{
				Channel: i,
				Got:     records[i].NumValidSamples,
				Want:    want,
			}
		}
	}
	if first.SampleFrequency == 0 {
		return nil, ErrZeroFrequency
	}
	period := samplePeriod(first.SampleFrequency)

	count := len(first.ValidSamples())
	packets := make([]*layers.NlxLayer, count)
	for i := 0; i < count; i++ {
		data := make([]int32, len(records))
		for ch := range records {
			data[ch] = int32(records[ch].Samples[i])
		}
		packet := layers.NewNlxLayer(firstID+int32(i), first.Timestamp+uint64(i)*period, data)
		packet.PacketSize = layers.NlxPacketSize
		packets[i] = packet
	}
	return packets, nil
}
