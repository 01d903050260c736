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

package srv

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-nlx/pkg/config"
	"jinr.ru/greenlab/go-nlx/pkg/csc"
	"jinr.ru/greenlab/go-nlx/pkg/layers"
	"jinr.ru/greenlab/go-nlx/pkg/replay"
)

func receiveConfig(verify bool) *config.ReceiveConfig {
	cfg := config.NewDefaultConfig().Receive
	cfg.Address = "127.0.0.1"
	cfg.Port = 0
	cfg.VerifyChecksums = verify
	return cfg
}

func nlxBytes(t *testing.T, id int32, checksum bool) []byte {
	t.Helper()
	p := layers.NewNlxLayer(id, uint64(id)*31, []int32{id, -id})
	data, err := p.Serialize(gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: checksum})
	require.NoError(t, err)
	return data
}

func TestReceiverHandle(t *testing.T) {
	r, err := NewReceiver(context.Background(), receiveConfig(true))
	require.NoError(t, err)

	for _, data := range [][]byte{
		nlxBytes(t, 1, true),
		nlxBytes(t, 2, true),
		nlxBytes(t, 4, false),
		nlxBytes(t, 5, true)[:20],
		nlxBytes(t, 5, true),
	} {
		r.handle(gopacket.NewPacket(data, layers.NlxLayerType, gopacket.Default))
	}

	want := ReceiverStats{
		Packets:        4,
		DecodeErrors:   1,
		ChecksumErrors: 1,
		Gaps:           1,
		LastPacketID:   5,
	}
	if diff := cmp.Diff(want, r.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestReceiverNoVerify(t *testing.T) {
	r, err := NewReceiver(context.Background(), receiveConfig(false))
	require.NoError(t, err)
	r.handle(gopacket.NewPacket(nlxBytes(t, 7, false), layers.NlxLayerType, gopacket.Default))
	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.Packets)
	assert.Zero(t, stats.ChecksumErrors)
	assert.Zero(t, stats.Gaps)
	assert.Equal(t, int32(7), stats.LastPacketID)
}

// serveLoopback runs a receiver on a loopback socket, sends datagrams to it and
// waits until every datagram is accounted for
func serveLoopback(t *testing.T, verify bool, datagrams [][]byte) *Receiver {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r, err := NewReceiver(ctx, receiveConfig(verify))
	require.NoError(t, err)

	conn, err := net.ListenUDP("udp", r.UDPAddr)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- r.Serve(conn) }()

	client, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()
	for _, data := range datagrams {
		_, err := client.Write(data)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		stats := r.Stats()
		return stats.Packets+stats.DecodeErrors == uint64(len(datagrams))
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not stop")
	}
	return r
}

func TestReceiverServe(t *testing.T) {
	var datagrams [][]byte
	for id := int32(10); id < 13; id++ {
		datagrams = append(datagrams, nlxBytes(t, id, true))
	}
	stats := serveLoopback(t, true, datagrams).Stats()
	assert.Equal(t, uint64(3), stats.Packets)
	assert.Zero(t, stats.ChecksumErrors)
	assert.Zero(t, stats.Gaps)
	assert.Equal(t, int32(12), stats.LastPacketID)
}

func TestReceiverServeReadError(t *testing.T) {
	r, err := NewReceiver(context.Background(), receiveConfig(true))
	require.NoError(t, err)
	conn, err := net.ListenUDP("udp", r.UDPAddr)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- r.Serve(conn) }()

	// closing the socket under a live context ends Serve with the read error
	require.NoError(t, conn.Close())
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not stop")
	}
}

// replayedDatagrams serializes one record generation of two channels the way the replay does
func replayedDatagrams(t *testing.T, opts gopacket.SerializeOptions) [][]byte {
	t.Helper()
	records := make([]csc.Record, 2)
	for ch := range records {
		records[ch] = csc.Record{
			Timestamp:       5000000,
			ChannelNumber:   uint32(ch),
			SampleFrequency: 32000,
			NumValidSamples: 4,
		}
		for i := range records[ch].Samples {
			records[ch].Samples[i] = int16(ch*100 + i)
		}
	}
	packets, err := replay.CscToPackets(records, 100)
	require.NoError(t, err)
	require.Len(t, packets, 4)

	var datagrams [][]byte
	for _, p := range packets {
		data, err := p.Serialize(opts)
		require.NoError(t, err)
		datagrams = append(datagrams, data)
	}
	return datagrams
}

func TestReceiverReplayedPackets(t *testing.T) {
	tests := []struct {
		name   string
		opts   gopacket.SerializeOptions
		verify bool
		want   ReceiverStats
		warned bool
	}{
		{
			name:   "default replay settings",
			verify: true,
			want:   ReceiverStats{DecodeErrors: 4, FixedSizeErrors: 4},
			warned: true,
		},
		{
			name:   "fixed size and checksums",
			opts:   gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true},
			verify: true,
			want:   ReceiverStats{Packets: 4, LastPacketID: 103},
		},
		{
			name:   "fixed size without checksums",
			opts:   gopacket.SerializeOptions{FixLengths: true},
			verify: false,
			want:   ReceiverStats{Packets: 4, LastPacketID: 103},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := serveLoopback(t, tt.verify, replayedDatagrams(t, tt.opts))
			if diff := cmp.Diff(tt.want, r.Stats()); diff != "" {
				t.Errorf("stats mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.warned, r.warned)
		})
	}
}

func TestReceiverTruncatedOtherSize(t *testing.T) {
	r, err := NewReceiver(context.Background(), receiveConfig(true))
	require.NoError(t, err)
	data := nlxBytes(t, 1, true)
	r.handle(gopacket.NewPacket(data[:len(data)-4], layers.NlxLayerType, gopacket.Default))
	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.DecodeErrors)
	assert.Zero(t, stats.FixedSizeErrors)
	assert.False(t, r.warned)
}

func TestGetAddrPort(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 26090}
	packet := gopacket.NewPacket(nlxBytes(t, 1, true), layers.NlxLayerType, gopacket.Default)
	_, err := GetAddrPort(packet)
	assert.Equal(t, ErrGetAddr{}, err)

	packet.Metadata().CaptureInfo.AncillaryData = []interface{}{addr}
	got, err := GetAddrPort(packet)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}
