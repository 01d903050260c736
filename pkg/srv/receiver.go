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
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-nlx/pkg/config"
	"jinr.ru/greenlab/go-nlx/pkg/layers"
	"jinr.ru/greenlab/go-nlx/pkg/log"
)

const (
	InChSize        = 100
	MaxDatagramSize = 65536
)

// ReceiverStats counts what a receiver has seen so far
type ReceiverStats struct {
	Packets        uint64 `json:"packets"`
	DecodeErrors   uint64 `json:"decodeErrors"`
	ChecksumErrors uint64 `json:"checksumErrors"`
	// FixedSizeErrors counts decode errors of packets that declare the fixed
	// packet size but carry fewer data words
	FixedSizeErrors uint64 `json:"fixedSizeErrors"`
	// Gaps counts packets whose id does not follow the previous one
	Gaps         uint64 `json:"gaps"`
	LastPacketID int32  `json:"lastPacketID"`
}

// Receiver listens for replayed packets and checks them
type Receiver struct {
	Server
	cfg *config.ReceiveConfig

	mu     sync.Mutex
	stats  ReceiverStats
	seen   bool
	warned bool
}

func NewReceiver(ctx context.Context, cfg *config.ReceiveConfig) (*Receiver, error) {
	log.Info("Initializing receiver with address: %s", cfg.Listen())
	uaddr, err := net.ResolveUDPAddr("udp", cfg.Listen())
	if err != nil {
		return nil, err
	}
	return &Receiver{
		Server: Server{
			Context: ctx,
			UDPAddr: uaddr,
			ChIn:    make(chan InPacket, InChSize),
		},
		cfg: cfg,
	}, nil
}

// Run listens on the configured address until the context is done
func (r *Receiver) Run() error {
	conn, err := net.ListenUDP("udp", r.UDPAddr)
	if err != nil {
		return err
	}
	return r.Serve(conn)
}

// Serve reads packets from conn until the context is done. It closes conn.
func (r *Receiver) Serve(conn *net.UDPConn) error {
	defer conn.Close()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-r.Done():
			conn.Close()
		case <-stop:
		}
	}()

	errChan := make(chan error, 1)

	// Read packets from wire and put them to input queue
	go func() {
		defer close(r.ChIn)
		buffer := make([]byte, MaxDatagramSize)
		for {
			length, udpAddr, readErr := conn.ReadFromUDP(buffer)
			if readErr != nil {
				if r.Err() == nil {
					errChan <- readErr
				}
				return
			}
			captureInfo := gopacket.CaptureInfo{
				Length:        length,
				CaptureLength: length,
				Timestamp:     time.Now(),
				AncillaryData: []interface{}{udpAddr},
			}
			packet := InPacket{CaptureInfo: captureInfo, Data: make([]byte, length)}
			copy(packet.Data, buffer[:length])
			select {
			case r.ChIn <- packet:
			case <-r.Done():
				return
			}
		}
	}()

	source := gopacket.NewPacketSource(r, layers.NlxLayerType)
	for packet := range source.Packets() {
		r.handle(packet)
	}

	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

func (r *Receiver) handle(packet gopacket.Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	nlxLayer := packet.Layer(layers.NlxLayerType)
	if nlxLayer == nil {
		r.stats.DecodeErrors++
		if errLayer := packet.ErrorLayer(); errLayer != nil {
			log.Debug("Drop packet: %s", errLayer.Error())
			r.checkFixedSize(packet.Data(), errLayer.Error())
		}
		return
	}
	nlx := nlxLayer.(*layers.NlxLayer)
	r.stats.Packets++
	if r.cfg.VerifyChecksums && !nlx.VerifyChecksum() {
		r.stats.ChecksumErrors++
		if udpAddr, err := GetAddrPort(packet); err == nil {
			log.Debug("Checksum mismatch in packet %d from %s", nlx.PacketID, udpAddr)
		}
	}
	if r.seen && nlx.PacketID != r.stats.LastPacketID+1 {
		r.stats.Gaps++
		log.Debug("Packet id gap: %d after %d", nlx.PacketID, r.stats.LastPacketID)
	}
	r.stats.LastPacketID = nlx.PacketID
	r.seen = true
}

// checkFixedSize recognizes packets sent without --fix-packet-size. They declare
// NlxPacketSize whatever the channel count, so a strict decoder sees them truncated.
func (r *Receiver) checkFixedSize(data []byte, err error) {
	var truncated layers.ErrPacketTruncated
	if !errors.As(err, &truncated) || len(data) < 12 {
		return
	}
	if int32(binary.LittleEndian.Uint32(data[8:12])) != layers.NlxPacketSize {
		return
	}
	r.stats.FixedSizeErrors++
	if !r.warned {
		log.Warning("Packets declare the fixed size %d but carry %d bytes. Replay with --fix-packet-size to decode them",
			layers.NlxPacketSize, truncated.Got)
		r.warned = true
	}
}

// Stats returns a snapshot of the counters
func (r *Receiver) Stats() ReceiverStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
