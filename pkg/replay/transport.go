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
	"fmt"
	"net"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"jinr.ru/greenlab/go-nlx/pkg/log"
	"jinr.ru/greenlab/go-nlx/pkg/timeutil"
)

const (
	// pcapSnapLen is large enough for any UDP datagram
	pcapSnapLen = 65536
	// pcapSrcPort is the source port written into dumped datagrams
	pcapSrcPort = 26091
)

// Sender hands serialized packets over to the network
type Sender interface {
	Send(data []byte) error
	Close() error
}

// UDPSender sends every packet as one datagram
type UDPSender struct {
	conn    *net.UDPConn
	address string
}

func NewUDPSender(address string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create UDP connection: %w", err)
	}
	log.Info("Sending packets to %s", address)
	return &UDPSender{conn: conn, address: address}, nil
}

func (s *UDPSender) Send(data []byte) error {
	_, err := s.conn.Write(data)
	return err
}

func (s *UDPSender) Close() error {
	return s.conn.Close()
}

// PcapSender writes every packet as an Ethernet/IPv4/UDP frame into a pcap file.
// Capture timestamps come from the clock so a dump made with a virtual clock
// still carries the replay schedule.
type PcapSender struct {
	file   *os.File
	writer *pcapgo.Writer
	clock  timeutil.Clock
	eth    layers.Ethernet
	ip     layers.IPv4
	udp    layers.UDP
	buf    gopacket.SerializeBuffer
}

func NewPcapSender(path string, destination string, clock timeutil.Clock) (*PcapSender, error) {
	dst, err := net.ResolveUDPAddr("udp4", destination)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination address: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	writer := pcapgo.NewWriter(file)
	if err := writer.WriteFileHeader(pcapSnapLen, layers.LinkTypeEthernet); err != nil {
		file.Close()
		return nil, err
	}
	s := &PcapSender{
		file:   file,
		writer: writer,
		clock:  clock,
		eth: layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01},
			DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 0x02},
			EthernetType: layers.EthernetTypeIPv4,
		},
		ip: layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(127, 0, 0, 1).To4(),
			DstIP:    dst.IP.To4(),
		},
		udp: layers.UDP{
			SrcPort: pcapSrcPort,
			DstPort: layers.UDPPort(dst.Port),
		},
		buf: gopacket.NewSerializeBuffer(),
	}
	if s.ip.DstIP == nil {
		s.ip.DstIP = s.ip.SrcIP
	}
	if err := s.udp.SetNetworkLayerForChecksum(&s.ip); err != nil {
		file.Close()
		return nil, err
	}
	log.Info("Writing packets to %s", path)
	return s, nil
}

func (s *PcapSender) Send(data []byte) error {
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(s.buf, opts, &s.eth, &s.ip, &s.udp, gopacket.Payload(data)); err != nil {
		return err
	}
	frame := s.buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     s.clock.Now(),
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	return s.writer.WritePacket(ci, frame)
}

func (s *PcapSender) Close() error {
	return s.file.Close()
}
