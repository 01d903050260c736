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

package layers

import (
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-nlx/pkg/log"
)

func init() {
	RegisterNlxPort(NlxDefaultPort)
}

const (
	// NlxLayerNum identifies the layer
	NlxLayerNum = 1990
	// NlxStx is the start marker of every packet
	NlxStx = 2048
	// NlxDefaultPort is the UDP port acquisition systems send packets to
	NlxDefaultPort = 26090
	// NlxExtrasLength is the number of extra words in the fixed prefix.
	// The declared packet size counts them together with the data words.
	NlxExtrasLength = 10
	// NlxPrefixSize is 7 scalar words plus the extras
	NlxPrefixSize = 7*4 + NlxExtrasLength*4
	// NlxCrcSize is the size of the trailing checksum word
	NlxCrcSize = 4
	// MaxUDPPayload is the largest payload of an IPv4 UDP datagram
	MaxUDPPayload = 65507
	// NlxMaxPacketSize bounds the declared packet size so that a packet always fits
	// into one datagram. The wire format itself has no such bound.
	NlxMaxPacketSize = (MaxUDPPayload-NlxPrefixSize-NlxCrcSize)/4 + NlxExtrasLength
	// NlxPacketSize is the packet size receivers expect regardless of the channel count
	NlxPacketSize = 1044
)

/*
Packet layout, little endian

stx [0:4]
packet id [4:8]
packet size [8:12] number of extras + number of data words
timestamp high [12:16]
timestamp low [16:20]
status [20:24]
parallel input port [24:28]
extras [28:68] 10 x int32
data [68:68+4*(packet size-10)] int32
crc [last 4 bytes]
*/

// NlxLayer is one acquisition packet. Data holds one sample per channel.
type NlxLayer struct {
	layers.BaseLayer
	Stx               int32
	PacketID          int32
	PacketSize        int32
	TimestampHigh     uint32
	TimestampLow      uint32
	Status            int32
	ParallelInputPort uint32
	Extras            [NlxExtrasLength]int32
	Data              []int32
	Crc               int32
}

var NlxLayerType = gopacket.RegisterLayerType(NlxLayerNum,
	gopacket.LayerTypeMetadata{Name: "NlxLayerType", Decoder: gopacket.DecodeFunc(decodeNlxLayer)})

// RegisterNlxPort makes gopacket decode UDP datagrams on port as Nlx packets
func RegisterNlxPort(port uint16) {
	layers.RegisterUDPPortLayerType(layers.UDPPort(port), NlxLayerType)
}

// NewNlxLayer creates a packet whose declared size matches its data
func NewNlxLayer(packetID int32, timestamp uint64, data []int32) *NlxLayer {
	l := &NlxLayer{
		Stx:        NlxStx,
		PacketID:   packetID,
		PacketSize: int32(NlxExtrasLength + len(data)),
		Data:       data,
	}
	l.SetTimestamp(timestamp)
	return l
}

// LayerType returns the type of the Nlx layer in the layer catalog
func (l *NlxLayer) LayerType() gopacket.LayerType {
	return NlxLayerType
}

func (l *NlxLayer) CanDecode() gopacket.LayerClass {
	return NlxLayerType
}

func (l *NlxLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

// Timestamp joins the high and low timestamp words
func (l *NlxLayer) Timestamp() uint64 {
	return uint64(l.TimestampHigh)<<32 | uint64(l.TimestampLow)
}

func (l *NlxLayer) SetTimestamp(timestamp uint64) {
	l.TimestampHigh = uint32(timestamp >> 32)
	l.TimestampLow = uint32(timestamp & 0xffffffff)
}

// Len is the number of bytes the packet takes on the wire
func (l *NlxLayer) Len() int {
	return NlxPrefixSize + 4*len(l.Data) + NlxCrcSize
}

// Checksum XORs every word of the packet including the crc word itself.
// Neither decoding nor serializing checks it.
func (l *NlxLayer) Checksum() uint32 {
	sum := uint32(l.Stx)
	sum ^= uint32(l.PacketID)
	sum ^= uint32(l.PacketSize)
	sum ^= l.TimestampHigh
	sum ^= l.TimestampLow
	sum ^= uint32(l.Status)
	sum ^= l.ParallelInputPort
	for _, v := range l.Extras {
		sum ^= uint32(v)
	}
	for _, v := range l.Data {
		sum ^= uint32(v)
	}
	sum ^= uint32(l.Crc)
	return sum
}

// VerifyChecksum reports whether the crc word balances the rest of the packet
func (l *NlxLayer) VerifyChecksum() bool {
	return l.Checksum() == 0
}

// bodyLength validates the declared packet size and returns the number of data words
func bodyLength(packetSize int32) (int, error) {
	if packetSize < NlxExtrasLength || packetSize > NlxMaxPacketSize {
		return 0, ErrDeclaredLength{Count: packetSize}
	}
	return int(packetSize) - NlxExtrasLength, nil
}

func (l *NlxLayer) decodePrefix(buf []byte) {
	l.Stx = int32(binary.LittleEndian.Uint32(buf[0:4]))
	l.PacketID = int32(binary.LittleEndian.Uint32(buf[4:8]))
	l.PacketSize = int32(binary.LittleEndian.Uint32(buf[8:12]))
	l.TimestampHigh = binary.LittleEndian.Uint32(buf[12:16])
	l.TimestampLow = binary.LittleEndian.Uint32(buf[16:20])
	l.Status = int32(binary.LittleEndian.Uint32(buf[20:24]))
	l.ParallelInputPort = binary.LittleEndian.Uint32(buf[24:28])
	for i := range l.Extras {
		offset := 28 + 4*i
		l.Extras[i] = int32(binary.LittleEndian.Uint32(buf[offset : offset+4]))
	}
}

// decodeBody reads data words and the crc word, buf must hold exactly both
func (l *NlxLayer) decodeBody(buf []byte, n int) {
	l.Data = make([]int32, n)
	for i := range l.Data {
		l.Data[i] = int32(binary.LittleEndian.Uint32(buf[4*i : 4*i+4]))
	}
	l.Crc = int32(binary.LittleEndian.Uint32(buf[4*n : 4*n+4]))
}

// DecodeFromBytes decodes a packet. The body length is taken from the declared
// packet size, the wire format carries no other length field.
func (l *NlxLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < NlxPrefixSize {
		df.SetTruncated()
		return ErrPacketTruncated{Want: NlxPrefixSize, Got: len(data)}
	}
	l.decodePrefix(data[:NlxPrefixSize])

	n, err := bodyLength(l.PacketSize)
	if err != nil {
		return err
	}
	total := NlxPrefixSize + 4*n + NlxCrcSize
	if len(data) < total {
		df.SetTruncated()
		return ErrPacketTruncated{Want: total, Got: len(data)}
	}
	l.decodeBody(data[NlxPrefixSize:total], n)

	l.BaseLayer = layers.BaseLayer{
		Contents: data[:total],
		Payload:  data[total:],
	}
	return nil
}

// SerializeTo serializes the Nlx layer into bytes and writes the bytes to the SerializeBuffer.
// FixLengths rewrites PacketSize from the data length.
// ComputeChecksums sets Crc so that Checksum of the packet is zero.
func (l *NlxLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if opts.FixLengths {
		l.PacketSize = int32(NlxExtrasLength + len(l.Data))
	}
	if opts.ComputeChecksums {
		l.Crc = 0
		l.Crc = int32(l.Checksum())
	}

	buf, err := b.PrependBytes(l.Len())
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(l.Stx))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(l.PacketID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(l.PacketSize))
	binary.LittleEndian.PutUint32(buf[12:16], l.TimestampHigh)
	binary.LittleEndian.PutUint32(buf[16:20], l.TimestampLow)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(l.Status))
	binary.LittleEndian.PutUint32(buf[24:28], l.ParallelInputPort)
	for i, v := range l.Extras {
		offset := 28 + 4*i
		binary.LittleEndian.PutUint32(buf[offset:offset+4], uint32(v))
	}
	for i, v := range l.Data {
		offset := NlxPrefixSize + 4*i
		binary.LittleEndian.PutUint32(buf[offset:offset+4], uint32(v))
	}
	binary.LittleEndian.PutUint32(buf[len(buf)-4:], uint32(l.Crc))
	return nil
}

// Serialize returns the wire bytes of the packet
func (l *NlxLayer) Serialize(opts gopacket.SerializeOptions) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, opts, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadNlxLayer decodes one packet from a stream, reading the prefix first
// and then as many data words as the declared packet size asks for.
func ReadNlxLayer(r io.Reader) (*NlxLayer, error) {
	prefix := make([]byte, NlxPrefixSize)
	if n, err := io.ReadFull(r, prefix); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrPacketTruncated{Want: NlxPrefixSize, Got: n}
		}
		return nil, err
	}
	l := &NlxLayer{}
	l.decodePrefix(prefix)

	n, err := bodyLength(l.PacketSize)
	if err != nil {
		return nil, err
	}
	body := make([]byte, 4*n+NlxCrcSize)
	if m, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrPacketTruncated{Want: NlxPrefixSize + len(body), Got: NlxPrefixSize + m}
		}
		return nil, err
	}
	l.decodeBody(body, n)
	l.BaseLayer = layers.BaseLayer{Contents: append(prefix, body...)}
	return l, nil
}

func decodeNlxLayer(data []byte, p gopacket.PacketBuilder) error {
	l := &NlxLayer{}
	err := l.DecodeFromBytes(data, p)
	if err != nil {
		log.Debug("Error while decoding Nlx layer: %s\n%s", err, hex.Dump(data))
		return err
	}
	p.AddLayer(l)
	return nil
}
