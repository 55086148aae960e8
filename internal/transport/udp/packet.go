// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

/*
Sync Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Tier              | uint8          | 1            | 0 low, 1 medium, 2 high |
| Flags             | uint8          | 1            | See Flag* constants     |
| Beat Index        | int32          | 4            | -1 without a track      |
| Progress          | float64        | 8            | Music position in ms    |
| Rate              | float32        | 4            | Applied playback rate   |
| Scale             | float32        | 4            | Loudness scale          |
| Drift             | float32        | 4            | Video drift in seconds  |
| Accuracy          | float32        | 4            | Beat accuracy, percent  |
+-----------------------------------------------------------------------------+
*/

// PacketSize is the encoded size of a Packet.
const PacketSize = 42

// Flag bits.
const (
	FlagPlaying uint8 = 1 << iota
	FlagWorker
	FlagBufferStale
)

// Packet is one sync state datagram.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	Tier       uint8
	Flags      uint8
	BeatIndex  int32
	ProgressMs float64
	Rate       float32
	Scale      float32
	Drift      float32
	Accuracy   float32
}

// MarshalTo appends the encoded packet to buf after resetting it.
func (p *Packet) MarshalTo(buf *bytes.Buffer) error {
	buf.Reset()
	return binary.Write(buf, binary.BigEndian, p)
}

// UnmarshalPacket decodes a datagram produced by MarshalTo.
func UnmarshalPacket(data []byte) (Packet, error) {
	var p Packet
	if len(data) != PacketSize {
		return p, fmt.Errorf("sync packet: got %d bytes, want %d", len(data), PacketSize)
	}
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &p); err != nil {
		return p, fmt.Errorf("sync packet: %w", err)
	}
	return p, nil
}

// Has reports whether flag is set.
func (p Packet) Has(flag uint8) bool {
	return p.Flags&flag != 0
}
