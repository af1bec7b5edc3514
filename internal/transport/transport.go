// SPDX-License-Identifier: MIT
// Package transport provides network display sinks. They mirror the panel
// image to remote viewers; nothing but the rendered frame leaves the process.
package transport

import (
	"encoding/binary"
	"errors"
	"time"

	"spectrum/internal/render"
)

/*
Frame packet (BigEndian), shared by the WebSocket and UDP sinks.

|<- 4 Bytes ->|<----- 8 Bytes ----->|<-- 2 -->|<-- 2 -->|<-- W*H/8 Bytes -->|
+-------------+---------------------+---------+---------+-------------------+
|  Sequence   |      Timestamp      |  Width  | Height  |     Page data     |
|  (uint32)   |  (int64, ns epoch)  | (uint16)| (uint16)|  (SSD1306 layout) |
+-------------+---------------------+---------+---------+-------------------+

Page data byte i covers column i%W of page i/W; bit 0 is the top pixel.
*/

// HeaderSize is the length of the frame packet header.
const HeaderSize = 4 + 8 + 2 + 2

// ErrShortPacket is returned when decoding a truncated packet.
var ErrShortPacket = errors.New("transport: short frame packet")

// PacketSize returns the packet length for a resolution.
func PacketSize(res render.Resolution) int {
	return HeaderSize + res.Size()
}

// AppendFrame appends the packet for fb to dst. It does not allocate when
// dst has enough capacity.
func AppendFrame(dst []byte, fb *render.FrameBuffer, ts time.Time) []byte {
	res := fb.Resolution()
	dst = binary.BigEndian.AppendUint32(dst, uint32(fb.Seq))
	dst = binary.BigEndian.AppendUint64(dst, uint64(ts.UnixNano()))
	dst = binary.BigEndian.AppendUint16(dst, uint16(res.Width))
	dst = binary.BigEndian.AppendUint16(dst, uint16(res.Height))
	return append(dst, fb.Bytes()...)
}

// Header is a decoded packet header.
type Header struct {
	Seq       uint32
	Timestamp time.Time
	Res       render.Resolution
}

// DecodeFrame parses a packet into its header and a new frame buffer.
func DecodeFrame(p []byte) (Header, *render.FrameBuffer, error) {
	if len(p) < HeaderSize {
		return Header{}, nil, ErrShortPacket
	}
	h := Header{
		Seq:       binary.BigEndian.Uint32(p[0:4]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(p[4:12]))),
		Res: render.Resolution{
			Width:  int(binary.BigEndian.Uint16(p[12:14])),
			Height: int(binary.BigEndian.Uint16(p[14:16])),
		},
	}
	if err := h.Res.Validate(); err != nil {
		return h, nil, err
	}
	if len(p)-HeaderSize < h.Res.Size() {
		return h, nil, ErrShortPacket
	}
	fb := render.NewFrameBuffer(h.Res)
	copy(fb.Bytes(), p[HeaderSize:])
	fb.Seq = uint64(h.Seq)
	return h, fb, nil
}
