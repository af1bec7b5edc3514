// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"math/bits"
)

// Resolution is a display size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// Pages returns the number of 8-pixel rows.
func (r Resolution) Pages() int {
	return r.Height / 8
}

// Size returns the frame buffer length in bytes.
func (r Resolution) Size() int {
	return r.Width * r.Pages()
}

// Validate checks the resolution can be page addressed.
func (r Resolution) Validate() error {
	if r.Width < 1 || r.Height < 8 || r.Height%8 != 0 {
		return fmt.Errorf("render: resolution %s must have positive width and a height that is a multiple of 8", r)
	}
	return nil
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Orientation is the panel mounting rotation.
type Orientation int

const (
	Rotate0 Orientation = iota
	Rotate180
)

// ParseOrientation converts degrees to an Orientation.
func ParseOrientation(degrees int) (Orientation, error) {
	switch degrees {
	case 0:
		return Rotate0, nil
	case 180:
		return Rotate180, nil
	}
	return Rotate0, fmt.Errorf("render: unsupported orientation %d degrees", degrees)
}

func (o Orientation) String() string {
	if o == Rotate180 {
		return "180"
	}
	return "0"
}

// FrameBuffer is a monochrome image in SSD1306 page layout: byte
// page*Width+x holds the 8 vertical pixels of column x in that page, with
// the least significant bit at the top.
type FrameBuffer struct {
	res Resolution
	buf []byte
	Seq uint64 // Frame number, set by the renderer.
}

// NewFrameBuffer allocates a cleared frame buffer.
func NewFrameBuffer(res Resolution) *FrameBuffer {
	return &FrameBuffer{res: res, buf: make([]byte, res.Size())}
}

// Resolution returns the size of the image.
func (fb *FrameBuffer) Resolution() Resolution {
	return fb.res
}

// Set turns the pixel at (x, y) on or off. Out of range pixels are ignored.
func (fb *FrameBuffer) Set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= fb.res.Width || y >= fb.res.Height {
		return
	}
	i := (y>>3)*fb.res.Width + x
	mask := byte(1) << (y & 7)
	if on {
		fb.buf[i] |= mask
	} else {
		fb.buf[i] &^= mask
	}
}

// Pixel reports whether the pixel at (x, y) is on.
func (fb *FrameBuffer) Pixel(x, y int) bool {
	if x < 0 || y < 0 || x >= fb.res.Width || y >= fb.res.Height {
		return false
	}
	return fb.buf[(y>>3)*fb.res.Width+x]&(1<<(y&7)) != 0
}

// Clear turns every pixel off.
func (fb *FrameBuffer) Clear() {
	clear(fb.buf)
}

// Bytes returns the page-ordered image. The slice aliases the buffer.
func (fb *FrameBuffer) Bytes() []byte {
	return fb.buf
}

// Lit returns the number of pixels that are on.
func (fb *FrameBuffer) Lit() int {
	n := 0
	for _, b := range fb.buf {
		n += bits.OnesCount8(b)
	}
	return n
}

// CopyFrom copies src, which must have the same resolution.
func (fb *FrameBuffer) CopyFrom(src *FrameBuffer) {
	copy(fb.buf, src.buf)
	fb.Seq = src.Seq
}

// RotateInto writes src into dst rotated by o. Both must share a resolution
// and must not be the same buffer.
func RotateInto(dst, src *FrameBuffer, o Orientation) {
	if o != Rotate180 {
		dst.CopyFrom(src)
		return
	}
	// Rotating by 180 degrees reverses both the byte order and the bit
	// order within each page byte.
	n := len(src.buf)
	for i, b := range src.buf {
		dst.buf[n-1-i] = bits.Reverse8(b)
	}
	dst.Seq = src.Seq
}
