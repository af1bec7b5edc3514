// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"testing"
	"time"

	"spectrum/internal/render"
)

var oled = render.Resolution{Width: 128, Height: 64}

func TestFramePacketRoundTrip(t *testing.T) {
	fb := render.NewFrameBuffer(oled)
	fb.Set(3, 60, true)
	fb.Set(127, 0, true)
	fb.Seq = 42
	ts := time.Unix(1700000000, 123)

	p := AppendFrame(nil, fb, ts)
	if len(p) != PacketSize(oled) || len(p) != 16+1024 {
		t.Fatalf("packet length %d", len(p))
	}
	if !bytes.Equal(p[:4], []byte{0, 0, 0, 42}) {
		t.Errorf("sequence bytes %v", p[:4])
	}
	if !bytes.Equal(p[12:16], []byte{0, 128, 0, 64}) {
		t.Errorf("resolution bytes %v", p[12:16])
	}

	h, got, err := DecodeFrame(p)
	if err != nil {
		t.Fatal(err)
	}
	if h.Seq != 42 || !h.Timestamp.Equal(ts) || h.Res != oled {
		t.Errorf("header = %+v", h)
	}
	if !got.Pixel(3, 60) || !got.Pixel(127, 0) || got.Lit() != 2 {
		t.Error("pixels lost in round trip")
	}
}

func TestDecodeFrameShort(t *testing.T) {
	fb := render.NewFrameBuffer(oled)
	p := AppendFrame(nil, fb, time.Now())
	for _, n := range []int{0, HeaderSize - 1, len(p) - 1} {
		if _, _, err := DecodeFrame(p[:n]); err == nil {
			t.Errorf("DecodeFrame(%d bytes) should fail", n)
		}
	}
}

func TestAppendFrameZeroAllocs(t *testing.T) {
	fb := render.NewFrameBuffer(oled)
	buf := make([]byte, 0, PacketSize(oled))
	ts := time.Now()
	allocs := testing.AllocsPerRun(100, func() {
		buf = AppendFrame(buf[:0], fb, ts)
	})
	if allocs > 0 {
		t.Errorf("AppendFrame allocated: %.1f", allocs)
	}
}

func TestLogDisplay(t *testing.T) {
	d := NewLogDisplay(time.Hour)
	if err := d.Configure(oled, render.Rotate0); err != nil {
		t.Fatal(err)
	}
	fb := render.NewFrameBuffer(oled)
	for y := 40; y < 64; y++ {
		fb.Set(9, y, true)
	}
	for range 3 {
		if err := d.Blit(fb); err != nil {
			t.Fatal(err)
		}
	}
	if d.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", d.Frames())
	}
	if h, c := columnPeak(fb); h != 24 || c != 9 {
		t.Errorf("columnPeak = %d at %d, want 24 at 9", h, c)
	}
}
