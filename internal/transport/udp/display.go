// SPDX-License-Identifier: MIT
// Package udp sends frames to a networked panel as datagrams.
package udp

import (
	"fmt"
	"sync/atomic"
	"time"

	"spectrum/internal/display"
	"spectrum/internal/log"
	"spectrum/internal/render"
	"spectrum/internal/transport"
)

// Display sends each blitted frame as one transport frame packet. A failed
// send is reported as a bus error: the frame is lost and the next one is
// attempted normally.
type Display struct {
	target string
	sender *Sender

	orientation render.Orientation
	rotated     *render.FrameBuffer
	packet      []byte
	now         func() time.Time

	sent atomic.Uint64
}

// NewDisplay returns a sink for the panel at target ("host:port"). The
// socket is opened by Configure.
func NewDisplay(target string) *Display {
	return &Display{target: target, now: time.Now}
}

func (d *Display) Configure(res render.Resolution, o render.Orientation) error {
	if err := res.Validate(); err != nil {
		return err
	}
	if size := transport.PacketSize(res); size > 65507 {
		return fmt.Errorf("udp: %s frame needs %d bytes, over the datagram limit", res, size)
	}

	sender, err := NewSender(d.target)
	if err != nil {
		return err
	}
	d.sender = sender
	d.orientation = o
	d.rotated = render.NewFrameBuffer(res)
	d.packet = make([]byte, 0, transport.PacketSize(res))
	log.Infof("UDPDisplay: %s panel at %s, rotation %s", res, d.target, o)
	return nil
}

func (d *Display) Blit(fb *render.FrameBuffer) error {
	render.RotateInto(d.rotated, fb, d.orientation)
	d.packet = transport.AppendFrame(d.packet[:0], d.rotated, d.now())
	if err := d.sender.Send(d.packet); err != nil {
		return fmt.Errorf("%w: %v", display.ErrBusError, err)
	}
	d.sent.Add(1)
	return nil
}

// Sent returns the number of packets sent.
func (d *Display) Sent() uint64 {
	return d.sent.Load()
}

func (d *Display) Close() error {
	if d.sender == nil {
		return nil
	}
	return d.sender.Close()
}

var _ display.Display = (*Display)(nil)
