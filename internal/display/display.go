// SPDX-License-Identifier: MIT
// Package display defines the display collaborator and the Presenter that
// feeds it off the analysis path.
package display

import (
	"errors"

	"spectrum/internal/render"
)

// ErrBusError reports a transient failure to transfer a frame to the panel.
// The frame is lost; the next one is attempted normally.
var ErrBusError = errors.New("display: bus error")

// Display is a monochrome panel sink.
type Display interface {
	// Configure prepares the panel. It is called once before the first Blit.
	Configure(res render.Resolution, o render.Orientation) error
	// Blit transfers a full frame. It may block for the duration of the
	// transfer and must not retain fb after returning.
	Blit(fb *render.FrameBuffer) error
	Close() error
}

// Null discards every frame. It counts what it receives.
type Null struct {
	Res    render.Resolution
	Frames uint64
}

func (n *Null) Configure(res render.Resolution, _ render.Orientation) error {
	if err := res.Validate(); err != nil {
		return err
	}
	n.Res = res
	return nil
}

func (n *Null) Blit(*render.FrameBuffer) error {
	n.Frames++
	return nil
}

func (n *Null) Close() error { return nil }

var _ Display = (*Null)(nil)
