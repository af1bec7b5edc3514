// SPDX-License-Identifier: MIT
package tui

import (
	"strings"

	"spectrum/internal/render"
)

// Braille dot positions (col, row) → bit offset:
//
//	(0,0)=0  (1,0)=3
//	(0,1)=1  (1,1)=4
//	(0,2)=2  (1,2)=5
//	(0,3)=6  (1,3)=7
var brailleBits = [2][4]uint{
	{0, 1, 2, 6},
	{3, 4, 5, 7},
}

// Braille rasterizes fb with one braille cell per 2x4 pixels, so a 128x64
// panel fits in 64 columns by 16 lines.
func Braille(fb *render.FrameBuffer) string {
	res := fb.Resolution()
	cols := (res.Width + 1) / 2
	rows := (res.Height + 3) / 4

	var sb strings.Builder
	sb.Grow(rows * (cols*3 + 1))
	for row := range rows {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for col := range cols {
			var pattern uint
			for dx := range 2 {
				for dy := range 4 {
					if fb.Pixel(col*2+dx, row*4+dy) {
						pattern |= 1 << brailleBits[dx][dy]
					}
				}
			}
			sb.WriteRune(rune(0x2800 + pattern))
		}
	}
	return sb.String()
}
