// SPDX-License-Identifier: MIT
package render

import "github.com/charmbracelet/harmonica"

// Ballistics smooths bar motion: bars jump up to a louder value at once and
// fall back on a critically damped spring, so they never overshoot.
type Ballistics struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

// NewBallistics returns smoothing for columns bars updated fps times per
// second.
func NewBallistics(columns int, fps float64) *Ballistics {
	return &Ballistics{
		spring: harmonica.NewSpring(harmonica.FPS(max(int(fps), 1)), 12.0, 1.0),
		pos:    make([]float64, columns),
		vel:    make([]float64, columns),
	}
}

// Step advances every bar one frame toward its target in values and writes
// the smoothed positions back.
func (b *Ballistics) Step(values []float64) {
	for i, target := range values[:len(b.pos)] {
		if target >= b.pos[i] {
			b.pos[i], b.vel[i] = target, 0
			continue
		}
		p, v := b.spring.Update(b.pos[i], b.vel[i], target)
		b.pos[i], b.vel[i] = max(p, target), v
		values[i] = b.pos[i]
	}
}
