// SPDX-License-Identifier: MIT
package render

import "testing"

func TestLinearGroupingFourBinsPerColumn(t *testing.T) {
	h, err := NewHistogram(512, 128, Linear, Max)
	if err != nil {
		t.Fatal(err)
	}
	next := 0
	for c := range h.Columns() {
		lo, hi := h.Range(c)
		if lo != next || hi-lo != 4 {
			t.Fatalf("column %d covers [%d, %d), want [%d, %d)", c, lo, hi, next, next+4)
		}
		next = hi
	}
	if next != 512 {
		t.Errorf("columns end at bin %d, want 512", next)
	}
}

func TestLogGrouping(t *testing.T) {
	for _, cols := range []int{8, 32, 128, 511} {
		h, err := NewHistogram(512, cols, Log, Max)
		if err != nil {
			t.Fatal(err)
		}
		lo, _ := h.Range(0)
		if lo != 1 {
			t.Errorf("%d cols: first bin %d, want 1 (DC skipped)", cols, lo)
		}
		for c := range h.Columns() {
			lo, hi := h.Range(c)
			if hi <= lo {
				t.Fatalf("%d cols: column %d is empty [%d, %d)", cols, c, lo, hi)
			}
			if c > 0 {
				if _, prevHi := h.Range(c - 1); prevHi != lo {
					t.Fatalf("%d cols: gap before column %d", cols, c)
				}
			}
		}
		if _, hi := h.Range(cols - 1); hi != 512 {
			t.Errorf("%d cols: last bin %d, want 512", cols, hi)
		}
	}

	// The top column is much wider than the bottom one.
	h, _ := NewHistogram(512, 32, Log, Max)
	lo0, hi0 := h.Range(0)
	lo31, hi31 := h.Range(31)
	if hi31-lo31 <= 4*(hi0-lo0) {
		t.Errorf("log grouping not logarithmic: first %d bins, last %d bins", hi0-lo0, hi31-lo31)
	}
}

func TestHistogramRejectsTooManyColumns(t *testing.T) {
	if _, err := NewHistogram(512, 513, Linear, Max); err == nil {
		t.Error("linear: expected error")
	}
	if _, err := NewHistogram(512, 512, Log, Max); err == nil {
		t.Error("log: expected error")
	}
	if _, err := NewHistogram(512, 0, Linear, Max); err == nil {
		t.Error("zero columns: expected error")
	}
}

func TestAggregation(t *testing.T) {
	levels := []float64{0.25, 0.75, 0.5, 0.5, 0, 0, 1, 0}
	values := make([]float64, 2)

	h, _ := NewHistogram(8, 2, Linear, Max)
	h.Values(levels, values)
	if values[0] != 0.75 || values[1] != 1 {
		t.Errorf("max = %v", values)
	}

	h, _ = NewHistogram(8, 2, Linear, Mean)
	h.Values(levels, values)
	if values[0] != 0.5 || values[1] != 0.25 {
		t.Errorf("mean = %v", values)
	}
}

func TestHeightMonotonicAndClamped(t *testing.T) {
	prev := -1
	for i := -10; i <= 1100; i++ {
		v := float64(i) / 1000
		h := Height(v, 64)
		if h < prev {
			t.Fatalf("Height(%v) = %d < Height of smaller value %d", v, h, prev)
		}
		if h < 0 || h > 64 {
			t.Fatalf("Height(%v) = %d outside [0, 64]", v, h)
		}
		prev = h
	}
	if Height(1, 64) != 64 || Height(0, 64) != 0 || Height(0.5, 64) != 32 {
		t.Error("Height endpoints wrong")
	}
}

func TestHeights(t *testing.T) {
	h, _ := NewHistogram(4, 2, Linear, Max)
	values := make([]float64, 2)
	heights := make([]int, 2)
	h.Heights([]float64{0.25, 0, 1.5, 0}, 8, values, heights)
	if heights[0] != 2 || heights[1] != 8 {
		t.Errorf("heights = %v, want [2 8]", heights)
	}
}

func TestParseGroupingAndAggregate(t *testing.T) {
	if g, err := ParseGrouping("LOG"); err != nil || g != Log {
		t.Errorf("ParseGrouping(LOG) = %v, %v", g, err)
	}
	if _, err := ParseGrouping("mel"); err == nil {
		t.Error("mel should be rejected")
	}
	if a, err := ParseAggregate("mean"); err != nil || a != Mean {
		t.Errorf("ParseAggregate(mean) = %v, %v", a, err)
	}
	if _, err := ParseAggregate("sum"); err == nil {
		t.Error("sum should be rejected")
	}
}
