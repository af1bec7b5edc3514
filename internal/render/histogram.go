// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"math"
	"strings"
)

// Grouping selects how bins are distributed across columns.
type Grouping int

const (
	// Linear gives every column the same number of bins, starting at DC.
	Linear Grouping = iota
	// Log spaces column edges logarithmically from bin 1, giving the low
	// end more columns.
	Log
)

// ParseGrouping converts "linear" or "log" to a Grouping.
func ParseGrouping(name string) (Grouping, error) {
	switch strings.ToLower(name) {
	case "linear":
		return Linear, nil
	case "log", "logarithmic":
		return Log, nil
	}
	return Linear, fmt.Errorf("render: unknown grouping %q", name)
}

func (g Grouping) String() string {
	if g == Log {
		return "log"
	}
	return "linear"
}

// Aggregate selects how the bins of a column are combined.
type Aggregate int

const (
	Max Aggregate = iota
	// Mean averages the bins' levels. Levels are logarithmic, so this is a
	// log-mean of the magnitudes.
	Mean
)

// ParseAggregate converts "max" or "mean" to an Aggregate.
func ParseAggregate(name string) (Aggregate, error) {
	switch strings.ToLower(name) {
	case "max":
		return Max, nil
	case "mean", "avg", "average":
		return Mean, nil
	}
	return Max, fmt.Errorf("render: unknown aggregate %q", name)
}

func (a Aggregate) String() string {
	if a == Mean {
		return "mean"
	}
	return "max"
}

// Histogram maps spectrum bins onto display columns. Each column covers a
// contiguous, non-empty range of bins; ranges are precomputed.
type Histogram struct {
	edges    []int // Column c covers bins [edges[c], edges[c+1]).
	grouping Grouping
	agg      Aggregate
}

// NewHistogram distributes bins over columns.
func NewHistogram(bins, columns int, g Grouping, a Aggregate) (*Histogram, error) {
	if columns < 1 || bins < 1 {
		return nil, fmt.Errorf("render: invalid histogram of %d bins over %d columns", bins, columns)
	}

	edges := make([]int, columns+1)
	switch g {
	case Linear:
		if columns > bins {
			return nil, fmt.Errorf("render: %d columns exceed %d bins", columns, bins)
		}
		for c := range edges {
			edges[c] = c * bins / columns
		}
	case Log:
		if columns > bins-1 {
			return nil, fmt.Errorf("render: %d columns exceed %d non-DC bins", columns, bins-1)
		}
		edges[0] = 1
		edges[columns] = bins
		for c := 1; c < columns; c++ {
			e := int(math.Round(math.Pow(float64(bins), float64(c)/float64(columns))))
			// At least one bin for this column, and one left for each later one.
			e = max(e, edges[c-1]+1)
			e = min(e, bins-(columns-c))
			edges[c] = e
		}
	default:
		return nil, fmt.Errorf("render: unknown grouping %d", g)
	}

	return &Histogram{edges: edges, grouping: g, agg: a}, nil
}

// Columns returns the number of columns.
func (h *Histogram) Columns() int {
	return len(h.edges) - 1
}

// Range returns the bins [lo, hi) covered by column c.
func (h *Histogram) Range(c int) (lo, hi int) {
	return h.edges[c], h.edges[c+1]
}

// Grouping returns the bin distribution.
func (h *Histogram) Grouping() Grouping {
	return h.grouping
}

// Values aggregates levels into one value per column, written to dst.
func (h *Histogram) Values(levels []float64, dst []float64) {
	for c := range dst[:h.Columns()] {
		bins := levels[h.edges[c]:h.edges[c+1]]
		var v float64
		switch h.agg {
		case Mean:
			for _, l := range bins {
				v += l
			}
			v /= float64(len(bins))
		default:
			for _, l := range bins {
				v = max(v, l)
			}
		}
		dst[c] = v
	}
}

// Heights aggregates levels and converts them to bar heights of at most
// maxHeight pixels.
func (h *Histogram) Heights(levels []float64, maxHeight int, values []float64, dst []int) {
	h.Values(levels, values)
	for c, v := range values[:h.Columns()] {
		dst[c] = Height(v, maxHeight)
	}
}

// Height converts a level in [0, 1] to a pixel height in [0, maxHeight].
// It is monotonic non-decreasing in v.
func Height(v float64, maxHeight int) int {
	h := int(math.Round(v * float64(maxHeight)))
	return max(0, min(h, maxHeight))
}
