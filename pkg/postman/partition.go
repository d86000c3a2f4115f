package postman

import (
	"errors"
	"fmt"
)

// ErrInvalidFleet is returned when a circuit is split for fewer than one
// vehicle or more than MaxSegments.
var ErrInvalidFleet = errors.New("invalid fleet size")

// MaxSegments is the largest vehicle count Partition accepts.
const MaxSegments = 10_000

// Segment is the contiguous part of a circuit assigned to one vehicle.
type Segment struct {
	Steps  Circuit
	Length uint64 // millimeters
}

// Partition splits c into exactly n contiguous segments of near-equal
// length, preserving order. Walking the circuit, a non-empty segment is
// closed before a step that would push it strictly over total/n, as long
// as fewer than n-1 segments are closed; the last segment takes the rest.
// A step longer than total/n opens a segment on its own rather than closing
// an empty one. Segments past the end of the circuit are empty.
func Partition(c Circuit, n int) ([]Segment, error) {
	if n < 1 || n > MaxSegments {
		return nil, fmt.Errorf("%w: %d vehicles (allowed 1 to %d)", ErrInvalidFleet, n, MaxSegments)
	}

	total := c.Length()
	segs := make([]Segment, 0, n)

	start := 0
	var cur uint64
	for i, s := range c {
		w := uint64(s.Weight)
		// cur+w > total/n, kept in integers so no length is lost to rounding.
		if i > start && len(segs) < n-1 && (cur+w)*uint64(n) > total {
			segs = append(segs, Segment{Steps: c[start:i:i], Length: cur})
			start, cur = i, 0
		}
		cur += w
	}
	segs = append(segs, Segment{Steps: c[start:len(c):len(c)], Length: cur})

	for len(segs) < n {
		segs = append(segs, Segment{Steps: Circuit{}})
	}
	return segs, nil
}
