package mathdetect

import (
	"image"
	"math"
	"sort"

	"github.com/victoMR/testFlow/internal/preprocess"
)

// descriptors holds the four shape measurements used to accept or reject a
// candidate symbol patch.
type descriptors struct {
	circularity float64 // 4*pi*area / perimeter^2
	solidity    float64 // area / convex hull area
	density     float64 // foreground fraction of the canonical patch
	symmetry    float64 // left-right flip agreement on the canonical patch
}

// computeDescriptors measures a component. Circularity and solidity come from
// the component geometry at native scale; density and symmetry are measured on
// the canonical patch so they are comparable across symbol sizes.
func computeDescriptors(c preprocess.Component, patch *image.Gray) descriptors {
	var d descriptors

	if c.Perimeter > 0 {
		d.circularity = 4 * math.Pi * float64(c.Area) / float64(c.Perimeter*c.Perimeter)
	}
	if hull := convexHullArea(c.Boundary); hull > 0 {
		d.solidity = float64(c.Area) / hull
		if d.solidity > 1 {
			d.solidity = 1
		}
	}

	w := patch.Bounds().Dx()
	h := patch.Bounds().Dy()
	if w == 0 || h == 0 {
		return d
	}
	var on, match int
	for y := range h {
		for x := range w {
			left := patch.GrayAt(x, y).Y > 0
			if left {
				on++
			}
			right := patch.GrayAt(w-1-x, y).Y > 0
			if left == right {
				match++
			}
		}
	}
	d.density = float64(on) / float64(w*h)
	d.symmetry = float64(match) / float64(w*h)
	return d
}

// convexHullArea computes the area of the convex hull of the given points
// using the monotone chain construction followed by the shoelace formula.
func convexHullArea(pts []image.Point) float64 {
	hull := convexHull(pts)
	if len(hull) < 3 {
		return 0
	}
	var area float64
	for i := range hull {
		j := (i + 1) % len(hull)
		area += float64(hull[i].X)*float64(hull[j].Y) - float64(hull[j].X)*float64(hull[i].Y)
	}
	return math.Abs(area) / 2
}

// convexHull returns the convex hull in counter-clockwise order (monotone chain).
func convexHull(pts []image.Point) []image.Point {
	if len(pts) < 3 {
		return pts
	}
	sorted := make([]image.Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower []image.Point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper []image.Point
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}
