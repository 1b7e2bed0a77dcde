package preprocess

import (
	"container/list"
	"image"
)

// Component describes a 4-connected foreground component of a binary image.
type Component struct {
	Area      int
	Perimeter int // count of foreground pixels touching background or the border
	MinX      int
	MinY      int
	MaxX      int
	MaxY      int
	Boundary  []image.Point // boundary pixels, enough to build a convex hull
}

// Width returns the bounding-box width in pixels.
func (c Component) Width() int { return c.MaxX - c.MinX + 1 }

// Height returns the bounding-box height in pixels.
func (c Component) Height() int { return c.MaxY - c.MinY + 1 }

// Components finds all 4-connected foreground components via BFS.
func Components(binary *image.Gray) []Component {
	w := binary.Bounds().Dx()
	h := binary.Bounds().Dy()
	visited := make([]bool, w*h)
	var comps []Component

	for y := range h {
		for x := range w {
			idx := y*w + x
			if binary.GrayAt(x, y).Y > 0 && !visited[idx] {
				comps = append(comps, componentBFS(binary, visited, w, h, x, y))
			}
		}
	}
	return comps
}

var neighbors4 = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

func componentBFS(binary *image.Gray, visited []bool, w, h, startX, startY int) Component {
	c := Component{MinX: startX, MinY: startY, MaxX: startX, MaxY: startY}
	q := list.New()
	q.PushBack(startY*w + startX)
	visited[startY*w+startX] = true

	for q.Len() > 0 {
		e := q.Front()
		q.Remove(e)
		ci, ok := e.Value.(int)
		if !ok {
			continue
		}
		cx, cy := ci%w, ci/w

		c.Area++
		if cx < c.MinX {
			c.MinX = cx
		}
		if cy < c.MinY {
			c.MinY = cy
		}
		if cx > c.MaxX {
			c.MaxX = cx
		}
		if cy > c.MaxY {
			c.MaxY = cy
		}

		onBoundary := false
		for _, d := range neighbors4 {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				onBoundary = true
				continue
			}
			if binary.GrayAt(nx, ny).Y == 0 {
				onBoundary = true
				continue
			}
			ni := ny*w + nx
			if !visited[ni] {
				visited[ni] = true
				q.PushBack(ni)
			}
		}
		if onBoundary {
			c.Perimeter++
			c.Boundary = append(c.Boundary, image.Pt(cx, cy))
		}
	}
	return c
}

// removeSmallComponents drops connected components below minArea, treating
// them as speckle noise. Surviving components form a mask ANDed with the
// input, so pixel values of kept strokes are untouched.
func removeSmallComponents(binary *image.Gray, minArea int) *image.Gray {
	if minArea <= 1 {
		return binary
	}
	w := binary.Bounds().Dx()
	h := binary.Bounds().Dy()

	labels := make([]int, w*h)
	var areas []int // area per label, label-1 indexed
	label := 0
	for y := range h {
		for x := range w {
			if binary.GrayAt(x, y).Y > 0 && labels[y*w+x] == 0 {
				label++
				areas = append(areas, labelFlood(binary, labels, w, h, x, y, label))
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, l := range labels {
		if l > 0 && areas[l-1] >= minArea {
			out.Pix[i] = binary.Pix[(i/w)*binary.Stride+i%w]
		}
	}
	return out
}

// labelFlood flood-fills one component, writing its label, and returns the area.
func labelFlood(binary *image.Gray, labels []int, w, h, startX, startY, label int) int {
	q := list.New()
	q.PushBack(startY*w + startX)
	labels[startY*w+startX] = label
	area := 0

	for q.Len() > 0 {
		e := q.Front()
		q.Remove(e)
		ci, ok := e.Value.(int)
		if !ok {
			continue
		}
		area++
		cx, cy := ci%w, ci/w
		for _, d := range neighbors4 {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			ni := ny*w + nx
			if binary.GrayAt(nx, ny).Y > 0 && labels[ni] == 0 {
				labels[ni] = label
				q.PushBack(ni)
			}
		}
	}
	return area
}
