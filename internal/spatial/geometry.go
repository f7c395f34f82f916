package spatial

import (
	"math"
)

// XY is a point in a planar coordinate reference system (meters)
type XY struct {
	X float64
	Y float64
}

// Ring is a closed sequence of vertices; the closing vertex may be omitted
type Ring []XY

// Polygon is an outer ring with optional holes
type Polygon struct {
	Outer Ring
	Holes []Ring
}

// MultiPolygon is a set of disjoint polygons
type MultiPolygon []Polygon

// Bounds is an axis-aligned rectangle
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// EmptyBounds returns bounds that any Extend call replaces
func EmptyBounds() Bounds {
	return Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
}

// Extend grows the bounds to include p
func (b Bounds) Extend(p XY) Bounds {
	b.MinX = math.Min(b.MinX, p.X)
	b.MinY = math.Min(b.MinY, p.Y)
	b.MaxX = math.Max(b.MaxX, p.X)
	b.MaxY = math.Max(b.MaxY, p.Y)
	return b
}

// Union returns bounds covering both
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// IsEmpty reports whether the bounds cover nothing
func (b Bounds) IsEmpty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// Contains reports whether p lies inside the closed rectangle
func (b Bounds) Contains(p XY) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Bounds returns the bounding box of the ring
func (r Ring) Bounds() Bounds {
	b := EmptyBounds()
	for _, p := range r {
		b = b.Extend(p)
	}
	return b
}

// Contains checks if a point is inside the ring using ray casting.
// A point exactly on a left or bottom edge counts as inside, one on a right
// or top edge as outside, so cells on a shared border between two rings
// are counted exactly once.
func (r Ring) Contains(p XY) bool {
	if len(r) < 3 {
		return false
	}

	inside := false
	j := len(r) - 1

	for i := 0; i < len(r); i++ {
		if (r[i].Y > p.Y) != (r[j].Y > p.Y) &&
			p.X < (r[j].X-r[i].X)*(p.Y-r[i].Y)/(r[j].Y-r[i].Y)+r[i].X {
			inside = !inside
		}
		j = i
	}

	return inside
}

// Area returns the unsigned area of the ring using the shoelace formula
func (r Ring) Area() float64 {
	if len(r) < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < len(r); i++ {
		j := (i + 1) % len(r)
		sum += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return math.Abs(sum) / 2
}

// Bounds returns the bounding box of the outer ring
func (p Polygon) Bounds() Bounds {
	return p.Outer.Bounds()
}

// Contains reports whether pt is inside the outer ring and outside every hole
func (p Polygon) Contains(pt XY) bool {
	if !p.Outer.Contains(pt) {
		return false
	}
	for _, hole := range p.Holes {
		if hole.Contains(pt) {
			return false
		}
	}
	return true
}

// Area returns the outer area minus the holes
func (p Polygon) Area() float64 {
	area := p.Outer.Area()
	for _, hole := range p.Holes {
		area -= hole.Area()
	}
	return area
}

// Bounds returns the bounding box of all polygons
func (m MultiPolygon) Bounds() Bounds {
	b := EmptyBounds()
	for _, p := range m {
		b = b.Union(p.Bounds())
	}
	return b
}

// Contains reports whether pt is inside any polygon
func (m MultiPolygon) Contains(pt XY) bool {
	for _, p := range m {
		if p.Bounds().Contains(pt) && p.Contains(pt) {
			return true
		}
	}
	return false
}

// Area returns the total area of all polygons
func (m MultiPolygon) Area() float64 {
	var area float64
	for _, p := range m {
		area += p.Area()
	}
	return area
}
