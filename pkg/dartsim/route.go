package dartsim

// Route is an immutable ordered sequence of waypoints. Consecutive waypoints
// need not be adjacent.
type Route struct {
	points []Coordinate
}

// NewRoute builds a straight route of the given length starting at origin.
// Each waypoint is computed in floating point and truncated to integers.
func NewRoute(origin Coordinate, directionX, directionY float64, length int) Route {
	if length < 0 {
		length = 0
	}
	points := make([]Coordinate, 0, length)
	x, y := float64(origin.X), float64(origin.Y)
	for i := 0; i < length; i++ {
		points = append(points, Coordinate{X: int(x), Y: int(y)})
		x += directionX
		y += directionY
	}
	return Route{points: points}
}

// NewRouteFromPoints builds a route visiting points in order
func NewRouteFromPoints(points []Coordinate) Route {
	cp := make([]Coordinate, len(points))
	copy(cp, points)
	return Route{points: cp}
}

// NewLawnmowerRoute covers a width x rows area row by row, alternating
// direction: even rows run left to right, odd rows right to left.
func NewLawnmowerRoute(width, rows int) Route {
	points := make([]Coordinate, 0, width*rows)
	for y := 0; y < rows; y++ {
		if y%2 == 0 {
			for x := 0; x < width; x++ {
				points = append(points, Coordinate{X: x, Y: y})
			}
		} else {
			for x := width - 1; x >= 0; x-- {
				points = append(points, Coordinate{X: x, Y: y})
			}
		}
	}
	return Route{points: points}
}

// Len returns the number of waypoints
func (r Route) Len() int {
	return len(r.points)
}

// At returns waypoint i
func (r Route) At(i int) Coordinate {
	return r.points[i]
}

// Points returns a copy of the waypoints
func (r Route) Points() []Coordinate {
	cp := make([]Coordinate, len(r.points))
	copy(cp, r.points)
	return cp
}

// Find returns the index of the first waypoint equal to c, or -1
func (r Route) Find(c Coordinate) int {
	for i, p := range r.points {
		if p == c {
			return i
		}
	}
	return -1
}
