package dartsim

import "fmt"

// Coordinate is a cell on the mission map
type Coordinate struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Less orders coordinates by x, then y
func (c Coordinate) Less(o Coordinate) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Y < o.Y
}

// InsideRect reports whether c lies in [0,size.X) x [0,size.Y)
func (c Coordinate) InsideRect(size Coordinate) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < size.X && c.Y < size.Y
}

// Add returns the component-wise sum
func (c Coordinate) Add(o Coordinate) Coordinate {
	return Coordinate{X: c.X + o.X, Y: c.Y + o.Y}
}

// Sub returns the component-wise difference
func (c Coordinate) Sub(o Coordinate) Coordinate {
	return Coordinate{X: c.X - o.X, Y: c.Y - o.Y}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}
