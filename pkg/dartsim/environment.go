package dartsim

import (
	"fmt"
	"sort"
)

// Random is the source of randomness used by the simulator components.
// *rand.Rand satisfies it.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// Environment is a sparse boolean occupancy map bounded by Size.
// It is read-only once a simulation starts.
type Environment struct {
	size    Coordinate
	objects map[Coordinate]bool
}

// NewEnvironment returns an empty environment of the given size
func NewEnvironment(size Coordinate) *Environment {
	return &Environment{
		size:    size,
		objects: make(map[Coordinate]bool),
	}
}

// Size returns the bounding size
func (e *Environment) Size() Coordinate {
	return e.size
}

// IsObjectAt reports whether an object occupies c. Out-of-bounds and unknown
// cells are empty.
func (e *Environment) IsObjectAt(c Coordinate) bool {
	if !c.InsideRect(e.size) {
		return false
	}
	return e.objects[c]
}

// SetAt marks or clears a cell. Intended for fixtures.
func (e *Environment) SetAt(c Coordinate, present bool) {
	if present {
		e.objects[c] = true
		return
	}
	delete(e.objects, c)
}

// Count returns the number of occupied cells
func (e *Environment) Count() int {
	return len(e.objects)
}

// Objects returns the occupied cells in coordinate order
func (e *Environment) Objects() []Coordinate {
	out := make([]Coordinate, 0, len(e.objects))
	for c := range e.objects {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Populate clears the map and places n objects uniformly at random on
// distinct cells.
func (e *Environment) Populate(rng Random, n int) error {
	cells := e.size.X * e.size.Y
	if n < 0 || n > cells {
		return fmt.Errorf("cannot place %d objects on %d cells", n, cells)
	}
	e.objects = make(map[Coordinate]bool, n)
	for placed := 0; placed < n; {
		c := Coordinate{X: rng.Intn(e.size.X), Y: rng.Intn(e.size.Y)}
		if e.objects[c] {
			continue
		}
		e.objects[c] = true
		placed++
	}
	return nil
}

// PopulateSparse places n objects on a linear map so that any two objects
// are at least horizon cells apart.
func (e *Environment) PopulateSparse(rng Random, n, horizon int) error {
	if e.size.Y != 1 {
		return fmt.Errorf("sparse placement requires a linear map, got size %s", e.size)
	}
	if horizon < 1 {
		return fmt.Errorf("sparse horizon must be at least 1, got %d", horizon)
	}
	if e.size.X/(2*horizon-1) < n {
		return fmt.Errorf("cannot place %d objects %d apart on a map of length %d", n, horizon, e.size.X)
	}

	available := make([]int, e.size.X)
	for i := range available {
		available[i] = i
	}

	e.objects = make(map[Coordinate]bool, n)
	for placed := 0; placed < n; placed++ {
		x := available[rng.Intn(len(available))]
		e.objects[Coordinate{X: x}] = true

		lower, upper := x-(horizon-1), x+horizon-1
		kept := available[:0]
		for _, p := range available {
			if p < lower || p > upper {
				kept = append(kept, p)
			}
		}
		available = kept
	}
	return nil
}
