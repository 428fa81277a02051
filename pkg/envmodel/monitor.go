// Package envmodel turns noisy forward sensor readings into the environment
// predictions consumed by the planners.
package envmodel

import "github.com/picogrid/dart-simulations/pkg/dartsim"

type counts struct {
	positive int
	total    int
}

// Monitor accumulates sensor readings per cell
type Monitor struct {
	cells map[dartsim.Coordinate]counts
}

// NewMonitor returns an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{cells: make(map[dartsim.Coordinate]counts)}
}

// Update records one reading per cell of route. Readings shorter than the
// route, as returned near the map boundary, leave the remaining cells untouched.
func (m *Monitor) Update(route dartsim.Route, readings []bool) {
	for i, sensed := range readings {
		if i >= route.Len() {
			break
		}
		c := m.cells[route.At(i)]
		c.total++
		if sensed {
			c.positive++
		}
		m.cells[route.At(i)] = c
	}
}

// UpdateObservations records several readings per cell, as returned by the
// simulator's observation reads
func (m *Monitor) UpdateObservations(route dartsim.Route, observations [][]bool) {
	for i, cell := range observations {
		if i >= route.Len() {
			break
		}
		c := m.cells[route.At(i)]
		for _, sensed := range cell {
			c.total++
			if sensed {
				c.positive++
			}
		}
		m.cells[route.At(i)] = c
	}
}

// Counts returns the positive and total readings of a cell
func (m *Monitor) Counts(c dartsim.Coordinate) (positive, total int) {
	v := m.cells[c]
	return v.positive, v.total
}

// Clear forgets every reading
func (m *Monitor) Clear() {
	m.cells = make(map[dartsim.Coordinate]counts)
}
