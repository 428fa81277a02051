package dartsim

// runningStats accumulates mean and population variance with Welford's method
type runningStats struct {
	n    int
	mean float64
	m2   float64
}

func (s *runningStats) add(x float64) {
	s.n++
	d := x - s.mean
	s.mean += d / float64(s.n)
	s.m2 += d * (x - s.mean)
}

func (s runningStats) avg() float64 {
	return s.mean
}

func (s runningStats) variance() float64 {
	if s.n == 0 {
		return 0
	}
	return s.m2 / float64(s.n)
}
