package runtime

import "math"

// sum accumulates float64 values with Neumaier compensation, so merged
// statistics only depend on the order values are added in.
type sum struct {
	total, comp float64
}

func (s *sum) Add(x float64) {
	t := s.total + x
	if math.Abs(s.total) >= math.Abs(x) {
		s.comp += (s.total - t) + x
	} else {
		s.comp += (x - t) + s.total
	}
	s.total = t
}

func (s *sum) Value() float64 {
	return s.total + s.comp
}
