package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum_Compensated(t *testing.T) {
	var s sum
	for _, x := range []float64{1, 1e100, 1, -1e100} {
		s.Add(x)
	}
	assert.Equal(t, 2.0, s.Value())

	var naive float64
	for _, x := range []float64{1, 1e100, 1, -1e100} {
		naive += x
	}
	assert.NotEqual(t, 2.0, naive)
}

func TestSum_SmallValues(t *testing.T) {
	var s sum
	for i := 0; i < 10; i++ {
		s.Add(0.1)
	}
	assert.Equal(t, 1.0, s.Value())
}
