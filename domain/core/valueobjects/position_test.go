package valueobjects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPosition2D(t *testing.T) {
	p, err := NewPosition2D(3, 4)
	require.NoError(t, err)
	assert.Equal(t, 5.0, p.DistanceTo(Position{}))

	_, err = NewPosition2D(math.NaN(), 0)
	assert.Error(t, err)
	_, err = NewPosition2D(0, math.Inf(1))
	assert.Error(t, err)
}

func TestPosition_Arithmetic(t *testing.T) {
	a := Position{X: 1, Y: 2}
	b := Position{X: 3, Y: 5}

	assert.True(t, a.Add(b).Equals(Position{X: 4, Y: 7}))
	assert.True(t, b.Sub(a).Equals(Position{X: 2, Y: 3}))
	assert.True(t, a.Scale(2).Equals(Position{X: 2, Y: 4}))
	assert.True(t, Position{X: -10, Y: 900}.Clamp(50, 50, 750, 550).Equals(Position{X: 50, Y: 550}))
}
