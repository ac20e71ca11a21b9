package valueobjects

import (
	"math"

	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
)

// Position is a 2D coordinate used for layout positions, velocities and forces
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition2D creates a position with validation
func NewPosition2D(x, y float64) (Position, error) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) {
		return Position{}, pkgerrors.NewValidation("invalid coordinates: must be finite numbers")
	}
	return Position{X: x, Y: y}, nil
}

// DistanceTo calculates the Euclidean distance to another position
func (p Position) DistanceTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns p + other
func (p Position) Add(other Position) Position {
	return Position{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns p - other
func (p Position) Sub(other Position) Position {
	return Position{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale multiplies both components by f
func (p Position) Scale(f float64) Position {
	return Position{X: p.X * f, Y: p.Y * f}
}

// Clamp limits both components to the given rectangle
func (p Position) Clamp(minX, minY, maxX, maxY float64) Position {
	return Position{
		X: math.Max(minX, math.Min(maxX, p.X)),
		Y: math.Max(minY, math.Min(maxY, p.Y)),
	}
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	const epsilon = 1e-9
	return math.Abs(p.X-other.X) < epsilon && math.Abs(p.Y-other.Y) < epsilon
}

// IsFinite reports whether both coordinates are finite numbers
func (p Position) IsFinite() bool {
	return isValidCoordinate(p.X) && isValidCoordinate(p.Y)
}

// isValidCoordinate checks if a coordinate is a valid finite number
func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
