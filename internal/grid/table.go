package grid

import "fmt"

// Point is a pixel position on the primary display.
type Point struct {
	X int
	Y int
}

// PositionTable precomputes the center pixel of every valid coordinate for a
// given screen geometry. It is built once at startup and rebuilt only when
// the geometry changes; the single-worker model means no locking is needed.
type PositionTable struct {
	width  int
	height int
	points map[Coordinate]Point
}

// NewPositionTable builds the table for the given screen dimensions.
func NewPositionTable(screenWidth, screenHeight int) (*PositionTable, error) {
	t := &PositionTable{}
	if err := t.Rebuild(screenWidth, screenHeight); err != nil {
		return nil, err
	}
	return t, nil
}

// Rebuild recomputes every entry for new screen dimensions.
func (t *PositionTable) Rebuild(screenWidth, screenHeight int) error {
	points := make(map[Coordinate]Point, Size*Size)
	for _, coord := range All() {
		x, y, err := coord.Center(screenWidth, screenHeight)
		if err != nil {
			return fmt.Errorf("building position table: %w", err)
		}
		points[coord] = Point{X: x, Y: y}
	}
	t.width = screenWidth
	t.height = screenHeight
	t.points = points
	return nil
}

// Lookup returns the precomputed center pixel for a coordinate.
func (t *PositionTable) Lookup(coord Coordinate) (Point, bool) {
	p, ok := t.points[coord]
	return p, ok
}

// Bounds returns the screen dimensions the table was built for.
func (t *PositionTable) Bounds() (width, height int) {
	return t.width, t.height
}
