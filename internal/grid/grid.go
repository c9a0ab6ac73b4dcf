// File: internal/grid/grid.go
// Package grid implements the compact coordinate scheme used to address
// screen cells: a two-letter column label followed by a two-digit row,
// covering a fixed 40x40 partition of the primary display ("aa01".."bn40").
package grid

import (
	"fmt"
	"strings"
)

// Size is the number of columns and rows in the screen partition.
const Size = 40

// coordLen is the exact length of a textual coordinate.
const coordLen = 4

// Coordinate addresses one cell of the grid. The zero value is the top-left
// cell ("aa01"). Coordinates are immutable values; build them with Encode or
// Parse.
type Coordinate struct {
	col int // 0-based, [0, Size)
	row int // 0-based, [0, Size)
}

// Encode builds a Coordinate from 0-based column and row indices.
func Encode(col, row int) (Coordinate, error) {
	if col < 0 || col >= Size {
		return Coordinate{}, fmt.Errorf("%w: column %d outside [0,%d)", ErrInvalidCoordinate, col, Size)
	}
	if row < 0 || row >= Size {
		return Coordinate{}, fmt.Errorf("%w: row %d outside [0,%d)", ErrInvalidCoordinate, row, Size)
	}
	return Coordinate{col: col, row: row}, nil
}

// Col returns the 0-based column index.
func (c Coordinate) Col() int { return c.col }

// Row returns the 0-based row index.
func (c Coordinate) Row() int { return c.row }

// String renders the canonical textual form, e.g. "aa01".
func (c Coordinate) String() string {
	return fmt.Sprintf("%s%02d", ColumnLabel(c.col), c.row+1)
}

// ColumnLabel converts a 0-based column index to its two-letter label:
// "aa".."az" then "ba".."bn" for a 40-column grid.
func ColumnLabel(col int) string {
	if col < 0 || col >= Size {
		return "aa"
	}
	return string([]byte{byte('a' + col/26), byte('a' + col%26)})
}

// Parse converts a textual coordinate into a Coordinate, enforcing the
// canonical grammar: exactly 4 lowercase characters, a column label within
// "aa".."bn" and a row within "01".."40". Anything else is rejected with
// ErrInvalidCoordinate before any pixel math can happen.
func Parse(s string) (Coordinate, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != coordLen {
		return Coordinate{}, fmt.Errorf("%w: %q must be exactly %d characters", ErrInvalidCoordinate, s, coordLen)
	}
	first, second := s[0], s[1]
	if first != 'a' && first != 'b' {
		return Coordinate{}, fmt.Errorf("%w: %q column prefix must be 'a' or 'b'", ErrInvalidCoordinate, s)
	}
	if second < 'a' || second > 'z' {
		return Coordinate{}, fmt.Errorf("%w: %q second letter must be a-z", ErrInvalidCoordinate, s)
	}
	col := int(first-'a')*26 + int(second-'a')
	if col >= Size {
		return Coordinate{}, fmt.Errorf("%w: %q column beyond %q", ErrInvalidCoordinate, s, ColumnLabel(Size-1))
	}
	d1, d2 := s[2], s[3]
	if d1 < '0' || d1 > '9' || d2 < '0' || d2 > '9' {
		return Coordinate{}, fmt.Errorf("%w: %q row must be two digits", ErrInvalidCoordinate, s)
	}
	rowNum := int(d1-'0')*10 + int(d2-'0')
	if rowNum < 1 || rowNum > Size {
		return Coordinate{}, fmt.Errorf("%w: %q row must be 01-%d", ErrInvalidCoordinate, s, Size)
	}
	return Coordinate{col: col, row: rowNum - 1}, nil
}

// Valid reports whether s is a well-formed coordinate.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// CellSize computes the integer cell dimensions for a screen. Integer
// division keeps the click table consistent with the rendered overlay.
func CellSize(screenWidth, screenHeight int) (cellWidth, cellHeight int) {
	return screenWidth / Size, screenHeight / Size
}

// Center returns the center pixel of the addressed cell. Degenerate screen
// geometry (a cell smaller than one pixel) is rejected rather than clamped.
func (c Coordinate) Center(screenWidth, screenHeight int) (x, y int, err error) {
	cw, ch := CellSize(screenWidth, screenHeight)
	if cw < 1 || ch < 1 {
		return 0, 0, fmt.Errorf("%w: screen %dx%d too small for a %dx%d grid",
			ErrInvalidGeometry, screenWidth, screenHeight, Size, Size)
	}
	x = c.col*cw + cw/2
	y = c.row*ch + ch/2
	if x < 0 || x >= screenWidth || y < 0 || y >= screenHeight {
		// Unreachable for a parsed coordinate; kept as the explicit bounds
		// check required before any pointer interaction.
		return 0, 0, fmt.Errorf("%w: %s maps to (%d,%d) outside %dx%d",
			ErrInvalidGeometry, c, x, y, screenWidth, screenHeight)
	}
	return x, y, nil
}

// CellOrigin returns the top-left pixel of the addressed cell.
func (c Coordinate) CellOrigin(screenWidth, screenHeight int) (x, y int) {
	cw, ch := CellSize(screenWidth, screenHeight)
	return c.col * cw, c.row * ch
}

// All enumerates every coordinate in row-major order. Used to pre-register
// the click-position table and by the grid self-test.
func All() []Coordinate {
	coords := make([]Coordinate, 0, Size*Size)
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			coords = append(coords, Coordinate{col: col, row: row})
		}
	}
	return coords
}
