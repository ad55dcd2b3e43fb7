package sigil

import (
	"fmt"
	"strconv"
)

// Axis selects the mirror axis of the generated pattern.
type Axis int

const (
	// AxisVertical mirrors the left half onto the right, the Cupcake
	// behaviour.
	AxisVertical Axis = iota

	// AxisHorizontal mirrors the top half onto the bottom.
	AxisHorizontal

	// AxisBoth mirrors the top-left quadrant onto the other three.
	AxisBoth
)

func (a Axis) String() string {
	switch a {
	case AxisVertical:
		return "vertical"
	case AxisHorizontal:
		return "horizontal"
	case AxisBoth:
		return "both"
	}
	return "axis(" + strconv.Itoa(int(a)) + ")"
}

// ParseAxis parses the string form used by command line flags.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "vertical":
		return AxisVertical, nil
	case "horizontal":
		return AxisHorizontal, nil
	case "both":
		return AxisBoth, nil
	}
	return 0, fmt.Errorf("%w %q", ErrAxis, s)
}

// cells is a bit set over the row-major cell grid, sized for the largest
// supported grid.
type cells [32]byte

func (c *cells) set(i int) {
	c[i/8] |= 1 << (i % 8)
}

func (c *cells) get(i int) bool {
	return c[i/8]&(1<<(i%8)) != 0
}

// digestBit reports whether bit i of the cell range is set. Bits are
// consumed most significant first within each byte, matching the
// Cupcake generator.
func digestBit(h []byte, i int) bool {
	return h[i/8]>>(7-i%8)&1 == 1
}

// generateCells derives the mirrored grid from the fifteen digest bytes
// that follow the color byte. Digest bits fill the free half in reading
// order and each set cell is copied to its mirror image; in an odd grid
// the center column or row belongs to the free half and mirrors onto
// itself.
func generateCells(rows int, axis Axis, h []byte) cells {
	var c cells
	half := (rows + 1) / 2

	switch axis {
	case AxisVertical:
		// Column by column through the left half, matching Cupcake.
		for i := 0; i < half*rows; i++ {
			if !digestBit(h, i) {
				continue
			}
			x, y := i/rows, i%rows
			c.set(y*rows + x)
			c.set(y*rows + rows - 1 - x)
		}
	case AxisHorizontal:
		for i := 0; i < half*rows; i++ {
			if !digestBit(h, i) {
				continue
			}
			y, x := i/rows, i%rows
			c.set(y*rows + x)
			c.set((rows-1-y)*rows + x)
		}
	case AxisBoth:
		for i := 0; i < half*half; i++ {
			if !digestBit(h, i) {
				continue
			}
			x, y := i/half, i%half
			c.set(y*rows + x)
			c.set(y*rows + rows - 1 - x)
			c.set((rows-1-y)*rows + x)
			c.set((rows-1-y)*rows + rows - 1 - x)
		}
	}

	return c
}
