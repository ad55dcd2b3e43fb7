package sigil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/bodgit/sigil/png"
)

// ErrSize is returned when a pixel size does not divide evenly into the
// configured grid. Sizes are rejected rather than rounded so the pattern
// is never distorted.
var ErrSize = errors.New("sigil: size is not compatible with the theme")

// geometry returns the cell and border size in pixels for a rendered
// size, or ErrSize when the size does not fit the grid.
func (s Sigil) geometry(size int) (cell, border int, err error) {
	if s.quietZone == QuietZoneCell {
		// The Cupcake layout: one cell of the size is given over to the
		// border, half a cell each side, so the size has to divide by
		// rows+1 and then again by two.
		div := (s.rows + 1) * 2
		if size <= 0 || size%div != 0 {
			return 0, 0, fmt.Errorf("%w: %d is not a positive multiple of %d", ErrSize, size, div)
		}
		cell = size / (s.rows + 1)
		return cell, cell / 2, nil
	}

	inner := size - 2*s.quietZone
	if inner <= 0 || inner%s.rows != 0 {
		return 0, 0, fmt.Errorf("%w: %d less the quiet zone is not a positive multiple of %d", ErrSize, size, s.rows)
	}
	return inner / s.rows, s.quietZone, nil
}

// Image renders the sigil as a size by size paletted image. Palette
// index 0 is the background, index 1 the foreground.
//
// With an explicit quiet zone the area inside the border must divide
// evenly into the grid: size minus twice the quiet zone must be a
// positive multiple of the rows. With QuietZoneCell the size must be a
// positive multiple of (rows+1)*2; each cell is then size/(rows+1)
// pixels with half a cell of border all round.
func (s Sigil) Image(size int) (*image.Paletted, error) {
	cell, border, err := s.geometry(size)
	if err != nil {
		return nil, err
	}

	m := image.NewPaletted(image.Rect(0, 0, size, size), color.Palette{s.background, s.foreground})

	// Pixels start at index 0, the background, so only foreground cells
	// need filling.
	for y := 0; y < s.rows; y++ {
		for x := 0; x < s.rows; x++ {
			if !s.cells.get(y*s.rows + x) {
				continue
			}
			for py := 0; py < cell; py++ {
				row := (border+y*cell+py)*m.Stride + border + x*cell
				for px := 0; px < cell; px++ {
					m.Pix[row+px] = 1
				}
			}
		}
	}

	return m, nil
}

// PNG renders the sigil at the given size and encodes it as an indexed
// PNG.
func (s Sigil) PNG(size int) ([]byte, error) {
	m, err := s.Image(size)
	if err != nil {
		return nil, err
	}

	b := new(bytes.Buffer)
	if err := png.Encode(b, m); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// PNG runs the whole pipeline in one step, from identifier bytes to
// encoded image bytes.
func PNG(theme Theme, input []byte, size int) ([]byte, error) {
	s, err := Generate(theme, input)
	if err != nil {
		return nil, err
	}
	return s.PNG(size)
}
