/*
Package sigil generates deterministic identicons compatible with the
Cupcake Sigil service.

An identifier is reduced to an MD5 digest; the first digest byte picks
the foreground color and the remaining fifteen bytes drive a mirrored
grid of cells, so the same identifier always produces the same image on
any platform. Images render as two-color paletted rasters and encode
with the indexed PNG encoder in the png sub-package.
*/
package sigil

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Theme configuration errors, returned wrapped with detail. Test with
// errors.Is.
var (
	ErrRows      = errors.New("sigil: rows must be between 1 and 15")
	ErrPalette   = errors.New("sigil: between 1 and 256 foreground colors are required")
	ErrAxis      = errors.New("sigil: unknown mirror axis")
	ErrQuietZone = errors.New("sigil: quiet zone cannot be negative")
)

const (
	// DefaultRows is the grid dimension used by DefaultTheme.
	DefaultRows = 5

	// QuietZoneCell selects the Cupcake layout, a background border of
	// half a cell on every side. See Sigil.Image for the size arithmetic
	// it implies.
	QuietZoneCell = -1

	// The free half of a 15x15 grid consumes all 120 cell bits a digest
	// provides, so 15 is a hard ceiling on the grid dimension.
	maxRows = 15

	maxForeground = 256
)

// Default colors from github.com/tent/sigil (BSD 3-Clause).
var (
	DefaultForeground = []color.NRGBA{
		{R: 45, G: 79, B: 255, A: 255},
		{R: 254, G: 180, B: 44, A: 255},
		{R: 226, G: 121, B: 234, A: 255},
		{R: 30, G: 179, B: 253, A: 255},
		{R: 232, G: 77, B: 65, A: 255},
		{R: 49, G: 203, B: 115, A: 255},
		{R: 141, G: 69, B: 170, A: 255},
	}
	DefaultBackground = color.NRGBA{R: 224, G: 224, B: 224, A: 255}
)

// Digest is the fixed-width hash an identifier reduces to. Every derived
// value, color and cells alike, is a function of it.
type Digest [16]byte

// Hash reduces an identifier to its digest. MD5 is part of the
// compatibility contract with Cupcake Sigil; changing it would change
// every generated image.
func Hash(input []byte) Digest {
	return md5.Sum(input)
}

// ParseDigest parses a 32 character hexadecimal string as a precomputed
// digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if len(s) != hex.EncodedLen(len(d)) {
		return Digest{}, fmt.Errorf("sigil: digest must be %d hexadecimal characters", hex.EncodedLen(len(d)))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return Digest{}, fmt.Errorf("sigil: invalid digest: %w", err)
	}
	return d, nil
}

// String returns the digest as lowercase hexadecimal.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Theme configures how a sigil looks. The zero value is not valid; start
// from DefaultTheme.
type Theme struct {
	// Rows is the dimension of the logical cell grid, from 1 to 15.
	Rows int

	// Foreground holds up to 256 candidate foreground colors; one is
	// picked per digest.
	Foreground []color.NRGBA

	// Background is the fixed background color.
	Background color.NRGBA

	// Axis is the mirror axis of the generated pattern.
	Axis Axis

	// QuietZone is a background border in pixels added around the
	// pattern, or QuietZoneCell for the Cupcake half-cell border.
	QuietZone int
}

// DefaultTheme returns the Cupcake-compatible theme: a 5x5 grid mirrored
// about the vertical axis, the tent/sigil palette and no quiet zone.
func DefaultTheme() Theme {
	return Theme{
		Rows:       DefaultRows,
		Foreground: DefaultForeground,
		Background: DefaultBackground,
	}
}

func (t Theme) validate() error {
	if t.Rows < 1 || t.Rows > maxRows {
		return fmt.Errorf("%w, not %d", ErrRows, t.Rows)
	}
	if len(t.Foreground) < 1 || len(t.Foreground) > maxForeground {
		return fmt.Errorf("%w, not %d", ErrPalette, len(t.Foreground))
	}
	if t.Axis < AxisVertical || t.Axis > AxisBoth {
		return fmt.Errorf("%w %d", ErrAxis, int(t.Axis))
	}
	if t.QuietZone < 0 && t.QuietZone != QuietZoneCell {
		return fmt.Errorf("%w, got %d", ErrQuietZone, t.QuietZone)
	}
	return nil
}

// MinContrast returns the smallest perceptual distance between any
// foreground candidate and the background, in the CIE-Lab space where
// 1.0 separates black from white. Themes below roughly 0.1 produce
// patterns that are hard to tell from the background.
func (t Theme) MinContrast() float64 {
	bg := toColorful(t.Background)
	min := math.Inf(1)
	for _, c := range t.Foreground {
		if d := toColorful(c).DistanceLab(bg); d < min {
			min = d
		}
	}
	return min
}

func toColorful(c color.NRGBA) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// ParseColor parses a color of the form "#rrggbb", with or without the
// leading "#".
func ParseColor(s string) (color.NRGBA, error) {
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("sigil: invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// Sigil is a generated identicon, ready to render at any compatible
// size.
type Sigil struct {
	foreground color.NRGBA
	background color.NRGBA
	rows       int
	quietZone  int
	cells      cells
}

// FromDigest builds the sigil for a precomputed digest.
func FromDigest(theme Theme, d Digest) (Sigil, error) {
	if err := theme.validate(); err != nil {
		return Sigil{}, err
	}
	return Sigil{
		foreground: theme.Foreground[int(d[0])%len(theme.Foreground)],
		background: theme.Background,
		rows:       theme.Rows,
		quietZone:  theme.QuietZone,
		cells:      generateCells(theme.Rows, theme.Axis, d[1:]),
	}, nil
}

// Generate hashes input and builds its sigil.
func Generate(theme Theme, input []byte) (Sigil, error) {
	return FromDigest(theme, Hash(input))
}

// Invert returns a copy with the foreground and background colors
// swapped.
func (s Sigil) Invert() Sigil {
	s.foreground, s.background = s.background, s.foreground
	return s
}

// String renders the cell grid as one line per row, 'X' for foreground
// and '-' for background.
func (s Sigil) String() string {
	var b strings.Builder
	b.Grow(s.rows * (s.rows + 1))
	for y := 0; y < s.rows; y++ {
		for x := 0; x < s.rows; x++ {
			if s.cells.get(y*s.rows + x) {
				b.WriteByte('X')
			} else {
				b.WriteByte('-')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
