package sigil

import (
	"fmt"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testTheme(rows int, axis Axis) Theme {
	theme := DefaultTheme()
	theme.Rows = rows
	theme.Axis = axis
	return theme
}

func TestGenerate(t *testing.T) {
	tables := []struct {
		identifier string
		rows       int
		axis       Axis
		want       string
	}{
		{
			identifier: "test",
			rows:       5,
			axis:       AxisVertical,
			want: `XXXXX
-X-X-
-XXX-
-----
XXXXX
`,
		},
		{
			identifier: "alice@example.com",
			rows:       5,
			axis:       AxisVertical,
			want: `--X--
X-X-X
X-X-X
-X-X-
-X-X-
`,
		},
		{
			identifier: "alice",
			rows:       5,
			axis:       AxisVertical,
			want: `XXXXX
-----
-----
-X-X-
-XXX-
`,
		},
		{
			// A hex-looking identifier short of 32 characters is
			// hashed like any other.
			identifier: "56fbc0305cea0414184cb72b",
			rows:       5,
			axis:       AxisVertical,
			want: `XX-XX
-XXX-
-X-X-
XXXXX
XX-XX
`,
		},
		{
			identifier: "",
			rows:       5,
			axis:       AxisVertical,
			want: `-X-X-
-----
-XXX-
XXXXX
X---X
`,
		},
		{
			identifier: "test",
			rows:       6,
			axis:       AxisVertical,
			want: `XXXXXX
-X--X-
--XX--
-XXXX-
XXXXXX
X-XX-X
`,
		},
		{
			identifier: "test",
			rows:       5,
			axis:       AxisHorizontal,
			want: `X---X
XXX-X
X-X-X
XXX-X
X---X
`,
		},
		{
			identifier: "test",
			rows:       5,
			axis:       AxisBoth,
			want: `X-X-X
-XXX-
-X-X-
-XXX-
X-X-X
`,
		},
		{
			identifier: "test",
			rows:       4,
			axis:       AxisVertical,
			want: `XXXX
-XX-
-XX-
-XX-
`,
		},
		{
			identifier: "test",
			rows:       1,
			axis:       AxisVertical,
			want: `X
`,
		},
		{
			identifier: "test",
			rows:       15,
			axis:       AxisVertical,
			want: `XXX-X-X-X-X-XXX
-X-X-X-X-X-X-X-
-X-XXX-X-XXX-X-
-----XX-XX-----
X-XXX-XXX-XXX-X
XX-XXX---XXX-XX
XX-X-------X-XX
X---X--X--X---X
-X--X-XXX-X--X-
X-XXX--X--XXX-X
XXXXX--X--XXXXX
--XX-XX-XX-XX--
X--X-XXXXX-X--X
--X-X-XXX-X-X--
XX----X-X----XX
`,
		},
	}

	for _, table := range tables {
		t.Run(fmt.Sprintf("%s_%d_%s", table.identifier, table.rows, table.axis), func(t *testing.T) {
			s, err := Generate(testTheme(table.rows, table.axis), []byte(table.identifier))
			require.NoError(t, err)
			assert.Equal(t, table.want, s.String())
		})
	}
}

func TestFromDigest(t *testing.T) {
	d, err := ParseDigest("56fbc0305cea0414184cb72b871b1f2c")
	require.NoError(t, err)

	s, err := FromDigest(DefaultTheme(), d)
	require.NoError(t, err)

	assert.Equal(t, `X---X
XX-XX
XX-XX
XX-XX
XX-XX
`, s.String())

	// Hashing the hex string is not the same as using the digest.
	hashed, err := Generate(DefaultTheme(), []byte("56fbc0305cea0414184cb72b871b1f2c"))
	require.NoError(t, err)
	assert.NotEqual(t, hashed, s)
}

func TestHash(t *testing.T) {
	assert.Equal(t, "098f6bcd4621d373cade4e832627b4f6", Hash([]byte("test")).String())
}

func TestParseDigest(t *testing.T) {
	d, err := ParseDigest("098f6bcd4621d373cade4e832627b4f6")
	require.NoError(t, err)
	assert.Equal(t, Hash([]byte("test")), d)

	_, err = ParseDigest("098f6bcd")
	assert.Error(t, err)

	_, err = ParseDigest("zz8f6bcd4621d373cade4e832627b4f6")
	assert.Error(t, err)
}

func TestForeground(t *testing.T) {
	// md5("test") starts 0x09; 9 mod 7 picks the third default color.
	s, err := Generate(DefaultTheme(), []byte("test"))
	require.NoError(t, err)

	m, err := s.Image(5)
	require.NoError(t, err)

	assert.Equal(t, DefaultBackground, m.Palette[0])
	assert.Equal(t, DefaultForeground[2], m.Palette[1])

	// A single color palette is always picked.
	theme := DefaultTheme()
	theme.Foreground = []color.NRGBA{{R: 1, G: 2, B: 3, A: 255}}
	s, err = Generate(theme, []byte("anything at all"))
	require.NoError(t, err)

	m, err = s.Image(5)
	require.NoError(t, err)
	assert.Equal(t, theme.Foreground[0], m.Palette[1])
}

func TestInvert(t *testing.T) {
	s, err := Generate(DefaultTheme(), []byte("test"))
	require.NoError(t, err)

	inverted := s.Invert()

	// Same cells, swapped colors.
	assert.Equal(t, s.String(), inverted.String())

	m, err := inverted.Image(5)
	require.NoError(t, err)
	assert.Equal(t, DefaultForeground[2], m.Palette[0])
	assert.Equal(t, DefaultBackground, m.Palette[1])

	assert.Equal(t, s, inverted.Invert())
}

func TestThemeValidation(t *testing.T) {
	tables := []struct {
		name   string
		mutate func(*Theme)
		want   error
	}{
		{"zero rows", func(theme *Theme) { theme.Rows = 0 }, ErrRows},
		{"negative rows", func(theme *Theme) { theme.Rows = -3 }, ErrRows},
		{"sixteen rows", func(theme *Theme) { theme.Rows = 16 }, ErrRows},
		{"no foreground", func(theme *Theme) { theme.Foreground = nil }, ErrPalette},
		{"oversized foreground", func(theme *Theme) { theme.Foreground = make([]color.NRGBA, 257) }, ErrPalette},
		{"unknown axis", func(theme *Theme) { theme.Axis = Axis(7) }, ErrAxis},
		{"negative quiet zone", func(theme *Theme) { theme.QuietZone = -2 }, ErrQuietZone},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			theme := DefaultTheme()
			table.mutate(&theme)

			_, err := Generate(theme, []byte("test"))
			assert.ErrorIs(t, err, table.want)
		})
	}
}

func TestGenerateDistinct(t *testing.T) {
	// A 5x5 grid only has 2^15 patterns so a handful of birthday
	// collisions are expected over a thousand identifiers.
	grids := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		s, err := Generate(DefaultTheme(), []byte(fmt.Sprintf("test-%d", i)))
		require.NoError(t, err)
		grids[s.String()] = struct{}{}
	}
	assert.GreaterOrEqual(t, len(grids), 990)
}

func TestGenerateDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.SliceOf(rapid.Byte()).Draw(t, "input")

		a, err := Generate(DefaultTheme(), input)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Generate(DefaultTheme(), input)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Fatalf("two generations of %q differ", input)
		}
	})
}

func TestGenerateSymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.IntRange(1, 15).Draw(t, "rows")
		axis := rapid.SampledFrom([]Axis{AxisVertical, AxisHorizontal, AxisBoth}).Draw(t, "axis")

		var digest Digest
		copy(digest[:], rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, "digest"))

		s, err := FromDigest(testTheme(rows, axis), digest)
		if err != nil {
			t.Fatal(err)
		}

		lines := strings.Split(strings.TrimSuffix(s.String(), "\n"), "\n")
		if len(lines) != rows {
			t.Fatalf("got %d rows, want %d", len(lines), rows)
		}

		for y := 0; y < rows; y++ {
			for x := 0; x < rows; x++ {
				if (axis == AxisVertical || axis == AxisBoth) && lines[y][x] != lines[y][rows-1-x] {
					t.Fatalf("cell (%d,%d) is not mirrored about the vertical axis:\n%s", x, y, s)
				}
				if (axis == AxisHorizontal || axis == AxisBoth) && lines[y][x] != lines[rows-1-y][x] {
					t.Fatalf("cell (%d,%d) is not mirrored about the horizontal axis:\n%s", x, y, s)
				}
			}
		}
	})
}

func TestParseAxis(t *testing.T) {
	for _, axis := range []Axis{AxisVertical, AxisHorizontal, AxisBoth} {
		parsed, err := ParseAxis(axis.String())
		require.NoError(t, err)
		assert.Equal(t, axis, parsed)
	}

	_, err := ParseAxis("diagonal")
	assert.ErrorIs(t, err, ErrAxis)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#2d4fff")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 45, G: 79, B: 255, A: 255}, c)

	c, err = ParseColor("e0e0e0")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 224, G: 224, B: 224, A: 255}, c)

	_, err = ParseColor("#bogus")
	assert.Error(t, err)
}

func TestMinContrast(t *testing.T) {
	assert.Greater(t, DefaultTheme().MinContrast(), 0.1)

	theme := DefaultTheme()
	theme.Foreground = []color.NRGBA{theme.Background}
	assert.Less(t, theme.MinContrast(), 0.001)
}
