/*
Package png implements a minimal indexed-color PNG encoder.

Every image is written as color type 3 at the smallest bit depth that
covers its palette, so a two-color image costs one bit per pixel before
compression. The file is the eight byte PNG signature followed by four
or five chunks: IHDR, PLTE, an optional tRNS holding the alpha of any
non-opaque palette entries, a single zlib-compressed IDAT holding the
scanlines, and IEND. Each chunk carries a CRC-32 of its type and
payload, so any standard decoder can read the output.

Scanlines use filter type None throughout. Filtering rearranges pixel
bytes to help compression of continuous-tone images but does nothing
useful for flat palette images, and a fixed filter keeps the output
byte-for-byte reproducible for a given input.

Images whose color model is not already a palette are quantized to at
most 256 colors before encoding.
*/
package png

const (
	colorTypePalette = 3

	// There is only one defined compression (deflate), filter method
	// (adaptive, five filter types) and non-interlaced layout.
	compressionMethod = 0
	filterMethod      = 0
	interlaceNone     = 0

	// Per-scanline filter type prefixed to every row.
	filterNone = 0

	maxPalette = 256

	// IHDR dimensions are 31-bit values.
	maxDimension = 1<<31 - 1
)

var signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
