package png

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/ericpauley/go-quantize/quantize"
)

var (
	ErrBadSize    = errors.New("png: image dimensions must be positive 31-bit values")
	ErrBadPalette = errors.New("png: palette must hold between 1 and 256 colors")
)

type encoder struct {
	w io.Writer
}

// writeChunk writes one chunk: big-endian payload length, four byte
// type, payload, then a CRC-32 over the type and payload.
func (e *encoder) writeChunk(typ string, payload []byte) error {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(payload)))
	copy(hdr[4:], typ)

	if _, err := e.w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := e.w.Write(payload); err != nil {
		return err
	}

	var tail [4]byte
	binary.BigEndian.PutUint32(tail[:], crc32.Update(crc32.ChecksumIEEE(hdr[4:]), crc32.IEEETable, payload))
	_, err := e.w.Write(tail[:])
	return err
}

func (e *encoder) writeIHDR(width, height, depth int) error {
	var b [13]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(width))
	binary.BigEndian.PutUint32(b[4:8], uint32(height))
	b[8] = byte(depth)
	b[9] = colorTypePalette
	b[10] = compressionMethod
	b[11] = filterMethod
	b[12] = interlaceNone
	return e.writeChunk("IHDR", b[:])
}

func (e *encoder) writePLTE(p color.Palette) error {
	plte := make([]byte, 0, len(p)*3)
	for _, c := range p {
		nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
		plte = append(plte, nrgba.R, nrgba.G, nrgba.B)
	}
	return e.writeChunk("PLTE", plte)
}

// writeTRNS writes the palette alpha values, truncated after the last
// entry that is not fully opaque. An opaque palette needs no tRNS chunk
// at all.
func (e *encoder) writeTRNS(p color.Palette) error {
	trns := make([]byte, 0, len(p))
	last := -1
	for i, c := range p {
		nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
		trns = append(trns, nrgba.A)
		if nrgba.A != 0xff {
			last = i
		}
	}
	if last < 0 {
		return nil
	}
	return e.writeChunk("tRNS", trns[:last+1])
}

func (e *encoder) writeIDAT(m *image.Paletted, depth int) error {
	b := m.Bounds()

	z := new(bytes.Buffer)
	zw, err := zlib.NewWriterLevel(z, zlib.BestCompression)
	if err != nil {
		return err
	}

	// Each scanline is a filter type byte then the pixel indices packed
	// most significant bits first.
	row := make([]byte, 1+(b.Dx()*depth+7)/8)
	for y := 0; y < b.Dy(); y++ {
		for i := range row {
			row[i] = 0
		}
		row[0] = filterNone
		for x := 0; x < b.Dx(); x++ {
			idx := m.ColorIndexAt(b.Min.X+x, b.Min.Y+y) & (1<<depth - 1)
			row[1+x*depth/8] |= idx << (8 - depth - x*depth%8)
		}
		if _, err := zw.Write(row); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return err
	}

	return e.writeChunk("IDAT", z.Bytes())
}

// bitDepth returns the smallest legal depth that can index n palette
// entries. Palette images allow 1, 2, 4 or 8 bits.
func bitDepth(n int) int {
	switch {
	case n <= 2:
		return 1
	case n <= 4:
		return 2
	case n <= 16:
		return 4
	}
	return 8
}

// Encode writes the Image m to w as an indexed-color PNG. Output is
// deterministic: the same image always encodes to the same bytes.
func Encode(w io.Writer, m image.Image) error {
	// A nil image, including a typed nil *image.Paletted, has no
	// pixels to encode.
	pm, ok := m.(*image.Paletted)
	if m == nil || (ok && pm == nil) {
		return ErrBadSize
	}

	b := m.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || b.Dx() > maxDimension || b.Dy() > maxDimension {
		return ErrBadSize
	}

	if pm == nil {
		if cp, ok := m.ColorModel().(color.Palette); ok && len(cp) <= maxPalette {
			pm = image.NewPaletted(b, cp)
			draw.Draw(pm, b, m, b.Min, draw.Src)
		}
	}

	if pm == nil || len(pm.Palette) > maxPalette {
		q := quantize.MedianCutQuantizer{}
		pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, maxPalette), m))
		draw.Draw(pm, b, m, b.Min, draw.Src)
	}

	if len(pm.Palette) == 0 || len(pm.Palette) > maxPalette {
		return ErrBadPalette
	}

	e := &encoder{w: w}

	if _, err := e.w.Write(signature); err != nil {
		return err
	}

	depth := bitDepth(len(pm.Palette))

	if err := e.writeIHDR(b.Dx(), b.Dy(), depth); err != nil {
		return err
	}
	if err := e.writePLTE(pm.Palette); err != nil {
		return err
	}
	if err := e.writeTRNS(pm.Palette); err != nil {
		return err
	}
	if err := e.writeIDAT(pm, depth); err != nil {
		return err
	}
	return e.writeChunk("IEND", nil)
}
