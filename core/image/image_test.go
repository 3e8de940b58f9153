package image

import (
	"bytes"
	goimage "image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"

	"github.com/ankit-chaubey/exif-surgery/core"
	"github.com/ankit-chaubey/exif-surgery/core/exif"
)

func gradient() *goimage.NRGBA {
	img := goimage.NewNRGBA(goimage.Rect(0, 0, 24, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 15), B: 128, A: 255})
		}
	}
	return img
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient()))
	return buf.Bytes()
}

func testWebP(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, nativewebp.Encode(&buf, gradient(), nil))
	return buf.Bytes()
}

func testPayload(t *testing.T, artist string) []byte {
	t.Helper()
	b := exif.NewBlock()
	b.SetText(exif.Artist, artist)
	b.SetText(exif.DateTimeOriginal, "2024:05:06 07:08:09")
	data, err := b.Encode()
	require.NoError(t, err)
	return data
}

func countExifSegments(t *testing.T, data []byte) int {
	t.Helper()
	segs, err := parseJPEGSegments(data)
	require.NoError(t, err)
	n := 0
	for _, s := range segs {
		if s.isExif() {
			n++
		}
	}
	return n
}

func TestJPEGSegmentsRoundTrip(t *testing.T) {
	src := testJPEG(t)
	segs, err := parseJPEGSegments(src)
	require.NoError(t, err)
	assert.Equal(t, src, encodeJPEGSegments(segs))
}

func TestInjectJPEGWithoutExif(t *testing.T) {
	src := testJPEG(t)
	payload := testPayload(t, "Jane")

	out, err := InjectJPEG(src, payload)
	require.NoError(t, err)

	got, err := JPEGExif(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// SOI, then the new APP1, then the untouched rest of the source.
	segLen := 2 + len(exif.Header) + len(payload)
	assert.Equal(t, src[:2], out[:2])
	assert.Equal(t, []byte{0xFF, markerAPP1, byte(segLen >> 8), byte(segLen)}, out[2:6])
	assert.Equal(t, src[2:], out[4+segLen:])

	_, err = jpeg.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
}

func TestInjectJPEGReplacesExisting(t *testing.T) {
	first, err := InjectJPEG(testJPEG(t), testPayload(t, "first"))
	require.NoError(t, err)

	second := testPayload(t, "second")
	out, err := InjectJPEG(first, second)
	require.NoError(t, err)

	got, err := JPEGExif(out)
	require.NoError(t, err)
	assert.Equal(t, second, got)
	assert.Equal(t, 1, countExifSegments(t, out))
}

func TestInjectJPEGDropsDuplicateExif(t *testing.T) {
	src := testJPEG(t)
	segs, err := parseJPEGSegments(src)
	require.NoError(t, err)
	dup := jpegSegment{marker: markerAPP1, data: append(append([]byte{}, exif.Header...), testPayload(t, "dup")...)}
	segs = append(segs[:1], append([]jpegSegment{dup, dup}, segs[1:]...)...)

	out, err := InjectJPEG(encodeJPEGSegments(segs), testPayload(t, "new"))
	require.NoError(t, err)
	assert.Equal(t, 1, countExifSegments(t, out))
}

func TestInjectJPEGAfterJFIF(t *testing.T) {
	src := testJPEG(t)
	segs, err := parseJPEGSegments(src)
	require.NoError(t, err)
	jfif := jpegSegment{marker: markerAPP0, data: []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")}
	segs = append(segs[:1], append([]jpegSegment{jfif}, segs[1:]...)...)

	out, err := InjectJPEG(encodeJPEGSegments(segs), testPayload(t, "Jane"))
	require.NoError(t, err)

	got, err := parseJPEGSegments(out)
	require.NoError(t, err)
	assert.Equal(t, byte(markerAPP0), got[1].marker)
	assert.True(t, got[2].isExif())
}

func TestInjectJPEGTooLarge(t *testing.T) {
	_, err := InjectJPEG(testJPEG(t), make([]byte, 70000))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestJPEGErrors(t *testing.T) {
	_, err := JPEGExif(testJPEG(t))
	assert.ErrorIs(t, err, ErrNoExif)

	_, err = JPEGExif([]byte("not a jpeg"))
	assert.ErrorIs(t, err, ErrNotJPEG)

	src := testJPEG(t)
	_, err = parseJPEGSegments(src[:20])
	assert.Error(t, err)
}

func TestSetPNGExif(t *testing.T) {
	src := testPNG(t)
	payload := testPayload(t, "Jane")

	out, err := SetPNGExif(src, payload)
	require.NoError(t, err)

	got, err := PNGExif(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	chunks, err := readPNGChunks(out)
	require.NoError(t, err)
	exifAt, idatAt := -1, -1
	for i, c := range chunks {
		if c.typ == "eXIf" && exifAt < 0 {
			exifAt = i
		}
		if c.typ == "IDAT" && idatAt < 0 {
			idatAt = i
		}
	}
	assert.Less(t, exifAt, idatAt)

	// image/png checks every chunk CRC.
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, gradient().Bounds(), img.Bounds())

	again, err := SetPNGExif(out, testPayload(t, "Other"))
	require.NoError(t, err)
	chunks, err = readPNGChunks(again)
	require.NoError(t, err)
	n := 0
	for _, c := range chunks {
		if c.typ == "eXIf" {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestPNGErrors(t *testing.T) {
	_, err := PNGExif(testPNG(t))
	assert.ErrorIs(t, err, ErrNoExif)

	_, err = PNGExif([]byte("GIF89a"))
	assert.ErrorIs(t, err, ErrNotPNG)

	src := testPNG(t)
	_, err = PNGExif(src[:len(src)-20])
	assert.Error(t, err)

	// A chunk length far past the end of the file is rejected before
	// anything is allocated for it.
	huge := append(append([]byte{}, pngSignature...), 0xFF, 0xFF, 0xFF, 0xF0, 'I', 'H', 'D', 'R')
	huge = append(huge, make([]byte, 16)...)
	_, err = PNGExif(huge)
	assert.ErrorContains(t, err, "overruns file")
	_, _, err = ReadExif(huge, "a.png")
	assert.ErrorContains(t, err, "overruns file")
}

func TestSetWebPExif(t *testing.T) {
	src := testWebP(t)
	payload := testPayload(t, "Jane")

	out, err := SetWebPExif(src, payload)
	require.NoError(t, err)

	got, err := WebPExif(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	chunks, err := readWebPChunks(out)
	require.NoError(t, err)
	require.Equal(t, "VP8X", chunks[0].id)
	assert.Equal(t, byte(vp8xFlagEXIF), chunks[0].data[0]&vp8xFlagEXIF)
	assert.Zero(t, chunks[0].data[0]&vp8xFlagAlpha)

	w, h, err := canvasSize(chunks)
	require.NoError(t, err)
	assert.Equal(t, 24, w)
	assert.Equal(t, 16, h)

	img, err := webp.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, gradient().Bounds(), img.Bounds())
}

func TestWebPExifStripsHeader(t *testing.T) {
	payload := testPayload(t, "Jane")
	chunks, err := readWebPChunks(testWebP(t))
	require.NoError(t, err)
	chunks = append(chunks, riffChunk{id: "EXIF", data: append(append([]byte{}, exif.Header...), payload...)})

	got, err := WebPExif(encodeWebPChunks(chunks))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestWebPErrors(t *testing.T) {
	_, err := WebPExif(testWebP(t))
	assert.ErrorIs(t, err, ErrNoExif)

	_, err = WebPExif([]byte("RIFF\x00\x00\x00\x00WAVE"))
	assert.ErrorIs(t, err, ErrNotWebP)
}

func TestReadExifDispatch(t *testing.T) {
	payload := testPayload(t, "Jane")

	jpg, err := InjectJPEG(testJPEG(t), payload)
	require.NoError(t, err)
	pngData, err := SetPNGExif(testPNG(t), payload)
	require.NoError(t, err)
	webpData, err := SetWebPExif(testWebP(t), payload)
	require.NoError(t, err)

	cases := []struct {
		name string
		data []byte
		hint string
		want core.FormatID
	}{
		{"jpeg", jpg, "a.jpg", core.FmtJPEG},
		{"png", pngData, "a.png", core.FmtPNG},
		{"webp", webpData, "a.webp", core.FmtWebP},
		{"content wins over extension", jpg, "a.png", core.FmtJPEG},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, id, err := ReadExif(tc.data, tc.hint)
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
			assert.Equal(t, payload, got)
		})
	}

	_, _, err = ReadExif([]byte("GIF89a\x01\x00\x01\x00"), "a.gif")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestReencode(t *testing.T) {
	payload := testPayload(t, "Jane")
	src := testPNG(t)

	t.Run("png", func(t *testing.T) {
		out, err := Reencode(src, core.FmtPNG, payload)
		require.NoError(t, err)
		got, err := PNGExif(out)
		require.NoError(t, err)
		assert.Equal(t, payload, got)

		img, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, gradient().Pix, toNRGBA(img).Pix, "PNG re-encode is lossless")
	})

	t.Run("webp", func(t *testing.T) {
		out, err := Reencode(src, core.FmtWebP, payload)
		require.NoError(t, err)
		got, err := WebPExif(out)
		require.NoError(t, err)
		assert.Equal(t, payload, got)

		img, err := webp.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, gradient().Pix, toNRGBA(img).Pix, "VP8L re-encode is lossless")
	})

	t.Run("from jpeg", func(t *testing.T) {
		out, err := Reencode(testJPEG(t), core.FmtPNG, payload)
		require.NoError(t, err)
		_, err = PNGExif(out)
		assert.NoError(t, err)
	})

	t.Run("unsupported target", func(t *testing.T) {
		_, err := Reencode(src, core.FmtJPEG, payload)
		assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	})

	t.Run("undecodable source", func(t *testing.T) {
		_, err := Reencode([]byte("garbage"), core.FmtPNG, payload)
		assert.Error(t, err)
	})
}

func toNRGBA(img goimage.Image) *goimage.NRGBA {
	out := goimage.NewNRGBA(img.Bounds())
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

func TestView(t *testing.T) {
	out, err := InjectJPEG(testJPEG(t), testPayload(t, "Jane"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, out, 0644))

	m, err := View(path)
	require.NoError(t, err)
	assert.Equal(t, "JPEG", m.Format)

	fields := map[string]core.MetaField{}
	for _, f := range m.Fields {
		fields[f.Key] = f
	}
	require.Contains(t, fields, "Artist")
	assert.Equal(t, "Jane", fields["Artist"].Value)
	assert.True(t, fields["Artist"].Editable)
	assert.Equal(t, "2024:05:06 07:08:09", fields["DateTimeOriginal"].Value)
}

func TestViewRejectsOversizedCount(t *testing.T) {
	// IFD0 with one SHORT entry whose count would wrap a 32-bit size.
	payload := []byte{
		'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x80, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	out, err := InjectJPEG(testJPEG(t), payload)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "crafted.jpg")
	require.NoError(t, os.WriteFile(path, out, 0644))

	_, err = View(path)
	assert.ErrorIs(t, err, exif.ErrMalformed)
}

func TestViewWithoutExif(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.png")
	require.NoError(t, os.WriteFile(path, testPNG(t), 0644))

	m, err := View(path)
	require.NoError(t, err)
	assert.Equal(t, "PNG", m.Format)
	assert.Empty(t, m.Fields)
}
