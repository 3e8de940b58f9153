// Package image finds and replaces the EXIF block inside image containers:
// JPEG (APP1 segment), PNG (eXIf chunk) and WebP (EXIF chunk), and re-encodes
// images with an EXIF block attached.
package image

import (
	"bytes"
	"errors"
	"fmt"
	goimage "image"
	_ "image/jpeg"
	"image/png"

	"github.com/HugoSmits86/nativewebp"
	_ "golang.org/x/image/webp"

	"github.com/ankit-chaubey/exif-surgery/core"
)

// ErrNoExif is returned when a container carries no EXIF block.
var ErrNoExif = errors.New("no EXIF metadata found")

// ReadExif returns the TIFF payload embedded in data. The container is
// sniffed from content, with hint's extension as fallback.
func ReadExif(data []byte, hint string) ([]byte, core.FormatID, error) {
	id := core.DetectFormatBytes(data, hint)
	var (
		payload []byte
		err     error
	)
	switch id {
	case core.FmtJPEG:
		payload, err = JPEGExif(data)
	case core.FmtPNG:
		payload, err = PNGExif(data)
	case core.FmtWebP:
		payload, err = WebPExif(data)
	default:
		return nil, id, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, hint)
	}
	return payload, id, err
}

// Reencode decodes the image in src and saves it in format id with the EXIF
// payload attached. PNG is written by image/png and WebP as lossless VP8L, so
// neither adds compression loss of its own.
func Reencode(src []byte, id core.FormatID, payload []byte) ([]byte, error) {
	img, _, err := goimage.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	switch id {
	case core.FmtPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
		return SetPNGExif(buf.Bytes(), payload)
	case core.FmtWebP:
		if err := nativewebp.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("encode WebP: %w", err)
		}
		return SetWebPExif(buf.Bytes(), payload)
	default:
		return nil, fmt.Errorf("%w: cannot re-encode as %s", core.ErrUnsupportedFormat, id)
	}
}
