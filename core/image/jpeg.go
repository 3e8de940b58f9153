package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ankit-chaubey/exif-surgery/core/exif"
)

var (
	// ErrNotJPEG is returned for data that does not start with SOI.
	ErrNotJPEG = errors.New("not a JPEG")
	// ErrTooLarge is returned when an EXIF block does not fit in one APP1 segment.
	ErrTooLarge = errors.New("EXIF block too large for a JPEG APP1 segment")
)

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP0 = 0xE0
	markerAPP1 = 0xE1
	markerTEM  = 0x01

	// markerScan tags the entropy-coded data that follows SOS. It is kept
	// as raw bytes up to the end of the file.
	markerScan = 0x00

	maxSegmentData = 0xFFFF - 2
)

type jpegSegment struct {
	marker byte
	data   []byte
}

func (s jpegSegment) isExif() bool {
	return s.marker == markerAPP1 && bytes.HasPrefix(s.data, exif.Header)
}

// parseJPEGSegments splits a JPEG into its marker segments. Everything from
// the end of the first SOS header on is kept as one raw segment, so the
// compressed image data is never interpreted.
func parseJPEGSegments(data []byte) ([]jpegSegment, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, ErrNotJPEG
	}
	segs := []jpegSegment{{marker: markerSOI}}

	i := 2
	for i < len(data) {
		if data[i] != 0xFF {
			return nil, fmt.Errorf("jpeg: expected marker at offset %d", i)
		}
		// Fill bytes
		for i < len(data) && data[i] == 0xFF {
			i++
		}
		if i >= len(data) {
			return nil, fmt.Errorf("jpeg: truncated marker at offset %d", i)
		}
		marker := data[i]
		i++

		switch {
		case marker == markerEOI:
			segs = append(segs, jpegSegment{marker: marker})
			return segs, nil
		case marker == markerTEM || (marker >= 0xD0 && marker <= 0xD7):
			segs = append(segs, jpegSegment{marker: marker})
			continue
		}

		if i+2 > len(data) {
			return nil, fmt.Errorf("jpeg: truncated length for marker 0x%02X", marker)
		}
		segLen := int(binary.BigEndian.Uint16(data[i:i+2])) - 2
		i += 2
		if segLen < 0 || i+segLen > len(data) {
			return nil, fmt.Errorf("jpeg: segment 0x%02X overruns file", marker)
		}
		segs = append(segs, jpegSegment{marker: marker, data: data[i : i+segLen]})
		i += segLen

		if marker == markerSOS {
			segs = append(segs, jpegSegment{marker: markerScan, data: data[i:]})
			return segs, nil
		}
	}
	return segs, nil
}

func encodeJPEGSegments(segs []jpegSegment) []byte {
	var buf bytes.Buffer
	for _, seg := range segs {
		switch {
		case seg.marker == markerScan:
			buf.Write(seg.data)
		case seg.marker == markerSOI, seg.marker == markerEOI, seg.marker == markerTEM,
			seg.marker >= 0xD0 && seg.marker <= 0xD7:
			buf.Write([]byte{0xFF, seg.marker})
		default:
			buf.WriteByte(0xFF)
			buf.WriteByte(seg.marker)
			length := uint16(len(seg.data) + 2)
			buf.WriteByte(byte(length >> 8))
			buf.WriteByte(byte(length))
			buf.Write(seg.data)
		}
	}
	return buf.Bytes()
}

// JPEGExif returns the TIFF payload of the first Exif APP1 segment.
func JPEGExif(data []byte) ([]byte, error) {
	segs, err := parseJPEGSegments(data)
	if err != nil {
		return nil, err
	}
	for _, seg := range segs {
		if seg.isExif() {
			return seg.data[len(exif.Header):], nil
		}
	}
	return nil, ErrNoExif
}

// InjectJPEG returns data with its EXIF segment replaced by payload (TIFF
// bytes, no header). The first Exif APP1 is replaced in place and any
// further ones are dropped; without one, the new segment goes right after
// SOI, or after a leading JFIF APP0. All other bytes are copied unchanged.
func InjectJPEG(data, payload []byte) ([]byte, error) {
	seg := jpegSegment{marker: markerAPP1, data: append(append([]byte{}, exif.Header...), payload...)}
	if len(seg.data) > maxSegmentData {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(seg.data))
	}

	segs, err := parseJPEGSegments(data)
	if err != nil {
		return nil, err
	}

	out := make([]jpegSegment, 0, len(segs)+1)
	replaced := false
	for _, s := range segs {
		if s.isExif() {
			if !replaced {
				out = append(out, seg)
				replaced = true
			}
			continue
		}
		out = append(out, s)
	}
	if !replaced {
		pos := 1
		if len(out) > 1 && out[1].marker == markerAPP0 && bytes.HasPrefix(out[1].data, []byte("JFIF\x00")) {
			pos = 2
		}
		out = append(out[:pos], append([]jpegSegment{seg}, out[pos:]...)...)
	}
	return encodeJPEGSegments(out), nil
}
