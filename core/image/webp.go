package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ankit-chaubey/exif-surgery/core/exif"
)

// ErrNotWebP is returned for data that is not a RIFF/WEBP container.
var ErrNotWebP = errors.New("not a valid WebP")

// VP8X feature flags.
const (
	vp8xFlagAnimation = 0x02
	vp8xFlagXMP       = 0x04
	vp8xFlagEXIF      = 0x08
	vp8xFlagAlpha     = 0x10
	vp8xFlagICC       = 0x20
)

type riffChunk struct {
	id   string
	data []byte
}

func readWebPChunks(data []byte) ([]riffChunk, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil, ErrNotWebP
	}

	var chunks []riffChunk
	offset := 12 // skip RIFF header
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if size < 0 || offset+size > len(data) {
			return nil, fmt.Errorf("webp: chunk %q overruns file", id)
		}
		chunks = append(chunks, riffChunk{id: id, data: data[offset : offset+size]})

		offset += size
		if size%2 != 0 {
			offset++ // padding
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("webp: no chunks")
	}
	return chunks, nil
}

func encodeWebPChunks(chunks []riffChunk) []byte {
	var body bytes.Buffer
	for _, c := range chunks {
		body.WriteString(c.id)
		var sizeBuf [4]byte
		binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(c.data)))
		body.Write(sizeBuf[:])
		body.Write(c.data)
		if len(c.data)%2 != 0 {
			body.WriteByte(0)
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	var totalSize [4]byte
	binary.LittleEndian.PutUint32(totalSize[:], uint32(body.Len()+4))
	out.Write(totalSize[:])
	out.WriteString("WEBP")
	out.Write(body.Bytes())
	return out.Bytes()
}

// WebPExif returns the TIFF payload of the EXIF chunk. Some writers prefix
// the chunk with "Exif\0\0"; the prefix is removed.
func WebPExif(data []byte) ([]byte, error) {
	chunks, err := readWebPChunks(data)
	if err != nil {
		return nil, err
	}
	for _, c := range chunks {
		if c.id == "EXIF" {
			return bytes.TrimPrefix(c.data, exif.Header), nil
		}
	}
	return nil, ErrNoExif
}

// canvasSize reads the image dimensions from the VP8X, VP8L or VP8 chunk.
func canvasSize(chunks []riffChunk) (w, h int, err error) {
	for _, c := range chunks {
		d := c.data
		switch c.id {
		case "VP8X":
			if len(d) < 10 {
				return 0, 0, fmt.Errorf("webp: short VP8X chunk")
			}
			w = int(uint32(d[4])|uint32(d[5])<<8|uint32(d[6])<<16) + 1
			h = int(uint32(d[7])|uint32(d[8])<<8|uint32(d[9])<<16) + 1
			return w, h, nil
		case "VP8L":
			if len(d) < 5 || d[0] != 0x2F {
				return 0, 0, fmt.Errorf("webp: bad VP8L header")
			}
			bits := binary.LittleEndian.Uint32(d[1:5])
			return int(bits&0x3FFF) + 1, int((bits>>14)&0x3FFF) + 1, nil
		case "VP8 ":
			if len(d) < 10 || d[3] != 0x9D || d[4] != 0x01 || d[5] != 0x2A {
				return 0, 0, fmt.Errorf("webp: bad VP8 header")
			}
			return int(binary.LittleEndian.Uint16(d[6:8]) & 0x3FFF), int(binary.LittleEndian.Uint16(d[8:10]) & 0x3FFF), nil
		}
	}
	return 0, 0, fmt.Errorf("webp: no image chunk")
}

// SetWebPExif returns data rewritten as an extended (VP8X) WebP carrying a
// single EXIF chunk with payload. Image chunks are copied unchanged.
func SetWebPExif(data, payload []byte) ([]byte, error) {
	chunks, err := readWebPChunks(data)
	if err != nil {
		return nil, err
	}
	w, h, err := canvasSize(chunks)
	if err != nil {
		return nil, err
	}

	flags := byte(vp8xFlagEXIF)
	var body, xmp []riffChunk
	for _, c := range chunks {
		switch c.id {
		case "VP8X", "EXIF":
			continue
		case "XMP ":
			xmp = append(xmp, c)
			flags |= vp8xFlagXMP
			continue
		case "ICCP":
			flags |= vp8xFlagICC
		case "ANIM":
			flags |= vp8xFlagAnimation
		case "ALPH":
			// Only lossy images carry ALPH. golang.org/x/image/webp rejects
			// the alpha flag next to a VP8L chunk, which holds its own alpha.
			flags |= vp8xFlagAlpha
		}
		body = append(body, c)
	}

	vp8x := make([]byte, 10)
	vp8x[0] = flags
	putUint24(vp8x[4:7], uint32(w-1))
	putUint24(vp8x[7:10], uint32(h-1))

	final := make([]riffChunk, 0, len(body)+3)
	final = append(final, riffChunk{id: "VP8X", data: vp8x})
	final = append(final, body...)
	final = append(final, riffChunk{id: "EXIF", data: payload})
	final = append(final, xmp...)
	return encodeWebPChunks(final), nil
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
