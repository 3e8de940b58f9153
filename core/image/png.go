package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// ErrNotPNG is returned for data without the PNG signature.
var ErrNotPNG = errors.New("not a valid PNG")

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type pngChunk struct {
	typ  string
	data []byte
}

func readPNGChunks(data []byte) ([]pngChunk, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, ErrNotPNG
	}
	r := bytes.NewReader(data[len(pngSignature):])

	var chunks []pngChunk
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("png: truncated chunk header: %w", err)
		}
		length := binary.BigEndian.Uint32(hdr[0:4])
		typ := string(hdr[4:8])
		// Data plus CRC must be in what is left of the file.
		if uint64(length)+4 > uint64(r.Len()) {
			return nil, fmt.Errorf("png: %s chunk length %d overruns file", typ, length)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("png: truncated %s chunk: %w", typ, err)
		}
		var crcBuf [4]byte
		if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
			return nil, fmt.Errorf("png: missing CRC for %s chunk: %w", typ, err)
		}

		chunks = append(chunks, pngChunk{typ: typ, data: data})
		if typ == "IEND" {
			break
		}
	}
	return chunks, nil
}

func encodePNGChunks(chunks []pngChunk) []byte {
	var buf bytes.Buffer
	buf.Write(pngSignature)
	for _, c := range chunks {
		writePNGChunk(&buf, c.typ, c.data)
	}
	return buf.Bytes()
}

func writePNGChunk(w *bytes.Buffer, typ string, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	w.Write(lenBuf[:])
	w.WriteString(typ)
	w.Write(data)

	// CRC over type + data
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc.Sum32())
	w.Write(crcBuf[:])
}

// PNGExif returns the payload of the eXIf chunk.
func PNGExif(data []byte) ([]byte, error) {
	chunks, err := readPNGChunks(data)
	if err != nil {
		return nil, err
	}
	for _, c := range chunks {
		if c.typ == "eXIf" {
			return c.data, nil
		}
	}
	return nil, ErrNoExif
}

// SetPNGExif returns data with a single eXIf chunk holding payload, placed
// before the first IDAT.
func SetPNGExif(data, payload []byte) ([]byte, error) {
	chunks, err := readPNGChunks(data)
	if err != nil {
		return nil, err
	}

	exifChunk := pngChunk{typ: "eXIf", data: payload}
	final := make([]pngChunk, 0, len(chunks)+1)
	inserted := false
	for _, c := range chunks {
		if c.typ == "eXIf" {
			continue
		}
		if !inserted && (c.typ == "IDAT" || c.typ == "IEND") {
			final = append(final, exifChunk)
			inserted = true
		}
		final = append(final, c)
	}
	if !inserted {
		return nil, fmt.Errorf("png: no IDAT chunk")
	}
	return encodePNGChunks(final), nil
}
