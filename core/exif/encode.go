package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/rwcarlsen/goexif/tiff"
)

const (
	tiffHeaderSize = 8
	entrySize      = 12
)

// dir is an IFD laid out for encoding.
type dir struct {
	entries []Entry
	offset  uint32
	next    uint32
}

func (d *dir) size() uint32 {
	n := uint32(2 + entrySize*len(d.entries) + 4)
	for _, e := range d.entries {
		if len(e.Value) > 4 {
			n += uint32(len(e.Value) + len(e.Value)%2)
		}
	}
	return n
}

// pointer is a LONG entry whose value is patched once offsets are known.
func pointer(tag uint16) Entry {
	return Entry{Tag: tag, Type: tiff.DTLong, Count: 1, Value: make([]byte, 4)}
}

// Encode serialises the block to TIFF form without the "Exif\0\0" header.
//
// Layout: header, IFD0, Exif IFD, GPS IFD, Interop IFD, IFD1, thumbnail.
// Each directory is followed by its out-of-line values.
func (b *Block) Encode() ([]byte, error) {
	order := b.Order
	if order == nil {
		order = binary.BigEndian
	}

	hasInterop := b.ifds[IFDInterop].Len() > 0
	hasExif := b.ifds[IFDExif].Len() > 0 || hasInterop
	hasGPS := b.ifds[IFDGPS].Len() > 0
	hasThumb := b.ifds[IFDThumbnail].Len() > 0 || len(b.Thumbnail) > 0

	dirs := make(map[IFDKind]*dir)
	build := func(k IFDKind, extra ...Entry) *dir {
		d := &dir{entries: b.ifds[k].Entries()}
		if len(extra) > 0 {
			d.entries = append(d.entries, extra...)
			sortEntries(d.entries)
		}
		dirs[k] = d
		return d
	}

	var primaryExtra []Entry
	if hasExif {
		primaryExtra = append(primaryExtra, pointer(tagExifPointer))
	}
	if hasGPS {
		primaryExtra = append(primaryExtra, pointer(tagGPSPointer))
	}
	layout := []*dir{build(IFDPrimary, primaryExtra...)}
	if hasExif {
		var extra []Entry
		if hasInterop {
			extra = append(extra, pointer(tagInteropPointer))
		}
		layout = append(layout, build(IFDExif, extra...))
	}
	if hasGPS {
		layout = append(layout, build(IFDGPS))
	}
	if hasInterop {
		layout = append(layout, build(IFDInterop))
	}
	if hasThumb {
		var extra []Entry
		if len(b.Thumbnail) > 0 {
			extra = append(extra, pointer(tagThumbOffset), pointer(tagThumbLength))
		}
		layout = append(layout, build(IFDThumbnail, extra...))
	}

	// Assign offsets.
	off := uint32(tiffHeaderSize)
	for _, d := range layout {
		d.offset = off
		off += d.size()
	}
	thumbOffset := off

	patch := func(d *dir, tag uint16, v uint32) {
		for i := range d.entries {
			if d.entries[i].Tag == tag {
				order.PutUint32(d.entries[i].Value, v)
				return
			}
		}
	}
	if hasExif {
		patch(dirs[IFDPrimary], tagExifPointer, dirs[IFDExif].offset)
	}
	if hasGPS {
		patch(dirs[IFDPrimary], tagGPSPointer, dirs[IFDGPS].offset)
	}
	if hasInterop {
		patch(dirs[IFDExif], tagInteropPointer, dirs[IFDInterop].offset)
	}
	if hasThumb {
		dirs[IFDPrimary].next = dirs[IFDThumbnail].offset
		if len(b.Thumbnail) > 0 {
			patch(dirs[IFDThumbnail], tagThumbOffset, thumbOffset)
			patch(dirs[IFDThumbnail], tagThumbLength, uint32(len(b.Thumbnail)))
		}
	}

	var buf bytes.Buffer
	if order == binary.LittleEndian {
		buf.WriteString("II")
	} else {
		buf.WriteString("MM")
	}
	writeUint16(&buf, order, 42)
	writeUint32(&buf, order, tiffHeaderSize)

	for _, d := range layout {
		if uint32(buf.Len()) != d.offset {
			return nil, fmt.Errorf("exif: IFD at %d, expected %d", buf.Len(), d.offset)
		}
		encodeDir(&buf, order, d)
	}
	buf.Write(b.Thumbnail)
	return buf.Bytes(), nil
}

func encodeDir(buf *bytes.Buffer, order binary.ByteOrder, d *dir) {
	writeUint16(buf, order, uint16(len(d.entries)))

	valueOff := d.offset + uint32(2+entrySize*len(d.entries)+4)
	var values bytes.Buffer
	for _, e := range d.entries {
		writeUint16(buf, order, e.Tag)
		writeUint16(buf, order, uint16(e.Type))
		writeUint32(buf, order, e.Count)
		if len(e.Value) <= 4 {
			var inline [4]byte
			copy(inline[:], e.Value)
			buf.Write(inline[:])
			continue
		}
		writeUint32(buf, order, valueOff+uint32(values.Len()))
		values.Write(e.Value)
		if len(e.Value)%2 != 0 {
			values.WriteByte(0)
		}
	}
	writeUint32(buf, order, d.next)
	buf.Write(values.Bytes())
}

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool { return es[i].Tag < es[j].Tag })
}

func writeUint16(buf *bytes.Buffer, order binary.ByteOrder, v uint16) {
	var b [2]byte
	order.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, order binary.ByteOrder, v uint32) {
	var b [4]byte
	order.PutUint32(b[:], v)
	buf.Write(b[:])
}
