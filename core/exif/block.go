// Package exif holds an EXIF block as a small IFD tree that can be decoded
// from, and re-encoded to, the TIFF interchange form. Entries keep their raw
// value bytes so everything surgery does not touch survives unchanged.
package exif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/rwcarlsen/goexif/tiff"
)

var (
	// ErrMalformed is returned when an EXIF payload cannot be parsed.
	ErrMalformed = errors.New("exif: malformed block")
	// ErrFieldAbsent is returned by Text when the field is not in the block.
	ErrFieldAbsent = errors.New("exif: field absent")
	// ErrNotText is returned by Text when the field bytes are not UTF-8 text.
	ErrNotText = errors.New("exif: field is not text")
)

// Header prefixes the TIFF data inside a JPEG APP1 segment.
var Header = []byte("Exif\x00\x00")

// IFDKind names one of the directories of an EXIF block.
type IFDKind int

const (
	IFDPrimary IFDKind = iota // IFD0
	IFDExif
	IFDGPS
	IFDInterop
	IFDThumbnail // IFD1
	numIFDs
)

func (k IFDKind) String() string {
	switch k {
	case IFDPrimary:
		return "0th"
	case IFDExif:
		return "Exif"
	case IFDGPS:
		return "GPS"
	case IFDInterop:
		return "Interop"
	case IFDThumbnail:
		return "1st"
	default:
		return "unknown"
	}
}

// Tags that describe the layout of the block rather than the image. They are
// dropped on decode and regenerated on encode.
const (
	tagExifPointer    uint16 = 0x8769
	tagGPSPointer     uint16 = 0x8825
	tagInteropPointer uint16 = 0xA005
	tagThumbOffset    uint16 = 0x0201
	tagThumbLength    uint16 = 0x0202
	tagStripOffsets   uint16 = 0x0111
)

func structural(tag uint16) bool {
	switch tag {
	case tagExifPointer, tagGPSPointer, tagInteropPointer, tagThumbOffset, tagThumbLength:
		return true
	}
	return false
}

// Entry is a single IFD entry with its value bytes in the block's byte order.
type Entry struct {
	Tag   uint16
	Type  tiff.DataType
	Count uint32
	Value []byte
}

// IFD is an unordered set of entries keyed by tag.
type IFD struct {
	entries map[uint16]Entry
}

func newIFD() *IFD {
	return &IFD{entries: make(map[uint16]Entry)}
}

// Get returns the entry for tag.
func (d *IFD) Get(tag uint16) (Entry, bool) {
	e, ok := d.entries[tag]
	return e, ok
}

// Set adds or replaces an entry.
func (d *IFD) Set(e Entry) {
	d.entries[e.Tag] = e
}

// Len returns the number of entries.
func (d *IFD) Len() int {
	return len(d.entries)
}

// Entries returns the entries sorted by tag, the order TIFF requires.
func (d *IFD) Entries() []Entry {
	out := make([]Entry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

// Block is a decoded EXIF block.
type Block struct {
	Order     binary.ByteOrder
	ifds      [numIFDs]*IFD
	Thumbnail []byte // JPEG thumbnail referenced from IFD1, if any
}

// NewBlock returns an empty big-endian block.
func NewBlock() *Block {
	b := &Block{Order: binary.BigEndian}
	for i := range b.ifds {
		b.ifds[i] = newIFD()
	}
	return b
}

// IFD returns the directory of the given kind. It is never nil.
func (b *Block) IFD(k IFDKind) *IFD {
	return b.ifds[k]
}

// Empty reports whether the block carries no entries at all.
func (b *Block) Empty() bool {
	for _, d := range b.ifds {
		if d.Len() > 0 {
			return false
		}
	}
	return len(b.Thumbnail) == 0
}

// Decode parses TIFF-structured EXIF data, with or without the "Exif\0\0"
// header used by JPEG. Any directory that cannot be read fails the whole
// block, except the Interop IFD, which is dropped.
func Decode(data []byte) (*Block, error) {
	return decode(data, false)
}

// DecodeLenient is Decode for callers that only read fields: a broken Exif
// or GPS sub-IFD is dropped instead of failing the block, so IFD0 fields
// such as Artist stay readable. Blocks decoded this way must not be
// written back.
func DecodeLenient(data []byte) (*Block, error) {
	return decode(data, true)
}

func decode(data []byte, lenient bool) (*Block, error) {
	data = bytes.TrimPrefix(data, Header)

	// goexif trusts entry counts, so every directory is bounds-checked
	// before it sees them.
	order, first, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	if err := checkChain(data, order, first); err != nil {
		return nil, err
	}

	t, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(t.Dirs) == 0 {
		return nil, fmt.Errorf("%w: no IFD0", ErrMalformed)
	}

	b := NewBlock()
	b.Order = t.Order

	ptrs := b.load(IFDPrimary, t.Dirs[0])
	if off, ok := ptrs[tagExifPointer]; ok {
		d, err := decodeSubDir(data, t.Order, off)
		switch {
		case err == nil:
			sub := b.load(IFDExif, d)
			if off, ok := sub[tagInteropPointer]; ok {
				if d, err := decodeSubDir(data, t.Order, off); err == nil {
					b.load(IFDInterop, d)
				}
			}
		case !lenient:
			return nil, fmt.Errorf("exif IFD: %w", err)
		}
	}
	if off, ok := ptrs[tagGPSPointer]; ok {
		d, err := decodeSubDir(data, t.Order, off)
		switch {
		case err == nil:
			b.load(IFDGPS, d)
		case !lenient:
			return nil, fmt.Errorf("GPS IFD: %w", err)
		}
	}

	if len(t.Dirs) > 1 {
		b.loadThumbnail(data, t.Dirs[1])
	}
	return b, nil
}

// load copies the tags of dir into the IFD of kind k and returns the values
// of any structural tags it skipped.
func (b *Block) load(k IFDKind, dir *tiff.Dir) map[uint16]uint32 {
	ptrs := make(map[uint16]uint32)
	for _, tag := range dir.Tags {
		if structural(tag.Id) {
			if len(tag.Val) >= 4 {
				ptrs[tag.Id] = b.Order.Uint32(tag.Val)
			} else if len(tag.Val) == 2 {
				ptrs[tag.Id] = uint32(b.Order.Uint16(tag.Val))
			}
			continue
		}
		b.ifds[k].Set(Entry{
			Tag:   tag.Id,
			Type:  tag.Type,
			Count: tag.Count,
			Value: append([]byte(nil), tag.Val...),
		})
	}
	return ptrs
}

// loadThumbnail keeps IFD1 only when it describes a JPEG thumbnail whose
// bytes are inside the block. Strip-based thumbnails carry offsets this
// encoder does not rewrite, so they are dropped.
func (b *Block) loadThumbnail(data []byte, dir *tiff.Dir) {
	for _, tag := range dir.Tags {
		if tag.Id == tagStripOffsets {
			return
		}
	}
	ptrs := b.load(IFDThumbnail, dir)
	off, okOff := ptrs[tagThumbOffset]
	n, okLen := ptrs[tagThumbLength]
	if !okOff || !okLen || uint64(off)+uint64(n) > uint64(len(data)) {
		return
	}
	b.Thumbnail = append([]byte(nil), data[off:off+n]...)
}

func decodeSubDir(data []byte, order binary.ByteOrder, off uint32) (*tiff.Dir, error) {
	if _, _, err := checkDir(data, order, off); err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)
	if _, err := r.Seek(int64(off), io.SeekStart); err != nil {
		return nil, err
	}
	d, _, err := tiff.DecodeDir(r, order)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return d, nil
}
