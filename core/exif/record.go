package exif

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/rwcarlsen/goexif/tiff"
)

// FieldID identifies one of the text fields surgery reads and writes.
type FieldID int

const (
	Artist FieldID = iota
	Software
	DateTime
	DateTimeOriginal
	DateTimeDigitized
)

var fieldSpecs = [...]struct {
	name string
	ifd  IFDKind
	tag  uint16
}{
	Artist:            {"Artist", IFDPrimary, 0x013B},
	Software:          {"Software", IFDPrimary, 0x0131},
	DateTime:          {"DateTime", IFDPrimary, 0x0132},
	DateTimeOriginal:  {"DateTimeOriginal", IFDExif, 0x9003},
	DateTimeDigitized: {"DateTimeDigitized", IFDExif, 0x9004},
}

// Fields lists every FieldID.
var Fields = []FieldID{Artist, Software, DateTime, DateTimeOriginal, DateTimeDigitized}

func (f FieldID) String() string {
	if int(f) < 0 || int(f) >= len(fieldSpecs) {
		return fmt.Sprintf("FieldID(%d)", int(f))
	}
	return fieldSpecs[f].name
}

// Tag returns the IFD and tag number the field lives at.
func (f FieldID) Tag() (IFDKind, uint16) {
	s := fieldSpecs[f]
	return s.ifd, s.tag
}

// Text decodes a field as UTF-8 text with trailing NULs removed.
// It returns ErrFieldAbsent or ErrNotText on failure.
func (b *Block) Text(f FieldID) (string, error) {
	k, tag := f.Tag()
	e, ok := b.ifds[k].Get(tag)
	if !ok {
		return "", fmt.Errorf("%s: %w", f, ErrFieldAbsent)
	}
	switch e.Type {
	case tiff.DTAscii, tiff.DTUndefined, tiff.DTByte:
	default:
		return "", fmt.Errorf("%s: %w (type %d)", f, ErrNotText, e.Type)
	}
	v := bytes.TrimRight(e.Value, "\x00")
	if !utf8.Valid(v) {
		return "", fmt.Errorf("%s: %w (invalid UTF-8)", f, ErrNotText)
	}
	return string(v), nil
}

// SetText stores s as a NUL-terminated ASCII entry.
func (b *Block) SetText(f FieldID, s string) {
	k, tag := f.Tag()
	v := append([]byte(s), 0)
	b.ifds[k].Set(Entry{Tag: tag, Type: tiff.DTAscii, Count: uint32(len(v)), Value: v})
}

// Field is an optional text value. The zero Field is absent, which is not
// the same as a present empty string.
type Field struct {
	Value string
	Set   bool
}

// Some returns a present Field.
func Some(s string) Field {
	return Field{Value: s, Set: true}
}

// Record is the typed view of the fields surgery edits.
type Record struct {
	Artist            Field
	Software          Field
	DateTime          Field
	DateTimeOriginal  Field
	DateTimeDigitized Field
}

// Get returns the field for id.
func (r *Record) Get(id FieldID) Field {
	return *r.ptr(id)
}

func (r *Record) ptr(id FieldID) *Field {
	switch id {
	case Artist:
		return &r.Artist
	case Software:
		return &r.Software
	case DateTime:
		return &r.DateTime
	case DateTimeOriginal:
		return &r.DateTimeOriginal
	case DateTimeDigitized:
		return &r.DateTimeDigitized
	}
	panic(fmt.Sprintf("exif: unknown field %d", int(id)))
}

// Record reads every field of the block. A field that is absent or does not
// decode as text is left unset.
func (b *Block) Record() Record {
	var r Record
	for _, id := range Fields {
		if v, err := b.Text(id); err == nil {
			*r.ptr(id) = Some(v)
		}
	}
	return r
}

// Apply overwrites every set field of r in the block and leaves all other
// entries untouched.
func (b *Block) Apply(r Record) {
	for _, id := range Fields {
		if f := r.Get(id); f.Set {
			b.SetText(id, f.Value)
		}
	}
}
