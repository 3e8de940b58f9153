package editor

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ankit-chaubey/exif-surgery/core"
	"github.com/ankit-chaubey/exif-surgery/core/exif"
	"github.com/ankit-chaubey/exif-surgery/core/image"
)

// FieldResult is one field read from a file: its value or why it is missing.
type FieldResult struct {
	Value string
	Err   error
}

// OK reports whether the field was read.
func (f FieldResult) OK() bool {
	return f.Err == nil
}

// Fields is the raw outcome of reading a file, before defaults are applied.
type Fields struct {
	Artist           FieldResult
	DateTimeOriginal FieldResult
}

// ReadFields reads Artist and DateTimeOriginal from the image at path.
// Each field carries its own error, so a corrupt Artist does not hide a
// valid timestamp and vice versa. When the block itself cannot be read, both
// fields carry that error.
func (e *Editor) ReadFields(path string) Fields {
	block, err := loadBlock(path)
	if err != nil {
		return Fields{Artist: FieldResult{Err: err}, DateTimeOriginal: FieldResult{Err: err}}
	}
	return Fields{
		Artist:           textField(block, exif.Artist),
		DateTimeOriginal: textField(block, exif.DateTimeOriginal),
	}
}

// Read returns the Artist and capture timestamp of the image at path. It
// never fails: a missing or unreadable value becomes "" for the artist and
// the current time for the timestamp.
func (e *Editor) Read(path string) (artist, timestamp string) {
	f := e.ReadFields(path)
	if f.Artist.OK() {
		artist = f.Artist.Value
	} else {
		e.log.WithFields(logrus.Fields{"path": path, "field": "Artist"}).Debugf("using default: %v", f.Artist.Err)
	}
	if f.DateTimeOriginal.OK() && f.DateTimeOriginal.Value != "" {
		timestamp = f.DateTimeOriginal.Value
	} else {
		timestamp = core.FormatTimestamp(e.now())
		e.log.WithFields(logrus.Fields{"path": path, "field": "DateTimeOriginal"}).Debugf("using current time: %v", f.DateTimeOriginal.Err)
	}
	return artist, timestamp
}

// loadBlock reads path fully, closing it before returning, and decodes its
// EXIF block. A broken Exif or GPS sub-IFD does not hide IFD0 fields.
func loadBlock(path string) (*exif.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	payload, _, err := image.ReadExif(data, path)
	if err != nil {
		return nil, err
	}
	return exif.DecodeLenient(payload)
}

func textField(b *exif.Block, id exif.FieldID) FieldResult {
	v, err := b.Text(id)
	if err != nil {
		return FieldResult{Err: fmt.Errorf("read %s: %w", id, err)}
	}
	return FieldResult{Value: v}
}
