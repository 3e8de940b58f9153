package image

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/ankit-chaubey/exif-surgery/core"
	"github.com/ankit-chaubey/exif-surgery/core/exif"
)

// View lists every EXIF tag of the image at path.
func View(path string) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	payload, id, err := ReadExif(data, path)
	m := &core.Metadata{FilePath: path, Format: string(id)}
	if info, ok := core.Info(id); ok {
		m.Format = info.Name
	}
	if errors.Is(err, ErrNoExif) {
		return m, nil
	}
	if err != nil {
		return m, err
	}

	// goexif follows every sub-IFD pointer itself.
	if err := exif.CheckBounds(payload); err != nil {
		return m, fmt.Errorf("decode EXIF: %w", err)
	}
	x, err := goexif.Decode(bytes.NewReader(payload))
	if x == nil {
		return m, fmt.Errorf("decode EXIF: %w", err)
	}

	editable := make(map[string]bool, len(core.EditableFields))
	for _, f := range core.EditableFields {
		editable[f] = true
	}
	x.Walk(exifWalker{m: m, editableSet: editable})
	return m, nil
}

type exifWalker struct {
	m           *core.Metadata
	editableSet map[string]bool
}

func (w exifWalker) Walk(name goexif.FieldName, tag *tiff.Tag) error {
	val := tag.String()
	// Remove surrounding quotes from string values
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}
	w.m.Fields = append(w.m.Fields, core.MetaField{
		Key:      string(name),
		Value:    val,
		Category: "EXIF",
		Editable: w.editableSet[string(name)],
	})
	return nil
}
