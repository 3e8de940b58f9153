package editor

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/ankit-chaubey/exif-surgery/core"
	"github.com/ankit-chaubey/exif-surgery/core/exif"
	"github.com/ankit-chaubey/exif-surgery/core/image"
)

// WriteResult describes a successful write.
type WriteResult struct {
	Strategy  core.Strategy
	Format    core.FormatID
	Message   string
	Bytes     int // size of the written file
	ExifBytes int // size of the encoded EXIF block
}

// Write produces req.Destination from req.Source with Artist, Software and
// the three timestamp fields overwritten. Every other EXIF entry of the
// source is kept. JPEG destinations get the new EXIF segment spliced in
// without touching image data; other formats are re-encoded with the EXIF
// block attached.
//
// Nothing is written unless every step before the final rename succeeds.
// Errors wrap the underlying cause.
func (e *Editor) Write(req Request) (*WriteResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	strategy, format, err := core.StrategyFor(req.Destination)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	log := e.log.WithFields(logrus.Fields{
		"src":      req.Source,
		"dst":      req.Destination,
		"strategy": strategy,
	})

	src, err := os.ReadFile(req.Source)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	info, err := os.Stat(req.Source)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}

	block, err := sourceBlock(src, req.Source)
	if err != nil {
		return nil, err
	}
	log.Debugf("loaded EXIF block (empty=%t)", block.Empty())

	block.Apply(exif.Record{
		Artist:            exif.Some(req.Artist),
		Software:          exif.Some(SoftwareName),
		DateTime:          exif.Some(req.Timestamp),
		DateTimeOriginal:  exif.Some(req.Timestamp),
		DateTimeDigitized: exif.Some(req.Timestamp),
	})

	payload, err := block.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode EXIF: %w", err)
	}
	log.Debugf("encoded EXIF block: %s", humanize.Bytes(uint64(len(payload))))

	var out []byte
	switch strategy {
	case core.StrategyInject:
		out, err = image.InjectJPEG(src, payload)
		if err != nil {
			return nil, fmt.Errorf("inject EXIF: %w", err)
		}
	case core.StrategyReencode:
		out, err = image.Reencode(src, format, payload)
		if err != nil {
			return nil, fmt.Errorf("re-encode: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: no strategy %q", core.ErrUnsupportedFormat, strategy)
	}

	if err := writeFileAtomic(req.Destination, out, info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("write destination: %w", err)
	}
	if strategy == core.StrategyInject && !samePath(req.Source, req.Destination) {
		if err := preserveTimes(req.Destination, info); err != nil {
			log.Debugf("modification time not preserved: %v", err)
		}
	}
	log.Debugf("wrote %s", humanize.Bytes(uint64(len(out))))

	return &WriteResult{
		Strategy:  strategy,
		Format:    format,
		Message:   successMessage(strategy, format),
		Bytes:     len(out),
		ExifBytes: len(payload),
	}, nil
}

// sourceBlock decodes the EXIF block of src, or returns an empty block when
// src has none.
func sourceBlock(src []byte, path string) (*exif.Block, error) {
	payload, _, err := image.ReadExif(src, path)
	if errors.Is(err, image.ErrNoExif) {
		return exif.NewBlock(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read source EXIF: %w", err)
	}
	block, err := exif.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("unsupported EXIF structure in source: %w", err)
	}
	return block, nil
}

func successMessage(s core.Strategy, f core.FormatID) string {
	if s == core.StrategyInject {
		return "saved (JPEG direct injection)"
	}
	return fmt.Sprintf("saved (%s re-encoded save)", strings.ToUpper(string(f)))
}
