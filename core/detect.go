package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedFormat is returned for files surgery cannot edit.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// FormatID enumerates every recognised format.
type FormatID string

const (
	FmtJPEG FormatID = "jpeg"
	FmtPNG  FormatID = "png"
	FmtWebP FormatID = "webp"

	FmtUnknown FormatID = "unknown"
)

// Strategy names how the writer produces the destination file.
type Strategy string

const (
	// StrategyInject splices the EXIF segment into the existing container
	// without touching compressed image data.
	StrategyInject Strategy = "inject"
	// StrategyReencode decodes the pixels and saves them with the format's
	// own encoder, attaching EXIF at save time.
	StrategyReencode Strategy = "reencode"
)

// extMap maps lowercase extensions to format IDs.
var extMap = map[string]FormatID{
	".jpg":  FmtJPEG,
	".jpeg": FmtJPEG,
	".png":  FmtPNG,
	".webp": FmtWebP,
}

var formatInfo = map[FormatID]FormatInfo{
	FmtJPEG: {
		Name:       "JPEG",
		Extensions: []string{".jpg", ".jpeg"},
		MIMETypes:  []string{"image/jpeg"},
		Strategy:   StrategyInject,
		Notes:      "APP1 Exif segment replaced in place. Scan data is never re-encoded.",
	},
	FmtPNG: {
		Name:       "PNG",
		Extensions: []string{".png"},
		MIMETypes:  []string{"image/png"},
		Strategy:   StrategyReencode,
		Notes:      "Re-encoded losslessly with an eXIf chunk.",
	},
	FmtWebP: {
		Name:       "WebP",
		Extensions: []string{".webp"},
		MIMETypes:  []string{"image/webp"},
		Strategy:   StrategyReencode,
		Notes:      "Re-encoded as lossless VP8L inside a VP8X container with an EXIF chunk.",
	},
}

// Info returns the capabilities of a format.
func Info(id FormatID) (FormatInfo, bool) {
	info, ok := formatInfo[id]
	return info, ok
}

// FormatForPath returns the format implied by the file extension of path.
func FormatForPath(path string) FormatID {
	if id, ok := extMap[strings.ToLower(filepath.Ext(path))]; ok {
		return id
	}
	return FmtUnknown
}

// AcceptedExtension reports whether path has an extension surgery can open.
func AcceptedExtension(path string) bool {
	return FormatForPath(path) != FmtUnknown
}

// StrategyFor selects the write strategy from the destination extension.
func StrategyFor(path string) (Strategy, FormatID, error) {
	id := FormatForPath(path)
	info, ok := formatInfo[id]
	if !ok {
		return "", FmtUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return info.Strategy, id, nil
}

// DetectFormat returns the FormatID for the given file, first by sniffing its
// content and falling back to extension.
func DetectFormat(path string) (FormatID, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return FmtUnknown, err
	}
	if id := FormatForMIME(mt.String()); id != FmtUnknown {
		return id, nil
	}
	return FormatForPath(path), nil
}

// DetectFormatBytes is DetectFormat for content already in memory.
func DetectFormatBytes(data []byte, hint string) FormatID {
	if id := FormatForMIME(mimetype.Detect(data).String()); id != FmtUnknown {
		return id
	}
	return FormatForPath(hint)
}

// FormatForMIME maps a MIME type to a format ID.
func FormatForMIME(mime string) FormatID {
	for id, info := range formatInfo {
		for _, m := range info.MIMETypes {
			if m == mime {
				return id
			}
		}
	}
	return FmtUnknown
}

// DefaultOutputPath returns "<dir>/<base>_edited<ext>" for src.
func DefaultOutputPath(src string) string {
	dir, file := filepath.Split(src)
	ext := filepath.Ext(file)
	base := strings.TrimSuffix(file, ext)
	return filepath.Join(dir, base+"_edited"+ext)
}
