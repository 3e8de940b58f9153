// Package editor reads and rewrites the Artist and capture time of a single
// image file.
//
// Each call is an independent, synchronous operation on the filesystem. An
// Editor holds no state between calls besides its logger and clock, and is
// not meant to run two edits on the same destination at once.
package editor

import (
	"time"

	"github.com/sirupsen/logrus"
)

// SoftwareName is written to the Software field of every edited file.
const SoftwareName = "exif-surgery"

// Config configures an Editor. The zero value is usable.
type Config struct {
	// Logger receives step-by-step debug logs and verification warnings.
	// Defaults to logrus.New().
	Logger *logrus.Logger
	// Now supplies the fallback timestamp for files without one.
	// Defaults to time.Now.
	Now func() time.Time
}

// Editor reads and writes EXIF Artist and timestamp fields.
type Editor struct {
	log *logrus.Logger
	now func() time.Time
}

// New returns an Editor for cfg.
func New(cfg Config) *Editor {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Editor{log: cfg.Logger, now: cfg.Now}
}
