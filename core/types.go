// Package core defines the shared types, format registry and output helpers
// for EXIF Surgery.
package core

// MetaField represents a single metadata key-value pair.
type MetaField struct {
	Key      string // Canonical field name (e.g. "Make", "Artist", "DateTimeOriginal")
	Value    string // String representation of the value
	Category string // Category label (e.g. "EXIF", "Summary")
	Editable bool   // Whether this field can be written back by surgery
}

// Metadata holds the metadata listed for a single file.
type Metadata struct {
	FilePath string
	Format   string // Human-readable format name (e.g. "JPEG", "PNG", "WebP")
	Fields   []MetaField
}

// FormatInfo describes what surgery can do with a format.
type FormatInfo struct {
	Name       string   // "JPEG"
	Extensions []string // [".jpg", ".jpeg"]
	MIMETypes  []string
	Strategy   Strategy // How an edited file of this format is written
	Notes      string   // Any caveats or notes
}

// EditableFields are the EXIF fields surgery overwrites on every edit.
var EditableFields = []string{
	"Artist", "Software", "DateTime", "DateTimeOriginal", "DateTimeDigitized",
}

// Outcome classifies the result of an edit.
type Outcome string

const (
	// OutcomeFailed means the write itself failed.
	OutcomeFailed Outcome = "failed"
	// OutcomeVerified means the write succeeded and the read-back matched.
	OutcomeVerified Outcome = "verified"
	// OutcomeUnverified means the write succeeded but the read-back timestamp
	// did not match what was written.
	OutcomeUnverified Outcome = "unverified"
)

// Report is the result of an edit followed by a verification read.
type Report struct {
	Outcome     Outcome
	Strategy    Strategy
	Message     string // Strategy-specific confirmation, or the raw error text
	Destination string
	Expected    string // Timestamp that was requested
	Timestamp   string // Timestamp read back from the destination
	Artist      string // Artist read back from the destination
	Bytes       int    // Size of the written file
	ExifBytes   int    // Size of the EXIF block in it
}

// OK reports whether the write succeeded, verified or not.
func (r Report) OK() bool {
	return r.Outcome != OutcomeFailed
}
