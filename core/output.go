package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
)

// Printer handles all display output for the CLI.
type Printer struct {
	JSON    bool
	Verbose bool
	Writer  io.Writer
	Err     io.Writer
}

// NewPrinter creates a default Printer writing to stdout.
func NewPrinter(jsonMode, verbose bool) *Printer {
	return &Printer{JSON: jsonMode, Verbose: verbose, Writer: os.Stdout, Err: os.Stderr}
}

// PrintMetadata renders a Metadata struct to the configured output.
func (p *Printer) PrintMetadata(m *Metadata) {
	if p.JSON {
		p.printJSON(m)
		return
	}
	p.printText(m)
}

func (p *Printer) printText(m *Metadata) {
	fmt.Fprintf(p.Writer, "File  : %s\n", m.FilePath)
	fmt.Fprintf(p.Writer, "Format: %s\n", m.Format)
	if len(m.Fields) == 0 {
		fmt.Fprintln(p.Writer, "(no metadata found)")
		return
	}
	fmt.Fprintln(p.Writer)

	// Group by category
	groups := make(map[string][]MetaField)
	order := []string{}
	seen := map[string]bool{}
	for _, f := range m.Fields {
		if !seen[f.Category] {
			seen[f.Category] = true
			order = append(order, f.Category)
		}
		groups[f.Category] = append(groups[f.Category], f)
	}

	for _, cat := range order {
		fmt.Fprintf(p.Writer, "── %s ──\n", cat)
		for _, f := range groups[cat] {
			edit := ""
			if f.Editable {
				edit = " [editable]"
			}
			fmt.Fprintf(p.Writer, "  %-30s %s%s\n", f.Key+":", f.Value, edit)
		}
		fmt.Fprintln(p.Writer)
	}
}

func (p *Printer) printJSON(m *Metadata) {
	type jsonField struct {
		Key      string `json:"key"`
		Value    string `json:"value"`
		Category string `json:"category"`
		Editable bool   `json:"editable"`
	}
	type jsonOutput struct {
		FilePath string      `json:"file"`
		Format   string      `json:"format"`
		Fields   []jsonField `json:"fields"`
	}

	out := jsonOutput{
		FilePath: m.FilePath,
		Format:   m.Format,
	}
	for _, f := range m.Fields {
		out.Fields = append(out.Fields, jsonField{
			Key:      f.Key,
			Value:    f.Value,
			Category: f.Category,
			Editable: f.Editable,
		})
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(p.Writer, string(b))
}

// PrintReport renders the outcome of an edit: a confirmation with the
// verification summary, a warning when verification did not match, or the
// raw error.
func (p *Printer) PrintReport(r Report) {
	if p.JSON {
		type jsonReport struct {
			Outcome     Outcome  `json:"outcome"`
			Strategy    Strategy `json:"strategy,omitempty"`
			Message     string   `json:"message"`
			Destination string   `json:"destination"`
			Expected    string   `json:"expected"`
			Timestamp   string   `json:"timestamp,omitempty"`
			Artist      string   `json:"artist,omitempty"`
			Bytes       int      `json:"bytes,omitempty"`
			ExifBytes   int      `json:"exif_bytes,omitempty"`
		}
		b, _ := json.MarshalIndent(jsonReport(r), "", "  ")
		fmt.Fprintln(p.Writer, string(b))
		return
	}

	switch r.Outcome {
	case OutcomeFailed:
		p.PrintError("failed: " + r.Message)
	case OutcomeVerified:
		p.PrintSuccess(r.Message)
		fmt.Fprintln(p.Writer, VerificationSummary(r))
		p.printSizes(r)
	case OutcomeUnverified:
		p.PrintSuccess(r.Message)
		p.printSizes(r)
		p.PrintWarning(MismatchWarning(r))
	}
}

// printSizes shows how large the written file and its EXIF block are, in
// verbose mode.
func (p *Printer) printSizes(r Report) {
	if !p.Verbose || r.Bytes == 0 {
		return
	}
	p.PrintInfo(fmt.Sprintf("  Written    : %s (EXIF block %s)",
		humanize.Bytes(uint64(r.Bytes)), humanize.Bytes(uint64(r.ExifBytes))))
}

// VerificationSummary describes what was read back from the destination.
func VerificationSummary(r Report) string {
	return fmt.Sprintf("Saved and verified.\n\n  DateTimeOriginal: %s\n  Artist          : %s\n\n  Destination: %s",
		r.Timestamp, r.Artist, r.Destination)
}

// MismatchWarning explains a verification mismatch.
func MismatchWarning(r Report) string {
	return fmt.Sprintf("the file was saved, but the timestamp read back does not match.\n\n  expected: %s\n  actual  : %s\n\nSome format and OS combinations do not keep EXIF data.",
		r.Expected, r.Timestamp)
}

// PrintSuccess prints a success message.
func (p *Printer) PrintSuccess(msg string) {
	fmt.Fprintln(p.Writer, "✓ "+msg)
}

// PrintInfo prints an info line (suppressed in JSON mode).
func (p *Printer) PrintInfo(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, msg)
	}
}

// PrintWarning prints a warning to stderr.
func (p *Printer) PrintWarning(msg string) {
	fmt.Fprintln(p.Err, "! Warning: "+msg)
}

// PrintError prints an error to stderr.
func (p *Printer) PrintError(msg string) {
	fmt.Fprintln(p.Err, "✗ Error: "+msg)
}
