package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ankit-chaubey/exif-surgery/core"
	"github.com/ankit-chaubey/exif-surgery/core/editor"
	"github.com/ankit-chaubey/exif-surgery/core/image"
)

const usage = `Usage:
  surgery view <image> [--json]
  surgery edit <image> [--out path] [--artist name] [--date "YYYY:MM:DD HH:MM:SS"] [--json] [--verbose]

Supported images: .jpg .jpeg .png .webp
`

// Exit codes.
const (
	exitOK         = 0
	exitFailed     = 1
	exitUnverified = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return exitFailed
	}

	switch args[0] {
	case "view":
		return runView(args[1:], stdout, stderr)
	case "edit":
		return runEdit(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitFailed
	}
}

func newLogger(stderr io.Writer, jsonMode, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(stderr)
	log.SetLevel(logrus.WarnLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if jsonMode {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func newPrinter(stdout, stderr io.Writer, jsonMode, verbose bool) *core.Printer {
	p := core.NewPrinter(jsonMode, verbose)
	p.Writer = stdout
	p.Err = stderr
	return p
}

func openImage(fs *pflag.FlagSet, p *core.Printer) (string, bool) {
	if fs.NArg() != 1 {
		p.PrintError("expected exactly one image path")
		return "", false
	}
	file := fs.Arg(0)
	if !core.AcceptedExtension(file) {
		p.PrintError(fmt.Sprintf("%s: only .jpg, .jpeg, .png and .webp files are supported", file))
		return "", false
	}
	return file, true
}

// describeFormat reports the sniffed format in verbose mode, and warns when
// the content disagrees with the extension.
func describeFormat(p *core.Printer, file string) {
	if !p.Verbose {
		return
	}
	id, err := core.DetectFormat(file)
	if err != nil {
		return
	}
	if info, ok := core.Info(id); ok {
		p.PrintInfo(fmt.Sprintf("%s: %s. %s", file, info.Name, info.Notes))
	}
	if ext := core.FormatForPath(file); id != ext {
		p.PrintWarning(fmt.Sprintf("%s holds %s data but is named as %s", file, id, ext))
	}
}

func runView(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("view", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonMode := fs.Bool("json", false, "print JSON")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return exitFailed
	}
	p := newPrinter(stdout, stderr, *jsonMode, *verbose)
	file, ok := openImage(fs, p)
	if !ok {
		return exitFailed
	}
	describeFormat(p, file)

	ed := editor.New(editor.Config{Logger: newLogger(stderr, *jsonMode, *verbose)})
	artist, timestamp := ed.Read(file)

	m, err := image.View(file)
	if err != nil {
		p.PrintError(err.Error())
		return exitFailed
	}
	m.Fields = append([]core.MetaField{
		{Key: "Artist", Value: artist, Category: "Summary", Editable: true},
		{Key: "DateTimeOriginal", Value: timestamp, Category: "Summary", Editable: true},
	}, m.Fields...)
	p.PrintMetadata(m)
	return exitOK
}

func runEdit(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("edit", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.StringP("out", "o", "", "destination file (default <name>_edited<ext>)")
	artist := fs.StringP("artist", "a", "", "new Artist value (default: current value)")
	date := fs.StringP("date", "d", "", `new capture time, "YYYY:MM:DD HH:MM:SS" (default: current value)`)
	jsonMode := fs.Bool("json", false, "print JSON")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return exitFailed
	}
	p := newPrinter(stdout, stderr, *jsonMode, *verbose)
	file, ok := openImage(fs, p)
	if !ok {
		return exitFailed
	}
	describeFormat(p, file)

	ed := editor.New(editor.Config{Logger: newLogger(stderr, *jsonMode, *verbose)})

	// Unset flags keep the values already in the file.
	curArtist, curDate := ed.Read(file)
	req := editor.Request{
		Source:      file,
		Destination: *out,
		Artist:      curArtist,
		Timestamp:   curDate,
	}
	if fs.Changed("artist") {
		req.Artist = *artist
	}
	if fs.Changed("date") {
		req.Timestamp = strings.TrimSpace(*date)
	}
	if req.Destination == "" {
		req.Destination = core.DefaultOutputPath(file)
	}

	report := ed.Edit(req)
	p.PrintReport(report)

	switch report.Outcome {
	case core.OutcomeVerified:
		return exitOK
	case core.OutcomeUnverified:
		return exitUnverified
	default:
		return exitFailed
	}
}
