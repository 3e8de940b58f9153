package core

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForPath(t *testing.T) {
	cases := map[string]FormatID{
		"a.jpg":        FmtJPEG,
		"a.JPEG":       FmtJPEG,
		"dir/b.Png":    FmtPNG,
		"c.webp":       FmtWebP,
		"d.gif":        FmtUnknown,
		"no-extension": FmtUnknown,
	}
	for path, want := range cases {
		assert.Equal(t, want, FormatForPath(path), path)
	}
	assert.True(t, AcceptedExtension("x.jpeg"))
	assert.False(t, AcceptedExtension("x.tiff"))
}

func TestStrategyForUnsupported(t *testing.T) {
	_, id, err := StrategyFor("out.bmp")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, FmtUnknown, id)
}

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()
	pngSig := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")

	// Content wins over a misleading extension.
	path := filepath.Join(dir, "really-png.jpg")
	require.NoError(t, os.WriteFile(path, pngSig, 0644))
	id, err := DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FmtPNG, id)

	// Unrecognised content falls back to the extension.
	path = filepath.Join(dir, "blob.webp")
	require.NoError(t, os.WriteFile(path, []byte("nothing to see"), 0644))
	id, err = DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FmtWebP, id)

	_, err = DetectFormat(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	assert.Equal(t, FmtJPEG, DetectFormatBytes([]byte{0xFF, 0xD8, 0xFF, 0xDB}, "x.png"))
	assert.Equal(t, FmtUnknown, DetectFormatBytes([]byte("GIF89a"), "x.gif"))
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("photos", "cat_edited.jpg"), DefaultOutputPath(filepath.Join("photos", "cat.jpg")))
	assert.Equal(t, "cat.v2_edited.webp", DefaultOutputPath("cat.v2.webp"))
	assert.Equal(t, "noext_edited", DefaultOutputPath("noext"))
}

func TestTimestamps(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	s := FormatTimestamp(ts)
	assert.Equal(t, "2024:05:06 07:08:09", s)
	assert.True(t, ValidTimestamp(s))

	for _, bad := range []string{
		"",
		"2024-05-06 07:08:09",
		"2024:05:06",
		"2024:05:06 07:08:09 ",
		"2024:5:6 7:8:9",
		"2024:02:30 00:00:00",
		"2024:05:06 24:00:00",
	} {
		assert.False(t, ValidTimestamp(bad), bad)
	}
}

func testPrinter(jsonMode bool) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	p := NewPrinter(jsonMode, false)
	p.Writer = &out
	p.Err = &errOut
	return p, &out, &errOut
}

func TestPrintReportText(t *testing.T) {
	base := Report{
		Strategy:    StrategyInject,
		Message:     "saved (JPEG direct injection)",
		Destination: "out.jpg",
		Expected:    "2024:05:06 07:08:09",
		Artist:      "Ann",
	}

	t.Run("verified", func(t *testing.T) {
		p, out, errOut := testPrinter(false)
		r := base
		r.Outcome = OutcomeVerified
		r.Timestamp = r.Expected
		p.PrintReport(r)
		assert.Contains(t, out.String(), "✓ saved (JPEG direct injection)")
		assert.Contains(t, out.String(), "DateTimeOriginal: 2024:05:06 07:08:09")
		assert.Contains(t, out.String(), "Artist          : Ann")
		assert.Contains(t, out.String(), "Destination: out.jpg")
		assert.Empty(t, errOut.String())
	})

	t.Run("unverified", func(t *testing.T) {
		p, out, errOut := testPrinter(false)
		r := base
		r.Outcome = OutcomeUnverified
		r.Timestamp = "2001:01:01 00:00:00"
		p.PrintReport(r)
		assert.Contains(t, out.String(), "✓ saved")
		assert.Contains(t, errOut.String(), "! Warning:")
		assert.Contains(t, errOut.String(), "expected: 2024:05:06 07:08:09")
		assert.Contains(t, errOut.String(), "actual  : 2001:01:01 00:00:00")
	})

	t.Run("failed", func(t *testing.T) {
		p, out, errOut := testPrinter(false)
		p.PrintReport(Report{Outcome: OutcomeFailed, Message: "permission denied"})
		assert.Empty(t, out.String())
		assert.Equal(t, "✗ Error: failed: permission denied\n", errOut.String())
	})
}

func TestPrintReportJSON(t *testing.T) {
	p, out, _ := testPrinter(true)
	p.PrintReport(Report{
		Outcome:     OutcomeVerified,
		Strategy:    StrategyReencode,
		Message:     "saved (PNG re-encoded save)",
		Destination: "out.png",
		Expected:    "2024:05:06 07:08:09",
		Timestamp:   "2024:05:06 07:08:09",
	})

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "verified", got["outcome"])
	assert.Equal(t, "reencode", got["strategy"])
	assert.Equal(t, "out.png", got["destination"])
	assert.NotContains(t, got, "artist")
}

func TestPrintMetadata(t *testing.T) {
	m := &Metadata{
		FilePath: "a.jpg",
		Format:   "JPEG",
		Fields: []MetaField{
			{Key: "Artist", Value: "Ann", Category: "Summary", Editable: true},
			{Key: "Make", Value: "Canon", Category: "EXIF"},
		},
	}
	p, out, _ := testPrinter(false)
	p.PrintMetadata(m)
	assert.Contains(t, out.String(), "Format: JPEG")
	assert.Contains(t, out.String(), "── Summary ──")
	assert.Regexp(t, `Artist:\s+Ann \[editable\]`, out.String())
	assert.Regexp(t, `Make:\s+Canon\n`, out.String())

	p, out, _ = testPrinter(true)
	p.PrintMetadata(m)
	var got struct {
		Format string `json:"format"`
		Fields []struct {
			Key      string `json:"key"`
			Editable bool   `json:"editable"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "JPEG", got.Format)
	require.Len(t, got.Fields, 2)
	assert.True(t, got.Fields[0].Editable)

	p, out, _ = testPrinter(false)
	p.PrintMetadata(&Metadata{FilePath: "b.png", Format: "PNG"})
	assert.Contains(t, out.String(), "(no metadata found)")
}

func TestPrintReportSizes(t *testing.T) {
	r := Report{
		Outcome:   OutcomeVerified,
		Message:   "saved (JPEG direct injection)",
		Expected:  "2024:05:06 07:08:09",
		Timestamp: "2024:05:06 07:08:09",
		Bytes:     1234,
		ExifBytes: 230,
	}

	p, out, _ := testPrinter(false)
	p.PrintReport(r)
	assert.NotContains(t, out.String(), "Written")

	p, out, _ = testPrinter(false)
	p.Verbose = true
	p.PrintReport(r)
	assert.Contains(t, out.String(), "Written    : 1.2 kB (EXIF block 230 B)")

	p, out, _ = testPrinter(true)
	p.PrintReport(r)
	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.EqualValues(t, 1234, got["bytes"])
	assert.EqualValues(t, 230, got["exif_bytes"])
}
