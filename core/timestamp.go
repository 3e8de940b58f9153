package core

import (
	"regexp"
	"time"
)

// TimestampLayout is the EXIF date/time layout, "YYYY:MM:DD HH:MM:SS".
const TimestampLayout = "2006:01:02 15:04:05"

var timestampRe = regexp.MustCompile(`^\d{4}:\d{2}:\d{2} \d{2}:\d{2}:\d{2}$`)

// FormatTimestamp renders t in the EXIF layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ValidTimestamp reports whether s matches the EXIF grammar exactly and names
// a real calendar date and time.
func ValidTimestamp(s string) bool {
	if !timestampRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(TimestampLayout, s)
	return err == nil
}
