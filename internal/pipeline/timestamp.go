package pipeline

import (
	"regexp"
	"time"
)

// Capture filenames embed a local wall-clock pattern, e.g.
// Screenshot_20260202_115809.jpg. That timestamp is the primary source;
// the upload time is only a fallback.
var filenameTimestampPattern = regexp.MustCompile(`_(\d{8})_(\d{6})`)

// captureTimeFromFilename parses the embedded timestamp in the given zone.
// Returns the zero time when the filename carries no usable pattern.
func captureTimeFromFilename(filename string, zone *time.Location) time.Time {
	m := filenameTimestampPattern.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}
	}
	t, err := time.ParseInLocation("20060102 150405", m[1]+" "+m[2], zone)
	if err != nil {
		return time.Time{}
	}
	return t
}
