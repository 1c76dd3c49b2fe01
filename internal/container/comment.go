package container

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatSizeComment builds a segment comment of the form "<size> <tag>"
// recording a segment's original (pre-compression) size and a short
// transform tag, so a later listing or extraction step can recover the
// original size without decompressing.
func FormatSizeComment(size int64, tag string) string {
	if tag == "" {
		return strconv.FormatInt(size, 10)
	}
	return fmt.Sprintf("%d %s", size, tag)
}

// ParseSizeComment recovers the size and tag FormatSizeComment encoded,
// or ok=false if comment does not look like "<size> <tag>" or a bare
// "<size>". Segment comments are free-form; callers must tolerate
// ok=false for archives that used some other convention.
func ParseSizeComment(comment string) (size int64, tag string, ok bool) {
	fields := strings.SplitN(strings.TrimSpace(comment), " ", 2)
	if len(fields) == 0 || fields[0] == "" {
		return 0, "", false
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || n < 0 {
		return 0, "", false
	}
	if len(fields) == 2 {
		return n, fields[1], true
	}
	return n, "", true
}
