// Package byterange parses single-range HTTP Range headers.
//
// Only the form bytes=<start>-<end?> is understood. The first match in the
// header wins, so a multi-range header yields its first range. A range whose
// start is not strictly less than its end is reported as unsatisfiable, and
// callers serve the whole resource for it; this includes single-byte ranges
// such as bytes=10-10.
package byterange

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// rangePattern matches bytes=<start>-<end?> anywhere in the header value.
var rangePattern = regexp.MustCompile(`bytes=(\d+)-(\d*)`)

// Range is an inclusive byte interval within a resource.
type Range struct {
	Start int64
	End   int64
}

// Parse extracts a Range from a Range header value for a resource of size bytes.
//
// An omitted end defaults to size-1. An explicit end is taken as given and is
// not clamped to the resource size. ok is false when the header does not
// contain a recognizable range, a bound does not fit in an int64, or the
// range length does not.
func Parse(header string, size int64) (r Range, ok bool) {
	m := rangePattern.FindStringSubmatch(header)
	if m == nil {
		return Range{}, false
	}

	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Range{}, false
	}

	end := size - 1
	if m[2] != "" {
		end, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return Range{}, false
		}
	}
	// start is non-negative, so End-Start+1 overflows only for 0-MaxInt64.
	if end > start && end-start == math.MaxInt64 {
		return Range{}, false
	}

	return Range{Start: start, End: end}, true
}

// Satisfiable reports whether the range can be answered with a partial response.
func (r Range) Satisfiable() bool {
	return r.Start < r.End
}

// Length is the number of bytes covered by the range, end inclusive.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for a resource of size bytes.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
