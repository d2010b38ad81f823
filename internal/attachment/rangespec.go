package attachment

import (
	"errors"
	"regexp"
	"strconv"
)

var byteRangePattern = regexp.MustCompile(`^bytes=(\d*)-(\d*)$`)

// byteRange is an inclusive span of an object.
type byteRange struct {
	Start, End int64
}

func (r byteRange) Length() int64 { return r.End - r.Start + 1 }

// parseRange interprets a single-span Range header against an object of size
// bytes. ok is false when the header is absent or malformed, in which case the
// whole object is served. "bytes=-N" selects the last N bytes.
func parseRange(header string, size int64) (r byteRange, ok bool, err error) {
	m := byteRangePattern.FindStringSubmatch(header)
	if m == nil || (m[1] == "" && m[2] == "") {
		return byteRange{}, false, nil
	}

	if m[1] == "" {
		n, perr := strconv.ParseInt(m[2], 10, 64)
		if errors.Is(perr, strconv.ErrRange) {
			// Longer than any object: the whole of it.
			n, perr = size, nil
		}
		if perr != nil || n == 0 || size == 0 {
			return byteRange{}, true, &RangeError{Size: size}
		}
		return byteRange{Start: max(size-n, 0), End: size - 1}, true, nil
	}

	start, perr := strconv.ParseInt(m[1], 10, 64)
	if perr != nil || start >= size {
		return byteRange{}, true, &RangeError{Size: size}
	}
	end := size - 1
	if m[2] != "" {
		e, perr := strconv.ParseInt(m[2], 10, 64)
		if perr == nil && e < end {
			end = e
		}
	}
	if start > end {
		return byteRange{}, true, &RangeError{Size: size}
	}
	return byteRange{Start: start, End: end}, true, nil
}
