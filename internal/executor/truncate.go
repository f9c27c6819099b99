package executor

import "bytes"

// DefaultMaxOutputBytes and DefaultMaxOutputLines bound captured worker
// output per spec §4.6 (200 KiB or 5,000 lines, whichever comes first).
const (
	DefaultMaxOutputBytes = 200 * 1024
	DefaultMaxOutputLines = 5000
)

// Truncate bounds data to at most maxLines newline-terminated lines and
// maxBytes bytes, whichever limit is hit first. Truncation is line-first
// (count lines, cut at the Nth) then byte-first (if still over budget,
// binary-search for the last complete line boundary within maxBytes).
func Truncate(data []byte, maxBytes, maxLines int) (out []byte, truncated bool) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxOutputBytes
	}
	if maxLines <= 0 {
		maxLines = DefaultMaxOutputLines
	}

	out = data
	truncated = false

	if lineCount(out) > maxLines {
		out = firstNLines(out, maxLines)
		truncated = true
	}

	if len(out) > maxBytes {
		out = lastLineBoundaryWithin(out, maxBytes)
		truncated = true
	}

	return out, truncated
}

func lineCount(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

func firstNLines(data []byte, n int) []byte {
	count := 0
	for i, b := range data {
		if b == '\n' {
			count++
			if count == n {
				return data[:i+1]
			}
		}
	}
	return data
}

// lastLineBoundaryWithin collects every newline offset once, then binary
// searches that sorted list for the last one at or before maxBytes — the
// largest prefix of data that both fits the byte budget and ends exactly
// on a line boundary.
func lastLineBoundaryWithin(data []byte, maxBytes int) []byte {
	if maxBytes >= len(data) {
		return data
	}

	var offsets []int
	for i, b := range data {
		if b == '\n' {
			offsets = append(offsets, i)
		}
	}
	if len(offsets) == 0 {
		return data[:maxBytes]
	}

	lo, hi := 0, len(offsets)-1
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if offsets[mid]+1 <= maxBytes {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == -1 {
		return data[:maxBytes]
	}
	return data[:offsets[best]+1]
}
