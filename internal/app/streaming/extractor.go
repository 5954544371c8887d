package streaming

import (
	"sort"
	"strings"
)

// ExtractionKind tags the outcome of a balanced-object scan.
type ExtractionKind int

const (
	// ExtractIncomplete means no complete top-level object exists yet.
	ExtractIncomplete ExtractionKind = iota
	// ExtractCandidate means a balanced object was found.
	ExtractCandidate
	// ExtractMalformed means the stream is over and the scan ran off the end
	// of the buffer inside an open string or object.
	ExtractMalformed
)

func (k ExtractionKind) String() string {
	switch k {
	case ExtractCandidate:
		return "candidate"
	case ExtractMalformed:
		return "malformed"
	default:
		return "incomplete"
	}
}

// Extraction is the result of ExtractFirst. Start and End are byte offsets
// into the scanned buffer; End is exclusive and only set for candidates.
type Extraction struct {
	Kind  ExtractionKind
	Text  string
	Start int
	End   int
}

// ExtractFirst returns the balanced object that starts at the first '{' in buf.
// Braces inside string literals are ignored and backslash escapes skip the
// following byte. While the stream is still open (final=false) running out of
// input yields ExtractIncomplete; once it has ended it yields ExtractMalformed.
func ExtractFirst(buf string, final bool) Extraction {
	start := strings.IndexByte(buf, '{')
	if start == -1 {
		return Extraction{Kind: ExtractIncomplete, Start: -1}
	}

	if end, ok := scanBalanced(buf, start); ok {
		return Extraction{Kind: ExtractCandidate, Text: buf[start:end], Start: start, End: end}
	}
	if final {
		return Extraction{Kind: ExtractMalformed, Start: start}
	}
	return Extraction{Kind: ExtractIncomplete, Start: start}
}

// scanBalanced walks buf from start (which must hold '{') and returns the
// exclusive end of the region whose brace depth returns to zero.
func scanBalanced(buf string, start int) (int, bool) {
	sc := objectScanner{start: start, pos: start}
	return sc.scan(buf)
}

// objectScanner is a resumable balanced-brace scan. Each call to scan picks
// up where the previous one stopped, so feeding a growing buffer costs time
// proportional to the bytes added.
type objectScanner struct {
	start      int
	pos        int
	depth      int
	inString   bool
	escapeNext bool
}

// scan advances over buf[sc.pos:] and reports the exclusive end of the region
// once its depth returns to zero. buf must extend the previously scanned text.
func (sc *objectScanner) scan(buf string) (int, bool) {
	for ; sc.pos < len(buf); sc.pos++ {
		c := buf[sc.pos]

		if sc.escapeNext {
			sc.escapeNext = false
			continue
		}

		switch {
		case c == '\\':
			sc.escapeNext = true
		case c == '"':
			sc.inString = !sc.inString
		case sc.inString:
		case c == '{':
			sc.depth++
		case c == '}':
			sc.depth--
			if sc.depth == 0 {
				sc.pos++
				return sc.pos, true
			}
		}
	}
	return 0, false
}

// firstObjectTracker finds the first balanced object of a stream that is fed
// one chunk at a time. Its results match ExtractFirst on the same buffer.
type firstObjectTracker struct {
	searched int
	started  bool
	sc       objectScanner
	done     bool
	result   Extraction
}

// update scans the bytes added since the last call.
func (t *firstObjectTracker) update(buf string) Extraction {
	if t.done {
		return t.result
	}
	if !t.started {
		i := strings.IndexByte(buf[t.searched:], '{')
		if i == -1 {
			t.searched = len(buf)
			return Extraction{Kind: ExtractIncomplete, Start: -1}
		}
		start := t.searched + i
		t.started = true
		t.sc = objectScanner{start: start, pos: start}
	}
	if end, ok := t.sc.scan(buf); ok {
		t.done = true
		t.result = Extraction{Kind: ExtractCandidate, Text: buf[t.sc.start:end], Start: t.sc.start, End: end}
		return t.result
	}
	return Extraction{Kind: ExtractIncomplete, Start: t.sc.start}
}

// ExtractAll returns every balanced top-level region in buf, longest first.
// A '{' whose object never closes does not hide objects that start after it.
// Regions of equal length keep their order of appearance.
func ExtractAll(buf string) []string {
	var regions []string

	for i := 0; i < len(buf); {
		next := strings.IndexByte(buf[i:], '{')
		if next == -1 {
			break
		}
		start := i + next
		if end, ok := scanBalanced(buf, start); ok {
			regions = append(regions, buf[start:end])
			i = end
			continue
		}
		i = start + 1
	}

	sort.SliceStable(regions, func(a, b int) bool {
		return len(regions[a]) > len(regions[b])
	})
	return regions
}
