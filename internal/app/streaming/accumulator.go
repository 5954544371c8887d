package streaming

import "strings"

// Buffer is the append-only text of one model response.
// It is owned by a single Session and is not safe for concurrent use.
type Buffer struct {
	sb     strings.Builder
	chunks int
}

// Append adds a chunk to the end of the buffer. Empty chunks still count.
func (b *Buffer) Append(chunk string) {
	b.sb.WriteString(chunk)
	b.chunks++
}

// String returns the full buffer text.
func (b *Buffer) String() string {
	return b.sb.String()
}

func (b *Buffer) Len() int {
	return b.sb.Len()
}

// Chunks returns how many chunks have been appended.
func (b *Buffer) Chunks() int {
	return b.chunks
}
