package runner

import "strings"

// boundedBuffer captures process output without unbounded growth: it keeps
// the head of the output up to half the limit and a rolling tail for the
// rest, inserting an elision marker when anything was dropped.
type boundedBuffer struct {
	limit    int
	head     strings.Builder
	tail     []byte
	dropped  bool
	tailMax  int
	headFull bool
}

const elisionMarker = "\n... [output truncated] ...\n"

func newBoundedBuffer(limit int) *boundedBuffer {
	if limit < 256 {
		limit = 256
	}
	return &boundedBuffer{limit: limit, tailMax: limit / 2}
}

// WriteLine appends one output line.
func (b *boundedBuffer) WriteLine(line string) {
	if !b.headFull {
		if b.head.Len()+len(line)+1 <= b.limit/2 {
			b.head.WriteString(line)
			b.head.WriteByte('\n')
			return
		}
		b.headFull = true
	}

	b.tail = append(b.tail, line...)
	b.tail = append(b.tail, '\n')
	if len(b.tail) > b.tailMax {
		// Drop whole lines from the front of the tail.
		cut := len(b.tail) - b.tailMax
		if nl := indexByteFrom(b.tail, cut, '\n'); nl >= 0 {
			cut = nl + 1
		}
		b.tail = append(b.tail[:0], b.tail[cut:]...)
		b.dropped = true
	}
}

// String assembles the captured preview.
func (b *boundedBuffer) String() string {
	if len(b.tail) == 0 {
		return b.head.String()
	}
	var sb strings.Builder
	sb.WriteString(b.head.String())
	if b.dropped {
		sb.WriteString(elisionMarker)
	}
	sb.Write(b.tail)
	return sb.String()
}

func indexByteFrom(b []byte, from int, c byte) int {
	for i := from; i < len(b); i++ {
		if b[i] == c {
			return i
		}
	}
	return -1
}
