// Package staging implements the fixed-capacity cyclic buffer used to hold a
// packet body between the byte source and the structured decoders.
package staging

import (
	"errors"
	"io"
)

// DefaultCapacity is the staging size used when none is configured.
const DefaultCapacity = 8192

// ErrFull is returned by Write when fewer than len(p) bytes could be staged.
var ErrFull = errors.New("staging: buffer full")

// Buffer is a single-producer, single-consumer ring over a fixed region.
//
// start == end is ambiguous on its own; full says which of "empty" and
// "holding Cap() bytes" applies.
type Buffer struct {
	buf   []byte
	start int
	end   int
	full  bool
}

// New returns an empty buffer with the given capacity. Capacities below 1
// fall back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{buf: make([]byte, capacity)}
}

// NewOn stages into region instead of allocating. The caller keeps ownership
// of region and must not touch it while the buffer is in use.
func NewOn(region []byte) *Buffer {
	if len(region) == 0 {
		return New(DefaultCapacity)
	}
	return &Buffer{buf: region}
}

func (b *Buffer) Cap() int { return len(b.buf) }

func (b *Buffer) Full() bool { return b.full }

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	switch {
	case b.full:
		return len(b.buf)
	case b.end >= b.start:
		return b.end - b.start
	default:
		return len(b.buf) - b.start + b.end
	}
}

// Free returns how many bytes a Write can accept right now.
func (b *Buffer) Free() int { return len(b.buf) - b.Len() }

// Reset discards all staged bytes.
func (b *Buffer) Reset() {
	b.start, b.end, b.full = 0, 0, false
}

// Write copies as much of p as fits without overwriting unread bytes. When the
// copy crosses the physical end of the region it is split in two, the second
// half landing at the region start and clipped at start.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.full {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, ErrFull
	}
	size := len(b.buf)
	n := 0
	if b.end >= b.start && len(p) >= size-b.end {
		// first half: fill to the physical end and wrap.
		n = copy(b.buf[b.end:], p)
		b.end = 0
		if b.start != 0 {
			m := copy(b.buf[:b.start], p[n:])
			n += m
			b.end = m
		}
	} else {
		limit := size
		if b.start > b.end {
			limit = b.start
		}
		n = copy(b.buf[b.end:limit], p)
		b.end += n
	}
	b.full = n > 0 && b.start == b.end
	if n < len(p) {
		return n, ErrFull
	}
	return n, nil
}

// Read copies up to len(p) staged bytes into p, never past end. It returns
// io.EOF when nothing is staged.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !b.full && b.start == b.end {
		return 0, io.EOF
	}
	size := len(b.buf)
	n := 0
	if b.end <= b.start && len(p) >= size-b.start {
		n = copy(p, b.buf[b.start:])
		b.start = 0
		if b.end != 0 {
			m := copy(p[n:], b.buf[:b.end])
			n += m
			b.start = m
		}
	} else {
		limit := size
		if b.end > b.start {
			limit = b.end
		}
		n = copy(p, b.buf[b.start:limit])
		b.start += n
	}
	b.full = false
	return n, nil
}

// Fill stages exactly n bytes from r. It fails with ErrFull, before
// reading anything, when n exceeds Free.
func (b *Buffer) Fill(r io.Reader, n int) (int, error) {
	if n > b.Free() {
		return 0, ErrFull
	}
	total := 0
	for total < n {
		seg := b.writableSegment(n - total)
		m, err := io.ReadFull(r, seg)
		b.commit(m)
		total += m
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return total, err
		}
	}
	return total, nil
}

// writableSegment returns the contiguous free slice at end, at most max long.
func (b *Buffer) writableSegment(max int) []byte {
	limit := len(b.buf)
	if b.start > b.end {
		limit = b.start
	}
	if limit-b.end > max {
		limit = b.end + max
	}
	return b.buf[b.end:limit]
}

func (b *Buffer) commit(n int) {
	if n == 0 {
		return
	}
	b.end += n
	if b.end == len(b.buf) {
		b.end = 0
	}
	b.full = b.start == b.end
}
