package pgp

import (
	"bytes"
	"encoding/binary"
	"io"
)

// body is a packet (or nested area) body with a byte budget. Reads past the
// budget are structural violations and never touch the underlying reader;
// the underlying reader running dry is a short read.
type body struct {
	r         io.Reader
	remaining int64
	off       int64 // stream offset of the next unread byte
	max       int   // largest allocation a declared length may cause
	rec       *bytes.Buffer
	one       [1]byte
}

func newBody(r io.Reader, n int64, off int64, max int) *body {
	return &body{r: r, remaining: n, off: off, max: max}
}

// Read lets a body serve as the reader of a nested body.
func (b *body) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.r.Read(p)
	if b.rec != nil {
		b.rec.Write(p[:n])
	}
	b.remaining -= int64(n)
	b.off += int64(n)
	if err == io.EOF && b.remaining > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func (b *body) readFull(p []byte) error {
	if int64(len(p)) > b.remaining {
		return structural("field of %d bytes exceeds the %d remaining", len(p), b.remaining)
	}
	if _, err := io.ReadFull(b, p); err != nil {
		if KindOf(err) != "" {
			return err
		}
		return shortRead(err, "reading %d bytes", len(p))
	}
	return nil
}

func (b *body) readByte() (byte, error) {
	if err := b.readFull(b.one[:]); err != nil {
		return 0, err
	}
	return b.one[0], nil
}

func (b *body) uint16() (uint16, error) {
	var buf [2]byte
	if err := b.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (b *body) uint32() (uint32, error) {
	var buf [4]byte
	if err := b.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// record starts copying every byte read into a fresh buffer; stop returns
// what was copied.
func (b *body) record() { b.rec = new(bytes.Buffer) }

func (b *body) stop() []byte {
	if b.rec == nil {
		return nil
	}
	p := b.rec.Bytes()
	b.rec = nil
	return p
}

// take reads exactly n bytes into a fresh slice.
func (b *body) take(n int) ([]byte, error) {
	if n < 0 || int64(n) > b.remaining {
		return nil, structural("field of %d bytes exceeds the %d remaining", n, b.remaining)
	}
	if n > b.max {
		return nil, structural("field of %d bytes exceeds the %d byte limit", n, b.max)
	}
	p := make([]byte, n)
	if err := b.readFull(p); err != nil {
		return nil, err
	}
	return p, nil
}

// rest reads everything left in the budget.
func (b *body) rest() ([]byte, error) {
	return b.take(int(b.remaining))
}

// restOrSkip reads what is left if it fits the allocation limit and skips it
// otherwise. The returned count is always the number of bytes consumed.
func (b *body) restOrSkip() ([]byte, int64, error) {
	n := b.remaining
	if n <= int64(b.max) {
		p, err := b.rest()
		return p, n, err
	}
	_, err := b.skip()
	return nil, n, err
}

// skip discards the rest of the budget.
func (b *body) skip() (int64, error) {
	if b.remaining <= 0 {
		return 0, nil
	}
	want := b.remaining
	n, err := io.CopyN(io.Discard, b, want)
	if err != nil {
		if KindOf(err) != "" {
			return n, err
		}
		return n, shortRead(err, "skipping %d bytes", want)
	}
	return n, nil
}

// sub carves a nested budget of n bytes out of b. Reading the child consumes
// the parent.
func (b *body) sub(n int64) (*body, error) {
	if n > b.remaining {
		return nil, structural("nested length %d exceeds the %d remaining", n, b.remaining)
	}
	return newBody(b, n, b.off, b.max), nil
}
