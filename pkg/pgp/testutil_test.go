package pgp

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/pgpscan/pkg/trace"
)

// encodeNewLength encodes n in the new-format length grammar.
func encodeNewLength(n int) []byte {
	switch {
	case n < 192:
		return []byte{byte(n)}
	case n <= 8383:
		n -= 192
		return []byte{byte(192 + (n >> 8)), byte(n & 0xff)}
	default:
		b := []byte{0xff, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(b[1:], uint32(n))
		return b
	}
}

// newFormatPacket builds a packet with a new-format header.
func newFormatPacket(tag byte, body []byte) []byte {
	out := []byte{0xc0 | tag&0x3f}
	out = append(out, encodeNewLength(len(body))...)
	return append(out, body...)
}

// oldFormatPacket builds a packet with an old-format header of the given
// length type.
func oldFormatPacket(tag byte, lenType int, body []byte) []byte {
	out := []byte{0x80 | (tag&0x0f)<<2 | byte(lenType)}
	switch lenType {
	case oldOneOctet:
		out = append(out, byte(len(body)))
	case oldTwoOctet:
		out = append(out, byte(len(body)>>8), byte(len(body)))
	case oldFourOctet:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(len(body)))
		out = append(out, b[:]...)
	}
	return append(out, body...)
}

// partialPacket splits body into partial segments of 1<<exp bytes followed
// by a definite final segment holding the rest.
func partialPacket(tag byte, exp uint, body []byte) []byte {
	seg := 1 << exp
	out := []byte{0xc0 | tag&0x3f}
	for len(body) > seg {
		out = append(out, byte(224+exp))
		out = append(out, body[:seg]...)
		body = body[seg:]
	}
	out = append(out, encodeNewLength(len(body))...)
	return append(out, body...)
}

// subpacket builds a signature sub-packet.
func subpacket(typ byte, payload []byte) []byte {
	n := len(payload) + 1
	var out []byte
	if n < 192 {
		out = []byte{byte(n)}
	} else {
		out = encodeNewLength(n)
	}
	out = append(out, typ)
	return append(out, payload...)
}

func mpi(bits uint16, magnitude []byte) []byte {
	out := []byte{byte(bits >> 8), byte(bits)}
	return append(out, magnitude...)
}

func cat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// sigV4Body builds a v4 RSA signature body around the two areas.
func sigV4Body(hashed, unhashed []byte) []byte {
	b := []byte{4, 0x00, PKALG_RSA, 8}
	b = append(b, byte(len(hashed)>>8), byte(len(hashed)))
	b = append(b, hashed...)
	b = append(b, byte(len(unhashed)>>8), byte(len(unhashed)))
	b = append(b, unhashed...)
	b = append(b, 0xab, 0xcd)
	return append(b, mpi(16, []byte{0x80, 0x01})...)
}

// decodeAll decodes data, failing the test on a fatal error.
func decodeAll(t *testing.T, data []byte, cfg *Config) []*Packet {
	t.Helper()
	pkts, err := Decode(bytes.NewReader(data), cfg)
	require.NoError(t, err)
	return pkts
}

// testBody wraps p in a budgeted body starting at offset 0.
func testBody(p []byte) *body {
	return newBody(bytes.NewReader(p), int64(len(p)), 0, DefaultMaxPacketSize)
}

// oneByteReader returns at most one byte per Read.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

// recordingSink keeps everything it is sent.
type recordingSink struct {
	fields      map[string][]interface{}
	hex         map[string][]byte
	diagnostics []trace.Diagnostic
}

func newRecordingSink() *recordingSink {
	return &recordingSink{fields: map[string][]interface{}{}, hex: map[string][]byte{}}
}

func (s *recordingSink) Hex(label string, b []byte) { s.hex[label] = b }

func (s *recordingSink) Field(label string, v interface{}) {
	s.fields[label] = append(s.fields[label], v)
}

func (s *recordingSink) Diagnostic(d trace.Diagnostic) { s.diagnostics = append(s.diagnostics, d) }

type fixedCursor struct{}

func (fixedCursor) Start() int64 { return 0 }
func (fixedCursor) End() int64   { return 0 }

func bytesReader(p []byte) io.Reader { return bytes.NewReader(p) }
