package pgp

import (
	"encoding/binary"
	"io"
)

// Format distinguishes the two packet header encodings.
type Format uint8

const (
	FormatOld Format = iota
	FormatNew
)

func (f Format) String() string {
	if f == FormatNew {
		return "new"
	}
	return "old"
}

// Header is a decoded packet header.
//
// Partial is set for a new-format partial body length, in which case Length
// is the size of the first segment only, and for the old-format
// indeterminate length type, in which case Length is 0 and the body runs to
// the end of the stream.
type Header struct {
	Tag     uint8
	Format  Format
	Length  uint32
	Partial bool
}

const (
	pktIndicator   = 0x80
	pktFormatNew   = 0x40
	pktNewTagMask  = 0x3f
	pktOldTagMask  = 0x3c
	pktOldTagShift = 2
	pktOldLenMask  = 0x03

	lenOneMax     = 191
	lenTwoBase    = 192
	lenPartialMin = 224
	lenFiveOctet  = 255
	lenPartialBit = 0x1f
)

// Old-format length types, selected by the low two bits of the tag byte.
const (
	oldOneOctet = iota
	oldTwoOctet
	oldFourOctet
	oldIndeterminate
)

// octetReader is what the length grammar reads from: the raw stream for
// packet headers, a budgeted body for sub-packets.
type octetReader interface {
	readByte() (byte, error)
	readFull(p []byte) error
}

// source counts the bytes pulled from the underlying reader.
type source struct {
	r   io.Reader
	pos int64
	one [1]byte
}

func (s *source) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *source) readByte() (byte, error) {
	if err := s.readFull(s.one[:]); err != nil {
		return 0, err
	}
	return s.one[0], nil
}

func (s *source) readFull(p []byte) error {
	if _, err := io.ReadFull(s, p); err != nil {
		return shortRead(err, "reading %d bytes at offset %d", len(p), s.pos)
	}
	return nil
}

// ReadHeader decodes one packet header from r and returns it with the number
// of bytes consumed. A clean end of stream before the tag byte yields io.EOF;
// running out anywhere later is a ShortRead.
func ReadHeader(r io.Reader) (Header, int, error) {
	if s, ok := r.(*source); ok {
		return readHeader(s)
	}
	return readHeader(&source{r: r})
}

func readHeader(s *source) (Header, int, error) {
	var hdr Header
	n, err := io.ReadFull(s, s.one[:])
	if n == 0 && err == io.EOF {
		return hdr, 0, io.EOF
	}
	if err != nil {
		return hdr, n, shortRead(err, "reading packet tag")
	}
	tag := s.one[0]
	if tag&pktIndicator == 0 {
		return hdr, 1, structural("tag byte %#02x lacks the packet indicator bit", tag)
	}

	if tag&pktFormatNew != 0 {
		hdr.Format = FormatNew
		hdr.Tag = tag & pktNewTagMask
		length, partial, m, err := decodeNewLength(s, true)
		hdr.Length, hdr.Partial = length, partial
		return hdr, 1 + m, err
	}

	hdr.Format = FormatOld
	hdr.Tag = (tag & pktOldTagMask) >> pktOldTagShift
	var buf [4]byte
	switch tag & pktOldLenMask {
	case oldOneOctet:
		if err := s.readFull(buf[:1]); err != nil {
			return hdr, 1, err
		}
		hdr.Length = uint32(buf[0])
		return hdr, 2, nil
	case oldTwoOctet:
		if err := s.readFull(buf[:2]); err != nil {
			return hdr, 1, err
		}
		hdr.Length = uint32(binary.BigEndian.Uint16(buf[:2]))
		return hdr, 3, nil
	case oldFourOctet:
		if err := s.readFull(buf[:4]); err != nil {
			return hdr, 1, err
		}
		hdr.Length = binary.BigEndian.Uint32(buf[:4])
		return hdr, 5, nil
	default:
		hdr.Partial = true
		return hdr, 1, nil
	}
}

// decodeNewLength reads a new-format length. At packet level 224..254 are
// partial body lengths; for sub-packets the two-octet form extends to 254.
func decodeNewLength(r octetReader, packetLevel bool) (length uint32, partial bool, n int, err error) {
	v, err := r.readByte()
	if err != nil {
		return 0, false, 0, err
	}
	twoOctetEnd := lenFiveOctet
	if packetLevel {
		twoOctetEnd = lenPartialMin
	}
	switch {
	case v <= lenOneMax:
		return uint32(v), false, 1, nil
	case int(v) < twoOctetEnd:
		v2, err := r.readByte()
		if err != nil {
			return 0, false, 1, err
		}
		return (uint32(v)-lenTwoBase)<<8 + uint32(v2) + lenTwoBase, false, 2, nil
	case v == lenFiveOctet:
		var buf [4]byte
		if err := r.readFull(buf[:]); err != nil {
			return 0, false, 1, err
		}
		return binary.BigEndian.Uint32(buf[:]), false, 5, nil
	default:
		return 1 << (v & lenPartialBit), true, 1, nil
	}
}

// ReadSubpacketLength decodes a signature sub-packet length from r.
func ReadSubpacketLength(r io.Reader) (uint32, int, error) {
	s, ok := r.(*source)
	if !ok {
		s = &source{r: r}
	}
	length, _, n, err := decodeNewLength(s, false)
	return length, n, err
}
