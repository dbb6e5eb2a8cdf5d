package pgp

import "math/big"

// MPI is a multi-precision integer kept as its raw big-endian magnitude.
type MPI struct {
	BitLength uint16
	Bytes     []byte
}

// EncodedLength is the size of the MPI on the wire.
func (m MPI) EncodedLength() int { return 2 + len(m.Bytes) }

// Int returns the magnitude as a big.Int.
func (m MPI) Int() *big.Int { return new(big.Int).SetBytes(m.Bytes) }

// readMPI reads a bit count and ceil(bits/8) bytes without ever leaving the
// enclosing budget.
func readMPI(b *body) (MPI, error) {
	bits, err := b.uint16()
	if err != nil {
		return MPI{}, err
	}
	n := (int(bits) + 7) / 8
	if int64(n) > b.remaining {
		return MPI{BitLength: bits}, structural("mpi of %d bits needs %d bytes, %d remain in packet", bits, n, b.remaining)
	}
	p, err := b.take(n)
	if err != nil {
		return MPI{BitLength: bits}, err
	}
	return MPI{BitLength: bits, Bytes: p}, nil
}

func readMPIs(b *body, count int) ([]MPI, error) {
	out := make([]MPI, 0, count)
	for i := 0; i < count; i++ {
		m, err := readMPI(b)
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

// readOID reads a one-octet length followed by a curve OID.
func readOID(b *body) ([]byte, error) {
	n, err := b.readByte()
	if err != nil {
		return nil, err
	}
	if n == 0 || n == 0xff {
		return nil, structural("reserved curve oid length %d", n)
	}
	return b.take(int(n))
}

// S2KKind is the string-to-key specifier type octet.
type S2KKind uint8

const (
	S2KSimple         S2KKind = 0
	S2KSalted         S2KKind = 1
	S2KReserved       S2KKind = 2
	S2KIteratedSalted S2KKind = 3
)

func (k S2KKind) String() string {
	switch k {
	case S2KSimple:
		return "simple"
	case S2KSalted:
		return "salted"
	case S2KReserved:
		return "reserved"
	case S2KIteratedSalted:
		return "iterated-salted"
	default:
		return "unknown"
	}
}

const saltSize = 8

// S2K is a string-to-key specifier. Salt is only meaningful for salted kinds
// and Count only for the iterated kind.
type S2K struct {
	Kind S2KKind
	Hash byte
	Salt [saltSize]byte
	// Count is the coded iteration count octet.
	Count byte
}

// EncodedLength is the number of bytes the specifier occupies.
func (s S2K) EncodedLength() int {
	switch s.Kind {
	case S2KSimple:
		return 2
	case S2KSalted:
		return 2 + saltSize
	case S2KIteratedSalted:
		return 3 + saltSize
	default:
		return 1
	}
}

// Iterations decodes Count into the number of octets hashed.
func (s S2K) Iterations() int {
	c := int(s.Count)
	return (16 + (c & 15)) << ((c >> 4) + 6)
}

// readS2K reads a specifier. Reserved and unknown types stop after the type
// octet and report UnsupportedVariant; the caller keeps the rest as raw.
func readS2K(b *body) (S2K, error) {
	var s S2K
	t, err := b.readByte()
	if err != nil {
		return s, err
	}
	s.Kind = S2KKind(t)
	switch s.Kind {
	case S2KSimple:
		s.Hash, err = b.readByte()
		return s, err
	case S2KSalted, S2KIteratedSalted:
		if s.Hash, err = b.readByte(); err != nil {
			return s, err
		}
		if err = b.readFull(s.Salt[:]); err != nil {
			return s, err
		}
		if s.Kind == S2KIteratedSalted {
			s.Count, err = b.readByte()
		}
		return s, err
	case S2KReserved:
		return s, unsupported("reserved s2k type 2")
	default:
		return s, unsupported("unknown s2k type %d", t)
	}
}
