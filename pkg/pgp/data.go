package pgp

import "bytes"

// Body is the decoded content of a packet. The set of implementations is
// closed; switch on the concrete type.
type Body interface {
	packetBody()
}

func (*Signature) packetBody()             {}
func (*PublicKey) packetBody()             {}
func (*SecretKey) packetBody()             {}
func (*EncryptedKey) packetBody()          {}
func (*SymmetricKeyEncrypted) packetBody() {}
func (*EncryptedData) packetBody()         {}
func (*UserID) packetBody()                {}
func (*OnePassSignature) packetBody()      {}
func (*LiteralData) packetBody()           {}
func (*CompressedData) packetBody()        {}
func (*Marker) packetBody()                {}
func (*MDC) packetBody()                   {}
func (*Opaque) packetBody()                {}

// UserID is a user ID packet (tag 13).
type UserID struct {
	ID string
}

func parseUserID(b *body) (*UserID, error) {
	p, err := b.rest()
	return &UserID{ID: string(p)}, err
}

// OnePassSignature is a one-pass signature packet (tag 4).
type OnePassSignature struct {
	Version    uint8
	SigType    uint8
	HashAlgo   uint8
	PubKeyAlgo uint8
	KeyID      [keyIDSize]byte
	// Salt and Fingerprint are v6 only.
	Salt        []byte
	Fingerprint []byte
	// Nested is false when further one-pass signatures follow.
	Nested bool
}

func parseOnePassSignature(b *body) (*OnePassSignature, error) {
	ops := new(OnePassSignature)
	var err error
	if ops.Version, err = b.readByte(); err != nil {
		return ops, err
	}
	if ops.Version != 3 && ops.Version != 6 {
		_, err = b.skip()
		if err == nil {
			err = unsupported("one-pass signature version %d", ops.Version)
		}
		return ops, err
	}
	var hdr [3]byte
	if err = b.readFull(hdr[:]); err != nil {
		return ops, err
	}
	ops.SigType, ops.HashAlgo, ops.PubKeyAlgo = hdr[0], hdr[1], hdr[2]
	if ops.Version == 3 {
		if err = b.readFull(ops.KeyID[:]); err != nil {
			return ops, err
		}
	} else {
		if ops.Salt, err = readShortField(b); err != nil {
			return ops, err
		}
		if ops.Fingerprint, err = b.take(32); err != nil {
			return ops, err
		}
		copy(ops.KeyID[:], ops.Fingerprint)
	}
	last, err := b.readByte()
	ops.Nested = last == 0
	return ops, err
}

// LiteralData is a literal data packet (tag 11). Data is nil when the
// content is larger than the packet size limit; Length is always set.
type LiteralData struct {
	Format   byte
	FileName string
	Date     uint32
	Length   int64
	Data     []byte
}

func parseLiteralData(b *body) (*LiteralData, error) {
	ld := new(LiteralData)
	var err error
	if ld.Format, err = b.readByte(); err != nil {
		return ld, err
	}
	name, err := readShortField(b)
	if err != nil {
		return ld, err
	}
	ld.FileName = string(name)
	if ld.Date, err = b.uint32(); err != nil {
		return ld, err
	}
	ld.Data, ld.Length, err = b.restOrSkip()
	return ld, err
}

// CompressedData is a compressed data packet (tag 8). The content is not
// inflated.
type CompressedData struct {
	Algorithm byte
	Length    int64
}

func parseCompressedData(b *body) (*CompressedData, error) {
	cd := new(CompressedData)
	var err error
	if cd.Algorithm, err = b.readByte(); err != nil {
		return cd, err
	}
	cd.Length, err = b.skip()
	return cd, err
}

// EncryptedData is a symmetrically encrypted data packet, with (tag 18) or
// without (tag 9) integrity protection. The ciphertext is skipped.
type EncryptedData struct {
	Tag uint8
	// Version is 0 for tag 9.
	Version   uint8
	Cipher    byte
	AEAD      byte
	ChunkSize byte
	Salt      []byte
	Length    int64
}

const (
	seipdV2SaltSize = 32
	maxChunkSize    = 16
)

// ChunkBytes is the AEAD chunk length of a v2 packet. It is false for chunk
// size octets above 16, which RFC 9580 forbids.
func (ed *EncryptedData) ChunkBytes() (int64, bool) {
	if ed.ChunkSize > maxChunkSize {
		return 0, false
	}
	return int64(1) << (ed.ChunkSize + 6), true
}

func parseEncryptedData(b *body, tag uint8) (*EncryptedData, error) {
	ed := &EncryptedData{Tag: tag}
	var err error
	if tag == TAG_SEIPD {
		if ed.Version, err = b.readByte(); err != nil {
			return ed, err
		}
		switch ed.Version {
		case 1:
		case 2:
			var hdr [3]byte
			if err = b.readFull(hdr[:]); err != nil {
				return ed, err
			}
			ed.Cipher, ed.AEAD, ed.ChunkSize = hdr[0], hdr[1], hdr[2]
			if ed.Salt, err = b.take(seipdV2SaltSize); err != nil {
				return ed, err
			}
		default:
			ed.Length, err = b.skip()
			if err == nil {
				err = unsupported("encrypted data version %d", ed.Version)
			}
			return ed, err
		}
	}
	ed.Length, err = b.skip()
	return ed, err
}

// Marker is the obsolete marker packet (tag 10).
type Marker struct{}

var markerBody = []byte("PGP")

func parseMarker(b *body) (*Marker, error) {
	p, err := b.rest()
	if err != nil {
		return &Marker{}, err
	}
	if !bytes.Equal(p, markerBody) {
		return &Marker{}, structural("marker packet body is %q", p)
	}
	return &Marker{}, nil
}

// MDC is a modification detection code packet (tag 19).
type MDC struct {
	Hash [20]byte
}

func parseMDC(b *body) (*MDC, error) {
	m := new(MDC)
	return m, b.readFull(m.Hash[:])
}

// Opaque is any packet without a dedicated decoder. Data is nil when the
// body exceeds the packet size limit.
type Opaque struct {
	Tag    uint8
	Length int64
	Data   []byte
}

func parseOpaque(b *body, tag uint8) (*Opaque, error) {
	o := &Opaque{Tag: tag}
	var err error
	o.Data, o.Length, err = b.restOrSkip()
	return o, err
}
