package pgp

import (
	"bytes"
	"encoding/binary"
	"time"

	"example.com/pgpscan/pkg/marker"
)

// Signature sub-packet types (RFC 4880 §5.2.3.1, RFC 9580 §5.2.3.7).
const (
	SUBPKT_CREATION_TIME         = 2
	SUBPKT_EXPIRATION_TIME       = 3
	SUBPKT_EXPORTABLE            = 4
	SUBPKT_TRUST                 = 5
	SUBPKT_REGEXP                = 6
	SUBPKT_REVOCABLE             = 7
	SUBPKT_KEY_EXPIRATION        = 9
	SUBPKT_PLACEHOLDER           = 10
	SUBPKT_PREFERRED_SYMMETRIC   = 11
	SUBPKT_REVOCATION_KEY        = 12
	SUBPKT_ISSUER                = 16
	SUBPKT_NOTATION              = 20
	SUBPKT_PREFERRED_HASH        = 21
	SUBPKT_PREFERRED_COMPRESSION = 22
	SUBPKT_KEYSERVER_PREFS       = 23
	SUBPKT_PREFERRED_KEYSERVER   = 24
	SUBPKT_PRIMARY_USER_ID       = 25
	SUBPKT_POLICY_URI            = 26
	SUBPKT_KEY_FLAGS             = 27
	SUBPKT_SIGNER_USER_ID        = 28
	SUBPKT_REVOCATION_REASON     = 29
	SUBPKT_FEATURES              = 30
	SUBPKT_SIGNATURE_TARGET      = 31
	SUBPKT_EMBEDDED_SIGNATURE    = 32
	SUBPKT_ISSUER_FINGERPRINT    = 33
)

const (
	subpktCriticalBit = 0x80
	subpktTypeMask    = 0x7f
)

// subpacketPolicy is the expected payload size of a sub-packet type. For
// variable entries length is the minimum.
type subpacketPolicy struct {
	length   uint32
	variable bool
	known    bool
}

func fixed(n uint32) subpacketPolicy    { return subpacketPolicy{length: n, known: true} }
func variable(n uint32) subpacketPolicy { return subpacketPolicy{length: n, variable: true, known: true} }

// subpacketPolicies covers types 0..31; the zero entry means reserved.
var subpacketPolicies = [32]subpacketPolicy{
	SUBPKT_CREATION_TIME:         fixed(4),
	SUBPKT_EXPIRATION_TIME:       fixed(4),
	SUBPKT_EXPORTABLE:            fixed(1),
	SUBPKT_TRUST:                 fixed(2),
	SUBPKT_REGEXP:                variable(0),
	SUBPKT_REVOCABLE:             fixed(1),
	SUBPKT_KEY_EXPIRATION:        fixed(4),
	SUBPKT_PLACEHOLDER:           variable(0),
	SUBPKT_PREFERRED_SYMMETRIC:   variable(0),
	SUBPKT_REVOCATION_KEY:        fixed(22),
	SUBPKT_ISSUER:                fixed(8),
	SUBPKT_NOTATION:              variable(8),
	SUBPKT_PREFERRED_HASH:        variable(0),
	SUBPKT_PREFERRED_COMPRESSION: variable(0),
	SUBPKT_KEYSERVER_PREFS:       variable(0),
	SUBPKT_PREFERRED_KEYSERVER:   variable(0),
	SUBPKT_PRIMARY_USER_ID:       fixed(1),
	SUBPKT_POLICY_URI:            variable(0),
	SUBPKT_KEY_FLAGS:             variable(0),
	SUBPKT_SIGNER_USER_ID:        variable(0),
	SUBPKT_REVOCATION_REASON:     variable(1),
	SUBPKT_FEATURES:              variable(0),
	SUBPKT_SIGNATURE_TARGET:      variable(2),
}

// policyFor returns the policy of typ. Types above the table are checked
// only for the two that are interpreted.
func policyFor(typ uint8) subpacketPolicy {
	switch {
	case int(typ) < len(subpacketPolicies):
		return subpacketPolicies[typ]
	case typ == SUBPKT_EMBEDDED_SIGNATURE:
		return variable(6)
	case typ == SUBPKT_ISSUER_FINGERPRINT:
		return variable(1)
	}
	return subpacketPolicy{}
}

// check reports whether a payload of n bytes satisfies the policy.
func (p subpacketPolicy) check(n uint32) bool {
	if p.variable {
		return n >= p.length
	}
	return n == p.length
}

// SubpacketHeader is the decoded length and type octets of a sub-packet.
// Length counts the type octet.
type SubpacketHeader struct {
	Length   uint32
	Type     uint8
	Critical bool
}

// Subpacket is one decoded sub-packet. Err carries a policy mismatch or an
// unsupported type; Value then holds the raw payload as Unrecognized.
type Subpacket struct {
	SubpacketHeader
	Offset  int64
	Payload []byte
	Value   SubpacketValue
	Err     error
}

// SubpacketArea is the hashed or unhashed area of a signature.
type SubpacketArea struct {
	Length     uint32
	Offset     int64
	End        int64
	Subpackets []*Subpacket
	// Err is the violation that ended the area early, if any.
	Err error
}

// Find returns the first sub-packet of the given type.
func (a *SubpacketArea) Find(typ uint8) *Subpacket {
	if a == nil {
		return nil
	}
	for _, sp := range a.Subpackets {
		if sp.Type == typ {
			return sp
		}
	}
	return nil
}

// decodeSubpacketArea consumes exactly areaLen bytes of b. A sub-packet that
// overruns the area, or is empty, ends the area; the rest is skipped so the
// enclosing packet keeps its place.
func decodeSubpacketArea(b *body, areaLen uint32, ctx *packetContext) (*SubpacketArea, error) {
	area := &SubpacketArea{Length: areaLen, Offset: b.off}
	marked := ctx.mark(b.off, marker.FlagSubpacketArea)
	ab, err := b.sub(int64(areaLen))
	if err != nil {
		if marked {
			ctx.unmark()
		}
		return area, err
	}
	for ab.remaining > 0 {
		sp, err := readSubpacket(ab, ctx)
		if sp != nil {
			area.Subpackets = append(area.Subpackets, sp)
		}
		if err != nil {
			if fatal(err) {
				return area, err
			}
			area.Err = err
			if _, err := ab.skip(); err != nil {
				return area, err
			}
			break
		}
	}
	if marked {
		if m, ok := ctx.unmark(); ok {
			area.Offset = m.Offset
		}
	}
	area.End = ab.off
	return area, nil
}

func readSubpacket(ab *body, ctx *packetContext) (*Subpacket, error) {
	off := ab.off
	length, _, _, err := decodeNewLength(ab, false)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, structural("zero length sub-packet at offset %d", off)
	}
	if int64(length) > ab.remaining {
		return nil, structural("sub-packet of %d bytes at offset %d overruns the area (%d left)", length, off, ab.remaining)
	}
	t, err := ab.readByte()
	if err != nil {
		return nil, err
	}
	sp := &Subpacket{
		SubpacketHeader: SubpacketHeader{
			Length:   length,
			Type:     t & subpktTypeMask,
			Critical: t&subpktCriticalBit != 0,
		},
		Offset: off,
	}
	payloadOff := ab.off
	if sp.Payload, err = ab.take(int(length - 1)); err != nil {
		return sp, err
	}

	policy := policyFor(sp.Type)
	switch {
	case !policy.known:
		sp.Value = Unrecognized(sp.Payload)
		sp.Err = unsupported("unrecognized sub-packet type %d", sp.Type)
	case !policy.check(length - 1):
		sp.Value = Unrecognized(sp.Payload)
		sp.Err = structural("sub-packet type %d has %d payload bytes, want %s%d", sp.Type, length-1, atLeast(policy), policy.length)
	default:
		sp.Value, sp.Err = interpretSubpacket(sp.Type, sp.Payload, payloadOff, ab.max, ctx)
		if sp.Value == nil {
			sp.Value = Unrecognized(sp.Payload)
		}
	}
	return sp, nil
}

func atLeast(p subpacketPolicy) string {
	if p.variable {
		return "at least "
	}
	return ""
}

// SubpacketValue is the interpreted payload of a sub-packet.
type SubpacketValue interface {
	subpacketValue()
}

type (
	// CreationTime is seconds since the epoch.
	CreationTime uint32
	// SignatureExpiration is seconds after the creation time; 0 never expires.
	SignatureExpiration uint32
	// KeyExpiration is seconds after the key creation time.
	KeyExpiration        uint32
	Exportable           bool
	Revocable            bool
	PrimaryUserID        bool
	RegularExpression    string
	PreferredKeyServer   string
	PolicyURI            string
	SignerUserID         string
	PreferredSymmetric   []byte
	PreferredHash        []byte
	PreferredCompression []byte
	KeyServerPreferences []byte
	KeyFlags             []byte
	Features             []byte
	IssuerKeyID          [8]byte
	// Unrecognized is the raw payload of a reserved, unknown or malformed
	// sub-packet.
	Unrecognized []byte
)

type TrustSignature struct {
	Level  byte
	Amount byte
}

type RevocationKey struct {
	Class       byte
	Algorithm   byte
	Fingerprint [20]byte
}

// NotationData is a name/value pair. Flags[0]&0x80 marks human-readable
// values.
type NotationData struct {
	Flags [4]byte
	Name  []byte
	Value []byte
}

func (n NotationData) HumanReadable() bool { return n.Flags[0]&0x80 != 0 }

type ReasonForRevocation struct {
	Code   byte
	Reason string
}

type SignatureTarget struct {
	PubKeyAlgo byte
	HashAlgo   byte
	Hash       []byte
}

type EmbeddedSignature struct {
	*Signature
}

type IssuerFingerprint struct {
	KeyVersion  byte
	Fingerprint []byte
}

// KeyID is the key ID implied by the fingerprint.
func (f IssuerFingerprint) KeyID() (id [8]byte) {
	if len(f.Fingerprint) < 8 {
		return id
	}
	if f.KeyVersion >= 5 {
		copy(id[:], f.Fingerprint[:8])
	} else {
		copy(id[:], f.Fingerprint[len(f.Fingerprint)-8:])
	}
	return id
}

func (t CreationTime) Time() time.Time { return time.Unix(int64(t), 0).UTC() }

func (CreationTime) subpacketValue()         {}
func (SignatureExpiration) subpacketValue()  {}
func (KeyExpiration) subpacketValue()        {}
func (Exportable) subpacketValue()           {}
func (Revocable) subpacketValue()            {}
func (PrimaryUserID) subpacketValue()        {}
func (RegularExpression) subpacketValue()    {}
func (PreferredKeyServer) subpacketValue()   {}
func (PolicyURI) subpacketValue()            {}
func (SignerUserID) subpacketValue()         {}
func (PreferredSymmetric) subpacketValue()   {}
func (PreferredHash) subpacketValue()        {}
func (PreferredCompression) subpacketValue() {}
func (KeyServerPreferences) subpacketValue() {}
func (KeyFlags) subpacketValue()             {}
func (Features) subpacketValue()             {}
func (IssuerKeyID) subpacketValue()          {}
func (Unrecognized) subpacketValue()         {}
func (TrustSignature) subpacketValue()       {}
func (RevocationKey) subpacketValue()        {}
func (NotationData) subpacketValue()         {}
func (ReasonForRevocation) subpacketValue()  {}
func (SignatureTarget) subpacketValue()      {}
func (EmbeddedSignature) subpacketValue()    {}
func (IssuerFingerprint) subpacketValue()    {}

// interpretSubpacket turns a payload whose size already passed the policy
// check into a typed value.
func interpretSubpacket(typ uint8, p []byte, off int64, max int, ctx *packetContext) (SubpacketValue, error) {
	switch typ {
	case SUBPKT_CREATION_TIME:
		return CreationTime(binary.BigEndian.Uint32(p)), nil
	case SUBPKT_EXPIRATION_TIME:
		return SignatureExpiration(binary.BigEndian.Uint32(p)), nil
	case SUBPKT_KEY_EXPIRATION:
		return KeyExpiration(binary.BigEndian.Uint32(p)), nil
	case SUBPKT_EXPORTABLE:
		return Exportable(p[0] != 0), nil
	case SUBPKT_REVOCABLE:
		return Revocable(p[0] != 0), nil
	case SUBPKT_PRIMARY_USER_ID:
		return PrimaryUserID(p[0] != 0), nil
	case SUBPKT_TRUST:
		return TrustSignature{Level: p[0], Amount: p[1]}, nil
	case SUBPKT_REGEXP:
		return RegularExpression(bytes.TrimRight(p, "\x00")), nil
	case SUBPKT_PREFERRED_KEYSERVER:
		return PreferredKeyServer(p), nil
	case SUBPKT_POLICY_URI:
		return PolicyURI(p), nil
	case SUBPKT_SIGNER_USER_ID:
		return SignerUserID(p), nil
	case SUBPKT_PREFERRED_SYMMETRIC:
		return PreferredSymmetric(p), nil
	case SUBPKT_PREFERRED_HASH:
		return PreferredHash(p), nil
	case SUBPKT_PREFERRED_COMPRESSION:
		return PreferredCompression(p), nil
	case SUBPKT_KEYSERVER_PREFS:
		return KeyServerPreferences(p), nil
	case SUBPKT_KEY_FLAGS:
		return KeyFlags(p), nil
	case SUBPKT_FEATURES:
		return Features(p), nil
	case SUBPKT_ISSUER:
		var id IssuerKeyID
		copy(id[:], p)
		return id, nil
	case SUBPKT_REVOCATION_KEY:
		rk := RevocationKey{Class: p[0], Algorithm: p[1]}
		copy(rk.Fingerprint[:], p[2:])
		return rk, nil
	case SUBPKT_NOTATION:
		return parseNotation(p)
	case SUBPKT_REVOCATION_REASON:
		return ReasonForRevocation{Code: p[0], Reason: string(p[1:])}, nil
	case SUBPKT_SIGNATURE_TARGET:
		return SignatureTarget{PubKeyAlgo: p[0], HashAlgo: p[1], Hash: p[2:]}, nil
	case SUBPKT_ISSUER_FINGERPRINT:
		return IssuerFingerprint{KeyVersion: p[0], Fingerprint: p[1:]}, nil
	case SUBPKT_EMBEDDED_SIGNATURE:
		eb := newBody(bytes.NewReader(p), int64(len(p)), off, max)
		sig, err := parseSignature(eb, ctx)
		if err == nil && eb.remaining > 0 {
			err = structural("embedded signature leaves %d bytes", eb.remaining)
		}
		if sig == nil {
			return nil, err
		}
		return EmbeddedSignature{sig}, err
	}
	// Reserved placeholder types that made it through the table.
	return Unrecognized(p), nil
}

func parseNotation(p []byte) (SubpacketValue, error) {
	var n NotationData
	copy(n.Flags[:], p[:4])
	nameLen := int(binary.BigEndian.Uint16(p[4:6]))
	valueLen := int(binary.BigEndian.Uint16(p[6:8]))
	if 8+nameLen+valueLen != len(p) {
		return Unrecognized(p), structural("notation declares %d+%d bytes in a %d byte payload", nameLen, valueLen, len(p)-8)
	}
	n.Name = p[8 : 8+nameLen]
	n.Value = p[8+nameLen:]
	return n, nil
}
