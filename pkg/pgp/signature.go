package pgp

import (
	"time"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/cloudflare/circl/sign/ed448"
)

const v3HashedLength = 5

// Signature is a decoded signature packet (tag 2) or embedded signature.
type Signature struct {
	Version    uint8
	SigType    uint8
	PubKeyAlgo uint8
	HashAlgo   uint8

	// Version 2 and 3 only.
	CreationTime uint32
	IssuerKeyID  [8]byte

	// Version 4 and 6 only.
	Hashed   *SubpacketArea
	Unhashed *SubpacketArea
	Salt     []byte

	HashTag [2]byte
	MPIs    []MPI
	// Native is the fixed-size signature of Ed25519 and Ed448.
	Native []byte
	// Material is the unparsed remainder for unknown algorithms.
	Material []byte
}

// Created returns the signature creation time from the v3 field or the
// hashed creation time sub-packet.
func (s *Signature) Created() (time.Time, bool) {
	if s.Version < 4 {
		return CreationTime(s.CreationTime).Time(), true
	}
	if sp := s.Hashed.Find(SUBPKT_CREATION_TIME); sp != nil {
		if t, ok := sp.Value.(CreationTime); ok {
			return t.Time(), true
		}
	}
	return time.Time{}, false
}

// Issuer returns the issuer key ID, looking at the issuer and issuer
// fingerprint sub-packets of both areas for v4 and later.
func (s *Signature) Issuer() ([8]byte, bool) {
	if s.Version < 4 {
		return s.IssuerKeyID, true
	}
	for _, area := range []*SubpacketArea{s.Hashed, s.Unhashed} {
		if sp := area.Find(SUBPKT_ISSUER); sp != nil {
			if id, ok := sp.Value.(IssuerKeyID); ok {
				return id, true
			}
		}
		if sp := area.Find(SUBPKT_ISSUER_FINGERPRINT); sp != nil {
			if fp, ok := sp.Value.(IssuerFingerprint); ok {
				return fp.KeyID(), true
			}
		}
	}
	return [8]byte{}, false
}

func parseSignature(b *body, ctx *packetContext) (*Signature, error) {
	sig := new(Signature)
	var err error
	if sig.Version, err = b.readByte(); err != nil {
		return sig, err
	}
	switch sig.Version {
	case 2, 3:
		err = parseSignatureV3(b, sig)
	case 4, 6:
		err = parseSignatureV4(b, sig, ctx)
	default:
		sig.Material, _, err = b.restOrSkip()
		if err == nil {
			err = unsupported("signature version %d", sig.Version)
		}
		return sig, err
	}
	if err != nil {
		return sig, err
	}
	return sig, readSignatureMaterial(b, sig)
}

func parseSignatureV3(b *body, sig *Signature) error {
	n, err := b.readByte()
	if err != nil {
		return err
	}
	if n != v3HashedLength {
		return structural("v%d signature hashed length is %d, want %d", sig.Version, n, v3HashedLength)
	}
	if sig.SigType, err = b.readByte(); err != nil {
		return err
	}
	if sig.CreationTime, err = b.uint32(); err != nil {
		return err
	}
	if err = b.readFull(sig.IssuerKeyID[:]); err != nil {
		return err
	}
	if sig.PubKeyAlgo, err = b.readByte(); err != nil {
		return err
	}
	if sig.HashAlgo, err = b.readByte(); err != nil {
		return err
	}
	return b.readFull(sig.HashTag[:])
}

// parseSignatureV4 also handles v6, which widens the area lengths to four
// octets and adds a salt after the hash tag.
func parseSignatureV4(b *body, sig *Signature, ctx *packetContext) error {
	var err error
	if sig.SigType, err = b.readByte(); err != nil {
		return err
	}
	if sig.PubKeyAlgo, err = b.readByte(); err != nil {
		return err
	}
	if sig.HashAlgo, err = b.readByte(); err != nil {
		return err
	}
	areaLen := func() (uint32, error) {
		if sig.Version == 6 {
			return b.uint32()
		}
		n, err := b.uint16()
		return uint32(n), err
	}

	n, err := areaLen()
	if err != nil {
		return err
	}
	if sig.Hashed, err = decodeSubpacketArea(b, n, ctx); err != nil {
		return err
	}
	if n, err = areaLen(); err != nil {
		return err
	}
	if sig.Unhashed, err = decodeSubpacketArea(b, n, ctx); err != nil {
		return err
	}
	if err = b.readFull(sig.HashTag[:]); err != nil {
		return err
	}
	if sig.Version == 6 {
		saltLen, err := b.readByte()
		if err != nil {
			return err
		}
		if sig.Salt, err = b.take(int(saltLen)); err != nil {
			return err
		}
	}
	return nil
}

func readSignatureMaterial(b *body, sig *Signature) error {
	var err error
	switch sig.PubKeyAlgo {
	case PKALG_RSA, PKALG_RSA_SIGN, PKALG_RSA_ENCRYPT:
		sig.MPIs, err = readMPIs(b, 1)
	case PKALG_DSA, PKALG_ECDSA, PKALG_EDDSA, PKALG_ELGAMAL, PKALG_ELGAMAL_SIGN:
		sig.MPIs, err = readMPIs(b, 2)
	case PKALG_ED25519:
		sig.Native, err = b.take(ed25519.SignatureSize)
	case PKALG_ED448:
		sig.Native, err = b.take(ed448.SignatureSize)
	default:
		sig.Material, _, err = b.restOrSkip()
		if err == nil {
			err = unsupported("signature algorithm %d", sig.PubKeyAlgo)
		}
	}
	return err
}
