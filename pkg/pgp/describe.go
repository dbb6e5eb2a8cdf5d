package pgp

import (
	"fmt"

	"example.com/pgpscan/pkg/crypto/hash"
	"example.com/pgpscan/pkg/trace"
)

func kindLabel(err error) string {
	if k := KindOf(err); k != "" {
		return string(k)
	}
	return "Error"
}

// describe sends the human-readable rendering of pkt, then one diagnostic
// per problem found in it.
func describe(s trace.Sink, pkt *Packet) {
	s.Field("packet", fmt.Sprintf("%s (tag %d), %s format, %d bytes at %d..%d",
		TagName(pkt.Tag), pkt.Tag, pkt.Format, pkt.BodyLength, pkt.Offset, pkt.End))

	switch b := pkt.Body.(type) {
	case *Signature:
		describeSignature(s, b)
	case *PublicKey:
		describePublicKey(s, b)
	case *SecretKey:
		describePublicKey(s, &b.PublicKey)
		s.Field("s2k usage", b.S2KUsage)
		if b.Encrypted() {
			s.Field("cipher", CipherName(b.Cipher))
		}
		if b.S2K != nil {
			describeS2K(s, b.S2K)
		}
		s.Hex("iv", b.IV)
		s.Field("secret material", fmt.Sprintf("%d bytes", b.SecretLength))
	case *EncryptedKey:
		s.Field("version", b.Version)
		if b.Version == 3 {
			s.Field("key id", b.KeyID[:])
		} else {
			s.Field("fingerprint", b.Fingerprint)
		}
		s.Field("algorithm", PubKeyAlgoName(b.Algorithm))
		describeMPIs(s, b.MPIs)
		s.Hex("ephemeral", b.Ephemeral)
		s.Hex("wrapped key", b.Wrapped)
	case *SymmetricKeyEncrypted:
		s.Field("version", b.Version)
		s.Field("cipher", CipherName(b.Cipher))
		describeS2K(s, &b.S2K)
		s.Hex("iv", b.IV)
		s.Hex("encrypted key", b.EncryptedKey)
	case *OnePassSignature:
		s.Field("version", b.Version)
		s.Field("signature type", fmt.Sprintf("%#02x", b.SigType))
		s.Field("hash", hash.Name(b.HashAlgo))
		s.Field("algorithm", PubKeyAlgoName(b.PubKeyAlgo))
		s.Field("key id", b.KeyID[:])
	case *UserID:
		s.Field("user id", b.ID)
	case *LiteralData:
		s.Field("format", string(rune(b.Format)))
		s.Field("file name", b.FileName)
		s.Field("date", CreationTime(b.Date).Time())
		s.Field("length", b.Length)
	case *CompressedData:
		s.Field("algorithm", CompressionName(b.Algorithm))
	case *EncryptedData:
		if b.Tag == TAG_SEIPD {
			s.Field("version", b.Version)
		}
		if b.Version == 2 {
			s.Field("cipher", CipherName(b.Cipher))
			s.Field("aead", b.AEAD)
			if n, ok := b.ChunkBytes(); ok {
				s.Field("chunk size", n)
			} else {
				s.Field("chunk size", fmt.Sprintf("invalid octet %d", b.ChunkSize))
			}
			s.Hex("salt", b.Salt)
		}
		s.Field("ciphertext", fmt.Sprintf("%d bytes", b.Length))
	case *MDC:
		s.Hex("hash", b.Hash[:])
	case *Opaque:
		s.Hex("data", b.Data)
	}

	diagnose(s, pkt)
}

func describeSignature(s trace.Sink, sig *Signature) {
	s.Field("version", sig.Version)
	s.Field("signature type", fmt.Sprintf("%#02x", sig.SigType))
	s.Field("algorithm", PubKeyAlgoName(sig.PubKeyAlgo))
	s.Field("hash", hash.Name(sig.HashAlgo))
	if sig.Version < 4 {
		s.Field("created", CreationTime(sig.CreationTime).Time())
		s.Field("key id", sig.IssuerKeyID[:])
	}
	describeArea(s, "hashed", sig.Hashed)
	describeArea(s, "unhashed", sig.Unhashed)
	s.Hex("hash left 16", sig.HashTag[:])
	describeMPIs(s, sig.MPIs)
	s.Hex("signature", sig.Native)
	s.Hex("material", sig.Material)
}

func describeArea(s trace.Sink, name string, a *SubpacketArea) {
	if a == nil {
		return
	}
	s.Field(name+" area", fmt.Sprintf("%d bytes at %d..%d", a.Length, a.Offset, a.End))
	for _, sp := range a.Subpackets {
		label := fmt.Sprintf("  subpacket %d", sp.Type)
		if sp.Critical {
			label += " (critical)"
		}
		switch v := sp.Value.(type) {
		case CreationTime:
			s.Field(label+" created", v.Time())
		case IssuerKeyID:
			s.Field(label+" issuer", v[:])
		case IssuerFingerprint:
			s.Field(label+" issuer fingerprint", v.Fingerprint)
		case Unrecognized:
			s.Hex(label, v)
		case EmbeddedSignature:
			describeSignature(s, v.Signature)
		default:
			s.Field(label, v)
		}
	}
}

func describePublicKey(s trace.Sink, pk *PublicKey) {
	s.Field("version", pk.Version)
	s.Field("created", CreationTime(pk.CreationTime).Time())
	if pk.Version < 4 {
		s.Field("valid days", pk.ValidDays)
	}
	s.Field("algorithm", PubKeyAlgoName(pk.Algorithm))
	s.Hex("curve oid", pk.OID)
	describeMPIs(s, pk.MPIs)
	s.Hex("kdf", pk.KDF)
	s.Hex("key", pk.Native)
	s.Hex("material", pk.Material)
	if pk.Fingerprint != nil {
		s.Field("fingerprint", pk.Fingerprint)
		s.Field("key id", pk.KeyID[:])
	}
}

func describeMPIs(s trace.Sink, mpis []MPI) {
	for i, m := range mpis {
		s.Hex(fmt.Sprintf("mpi %d (%d bits)", i, m.BitLength), m.Bytes)
	}
}

func describeS2K(s trace.Sink, k *S2K) {
	s.Field("s2k", k.Kind)
	if k.Kind == S2KReserved || k.Kind > S2KIteratedSalted {
		return
	}
	s.Field("s2k hash", hash.Name(k.Hash))
	if k.Kind != S2KSimple {
		s.Hex("s2k salt", k.Salt[:])
	}
	if k.Kind == S2KIteratedSalted {
		s.Field("s2k count", k.Iterations())
	}
}

func diagnose(s trace.Sink, pkt *Packet) {
	report := func(err error) {
		if err == nil {
			return
		}
		s.Diagnostic(trace.Diagnostic{Offset: pkt.Offset, Tag: int(pkt.Tag), Kind: kindLabel(err), Err: err})
	}
	report(pkt.Err)
	for _, w := range pkt.Warnings {
		report(w)
	}
	if sig, ok := pkt.Body.(*Signature); ok {
		diagnoseAreas(sig, report)
	}
}

// diagnoseAreas reports area and sub-packet errors of sig, descending into
// embedded signatures.
func diagnoseAreas(sig *Signature, report func(error)) {
	for _, a := range []*SubpacketArea{sig.Hashed, sig.Unhashed} {
		if a == nil {
			continue
		}
		report(a.Err)
		for _, sp := range a.Subpackets {
			report(sp.Err)
			if emb, ok := sp.Value.(EmbeddedSignature); ok && emb.Signature != nil {
				diagnoseAreas(emb.Signature, report)
			}
		}
	}
}
