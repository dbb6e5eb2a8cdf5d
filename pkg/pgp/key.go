package pgp

import (
	"encoding/binary"

	"github.com/cloudflare/circl/dh/x25519"
	"github.com/cloudflare/circl/dh/x448"
	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/cloudflare/circl/sign/ed448"

	"example.com/pgpscan/pkg/crypto/hash"
)

const (
	fingerprintV4Prefix = 0x99
	fingerprintV6Prefix = 0x9b
	keyIDSize           = 8
)

// Secret key usage octets.
const (
	s2kUsageNone     = 0
	s2kUsageAEAD     = 253
	s2kUsageChecksum = 254
	s2kUsageSHA1     = 255
)

// PublicKey is a decoded public key or public subkey packet.
type PublicKey struct {
	Version      uint8
	Subkey       bool
	CreationTime uint32
	// ValidDays is only present in v2 and v3 keys.
	ValidDays uint16
	Algorithm uint8

	MPIs []MPI
	// OID is the curve of ECDSA, EdDSA and ECDH keys.
	OID []byte
	// KDF holds the ECDH KDF parameters without their length octet.
	KDF []byte
	// Native is the fixed-size key of X25519, X448, Ed25519 and Ed448.
	Native []byte
	// Material is the unparsed remainder for unknown algorithms.
	Material []byte

	Fingerprint []byte
	KeyID       [keyIDSize]byte
}

// SecretKey is a decoded secret key or secret subkey packet. The secret
// material itself is skipped; only its size is kept.
type SecretKey struct {
	PublicKey
	S2KUsage byte
	Cipher   byte
	AEAD     byte
	S2K      *S2K
	IV       []byte
	// Params is the raw v6 protection parameter block.
	Params       []byte
	SecretLength int64
}

// Encrypted reports whether the secret material is passphrase protected.
func (k *SecretKey) Encrypted() bool { return k.S2KUsage != s2kUsageNone }

func parsePublicKey(b *body, subkey bool) (*PublicKey, error) {
	pk := &PublicKey{Subkey: subkey}
	b.record()
	err := readPublicKey(b, pk)
	raw := b.stop()
	if err != nil {
		return pk, err
	}
	return pk, pk.computeFingerprint(raw)
}

func readPublicKey(b *body, pk *PublicKey) error {
	var err error
	if pk.Version, err = b.readByte(); err != nil {
		return err
	}
	switch pk.Version {
	case 2, 3, 4, 6:
	default:
		pk.Material, _, err = b.restOrSkip()
		if err == nil {
			err = unsupported("public key version %d", pk.Version)
		}
		return err
	}
	if pk.CreationTime, err = b.uint32(); err != nil {
		return err
	}
	if pk.Version < 4 {
		if pk.ValidDays, err = b.uint16(); err != nil {
			return err
		}
	}
	if pk.Algorithm, err = b.readByte(); err != nil {
		return err
	}
	if pk.Version < 4 && !isRSA(pk.Algorithm) {
		return structural("v%d key with non-RSA algorithm %d", pk.Version, pk.Algorithm)
	}
	if pk.Version != 6 {
		return readKeyMaterial(b, pk)
	}
	n, err := b.uint32()
	if err != nil {
		return err
	}
	mb, err := b.sub(int64(n))
	if err != nil {
		return err
	}
	if err = readKeyMaterial(mb, pk); err != nil {
		return err
	}
	if mb.remaining > 0 {
		return structural("key material declares %d bytes, %d unused", n, mb.remaining)
	}
	return nil
}

func readKeyMaterial(b *body, pk *PublicKey) error {
	var err error
	switch pk.Algorithm {
	case PKALG_RSA, PKALG_RSA_ENCRYPT, PKALG_RSA_SIGN:
		pk.MPIs, err = readMPIs(b, 2)
	case PKALG_DSA:
		pk.MPIs, err = readMPIs(b, 4)
	case PKALG_ELGAMAL, PKALG_ELGAMAL_SIGN:
		pk.MPIs, err = readMPIs(b, 3)
	case PKALG_ECDSA, PKALG_EDDSA:
		if pk.OID, err = readOID(b); err != nil {
			return err
		}
		pk.MPIs, err = readMPIs(b, 1)
	case PKALG_ECDH:
		if pk.OID, err = readOID(b); err != nil {
			return err
		}
		if pk.MPIs, err = readMPIs(b, 1); err != nil {
			return err
		}
		pk.KDF, err = readKDFParams(b)
	case PKALG_X25519:
		pk.Native, err = b.take(x25519.Size)
	case PKALG_X448:
		pk.Native, err = b.take(x448.Size)
	case PKALG_ED25519:
		pk.Native, err = b.take(ed25519.PublicKeySize)
	case PKALG_ED448:
		pk.Native, err = b.take(ed448.PublicKeySize)
	default:
		pk.Material, _, err = b.restOrSkip()
		if err == nil {
			err = unsupported("public key algorithm %d", pk.Algorithm)
		}
	}
	return err
}

// readKDFParams reads the ECDH length-prefixed {reserved, hash, cipher} block.
func readKDFParams(b *body) ([]byte, error) {
	n, err := b.readByte()
	if err != nil {
		return nil, err
	}
	if n < 3 || n == 0xff {
		return nil, structural("ecdh kdf parameters of %d bytes", n)
	}
	return b.take(int(n))
}

// computeFingerprint fills Fingerprint and KeyID from the serialized public
// key body.
func (pk *PublicKey) computeFingerprint(raw []byte) error {
	var err error
	switch pk.Version {
	case 2, 3:
		if len(pk.MPIs) < 2 {
			return nil
		}
		n, e := pk.MPIs[0].Bytes, pk.MPIs[1].Bytes
		if pk.Fingerprint, err = hash.Digest(hash.MD5, append(append([]byte{}, n...), e...)); err != nil {
			return unsupported("v%d fingerprint: %v", pk.Version, err)
		}
		if len(n) >= keyIDSize {
			copy(pk.KeyID[:], n[len(n)-keyIDSize:])
		} else {
			copy(pk.KeyID[keyIDSize-len(n):], n)
		}
	case 4:
		pre := []byte{fingerprintV4Prefix, 0, 0}
		binary.BigEndian.PutUint16(pre[1:], uint16(len(raw)))
		if pk.Fingerprint, err = hash.Digest(hash.SHA1, append(pre, raw...)); err != nil {
			return unsupported("v4 fingerprint: %v", err)
		}
		copy(pk.KeyID[:], pk.Fingerprint[len(pk.Fingerprint)-keyIDSize:])
	case 6:
		pre := []byte{fingerprintV6Prefix, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(pre[1:], uint32(len(raw)))
		if pk.Fingerprint, err = hash.Digest(hash.SHA256, append(pre, raw...)); err != nil {
			return unsupported("v6 fingerprint: %v", err)
		}
		copy(pk.KeyID[:], pk.Fingerprint[:keyIDSize])
	}
	return nil
}

func parseSecretKey(b *body, subkey bool) (*SecretKey, error) {
	pub, err := parsePublicKey(b, subkey)
	sk := &SecretKey{PublicKey: *pub}
	if err != nil {
		return sk, err
	}
	if sk.S2KUsage, err = b.readByte(); err != nil {
		return sk, err
	}
	if sk.Version == 6 {
		err = readSecretParamsV6(b, sk)
	} else {
		err = readSecretParams(b, sk)
	}
	if err != nil {
		return sk, err
	}
	sk.SecretLength, err = b.skip()
	return sk, err
}

func readSecretParams(b *body, sk *SecretKey) error {
	var err error
	switch sk.S2KUsage {
	case s2kUsageNone:
		return nil
	case s2kUsageChecksum, s2kUsageSHA1, s2kUsageAEAD:
		if sk.Cipher, err = b.readByte(); err != nil {
			return err
		}
		if sk.S2KUsage == s2kUsageAEAD {
			if sk.AEAD, err = b.readByte(); err != nil {
				return err
			}
		}
		s2k, err := readS2K(b)
		sk.S2K = &s2k
		if err != nil {
			return err
		}
	default:
		// Legacy form: the usage octet is the cipher and no S2K follows.
		sk.Cipher = sk.S2KUsage
	}
	ivLen := cipherBlockSize(sk.Cipher)
	if sk.S2KUsage == s2kUsageAEAD {
		ivLen = aeadNonceSize(sk.AEAD)
	}
	if ivLen == 0 {
		return unsupported("secret key cipher %d", sk.Cipher)
	}
	sk.IV, err = b.take(ivLen)
	return err
}

// readSecretParamsV6 keeps the counted parameter block raw.
func readSecretParamsV6(b *body, sk *SecretKey) error {
	if sk.S2KUsage == s2kUsageNone {
		return nil
	}
	n, err := b.readByte()
	if err != nil {
		return err
	}
	if sk.Params, err = b.take(int(n)); err != nil {
		return err
	}
	if len(sk.Params) > 0 {
		sk.Cipher = sk.Params[0]
	}
	return nil
}
