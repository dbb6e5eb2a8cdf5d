package pgp

import (
	"github.com/cloudflare/circl/dh/x25519"
	"github.com/cloudflare/circl/dh/x448"
)

// AEAD algorithm IDs.
const (
	AEAD_EAX = 1
	AEAD_OCB = 2
	AEAD_GCM = 3
)

func aeadNonceSize(id byte) int {
	switch id {
	case AEAD_EAX:
		return 16
	case AEAD_OCB:
		return 15
	case AEAD_GCM:
		return 12
	}
	return 0
}

// EncryptedKey is a public-key encrypted session key packet (tag 1).
type EncryptedKey struct {
	Version uint8
	// KeyID is the recipient of a v3 packet.
	KeyID [keyIDSize]byte
	// KeyVersion and Fingerprint identify the recipient of a v6 packet. Both
	// are zero for an anonymous recipient.
	KeyVersion  uint8
	Fingerprint []byte
	Algorithm   uint8

	MPIs []MPI
	// Ephemeral is the native X25519/X448 ephemeral public key.
	Ephemeral []byte
	// Cipher is the cleartext symmetric algorithm of a v3 X25519/X448 packet.
	Cipher  byte
	Wrapped []byte
	// Material is the unparsed remainder for unknown algorithms.
	Material []byte
}

func parseEncryptedKey(b *body) (*EncryptedKey, error) {
	ek := new(EncryptedKey)
	var err error
	if ek.Version, err = b.readByte(); err != nil {
		return ek, err
	}
	switch ek.Version {
	case 3:
		if err = b.readFull(ek.KeyID[:]); err != nil {
			return ek, err
		}
	case 6:
		n, err := b.readByte()
		if err != nil {
			return ek, err
		}
		if n > 0 {
			if ek.KeyVersion, err = b.readByte(); err != nil {
				return ek, err
			}
			if ek.Fingerprint, err = b.take(int(n) - 1); err != nil {
				return ek, err
			}
		}
	default:
		ek.Material, _, err = b.restOrSkip()
		if err == nil {
			err = unsupported("encrypted session key version %d", ek.Version)
		}
		return ek, err
	}
	if ek.Algorithm, err = b.readByte(); err != nil {
		return ek, err
	}

	switch ek.Algorithm {
	case PKALG_RSA, PKALG_RSA_ENCRYPT:
		ek.MPIs, err = readMPIs(b, 1)
	case PKALG_ELGAMAL:
		ek.MPIs, err = readMPIs(b, 2)
	case PKALG_ECDH:
		if ek.MPIs, err = readMPIs(b, 1); err != nil {
			return ek, err
		}
		ek.Wrapped, err = readShortField(b)
	case PKALG_X25519, PKALG_X448:
		size := x25519.Size
		if ek.Algorithm == PKALG_X448 {
			size = x448.Size
		}
		if ek.Ephemeral, err = b.take(size); err != nil {
			return ek, err
		}
		err = readNativeWrapped(b, ek)
	default:
		ek.Material, _, err = b.restOrSkip()
		if err == nil {
			err = unsupported("session key algorithm %d", ek.Algorithm)
		}
	}
	return ek, err
}

// readNativeWrapped reads the length-prefixed X25519/X448 session data. In
// v3 packets the first octet of it is the cleartext cipher.
func readNativeWrapped(b *body, ek *EncryptedKey) error {
	n, err := b.readByte()
	if err != nil {
		return err
	}
	if ek.Version == 3 {
		if n == 0 {
			return structural("empty session data")
		}
		if ek.Cipher, err = b.readByte(); err != nil {
			return err
		}
		n--
	}
	ek.Wrapped, err = b.take(int(n))
	return err
}

func readShortField(b *body) ([]byte, error) {
	n, err := b.readByte()
	if err != nil {
		return nil, err
	}
	return b.take(int(n))
}

// SymmetricKeyEncrypted is a symmetric-key encrypted session key packet
// (tag 3).
type SymmetricKeyEncrypted struct {
	Version uint8
	Cipher  byte
	AEAD    byte
	S2K     S2K
	IV      []byte
	// EncryptedKey is empty when the S2K output is the session key itself.
	EncryptedKey []byte
}

func parseSymmetricKeyEncrypted(b *body) (*SymmetricKeyEncrypted, error) {
	ske := new(SymmetricKeyEncrypted)
	var err error
	if ske.Version, err = b.readByte(); err != nil {
		return ske, err
	}
	switch ske.Version {
	case 4:
		if ske.Cipher, err = b.readByte(); err != nil {
			return ske, err
		}
		if ske.S2K, err = readS2K(b); err != nil {
			return ske, err
		}
	case 6:
		if err = readSymmetricKeyParamsV6(b, ske); err != nil {
			return ske, err
		}
	default:
		ske.EncryptedKey, _, err = b.restOrSkip()
		if err == nil {
			err = unsupported("symmetric session key version %d", ske.Version)
		}
		return ske, err
	}
	ske.EncryptedKey, err = b.rest()
	return ske, err
}

func readSymmetricKeyParamsV6(b *body, ske *SymmetricKeyEncrypted) error {
	n, err := b.readByte()
	if err != nil {
		return err
	}
	fb, err := b.sub(int64(n))
	if err != nil {
		return err
	}
	if ske.Cipher, err = fb.readByte(); err != nil {
		return err
	}
	if ske.AEAD, err = fb.readByte(); err != nil {
		return err
	}
	s2kLen, err := fb.readByte()
	if err != nil {
		return err
	}
	sb, err := fb.sub(int64(s2kLen))
	if err != nil {
		return err
	}
	if ske.S2K, err = readS2K(sb); err != nil {
		return err
	}
	if sb.remaining > 0 {
		return structural("s2k declares %d bytes, %d unused", s2kLen, sb.remaining)
	}
	if ske.IV, err = fb.rest(); err != nil {
		return err
	}
	if want := aeadNonceSize(ske.AEAD); want != 0 && len(ske.IV) != want {
		return structural("aead %d nonce of %d bytes, want %d", ske.AEAD, len(ske.IV), want)
	}
	return nil
}
