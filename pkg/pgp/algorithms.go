package pgp

import "fmt"

// Packet tags (RFC 4880 §4.3, RFC 9580 §5).
const (
	TAG_RESERVED       = 0
	TAG_PKESK          = 1
	TAG_SIGNATURE      = 2
	TAG_SKESK          = 3
	TAG_ONE_PASS_SIG   = 4
	TAG_SECRET_KEY     = 5
	TAG_PUBLIC_KEY     = 6
	TAG_SECRET_SUBKEY  = 7
	TAG_COMPRESSED     = 8
	TAG_SED            = 9
	TAG_MARKER         = 10
	TAG_LITERAL        = 11
	TAG_TRUST          = 12
	TAG_USER_ID        = 13
	TAG_PUBLIC_SUBKEY  = 14
	TAG_USER_ATTRIBUTE = 17
	TAG_SEIPD          = 18
	TAG_MDC            = 19
)

// Public-key algorithm IDs.
const (
	PKALG_RSA          = 1
	PKALG_RSA_ENCRYPT  = 2
	PKALG_RSA_SIGN     = 3
	PKALG_ELGAMAL      = 16
	PKALG_DSA          = 17
	PKALG_ECDH         = 18
	PKALG_ECDSA        = 19
	PKALG_ELGAMAL_SIGN = 20
	PKALG_EDDSA        = 22
	PKALG_X25519       = 25
	PKALG_X448         = 26
	PKALG_ED25519      = 27
	PKALG_ED448        = 28
)

// Symmetric algorithm IDs.
const (
	SYM_PLAINTEXT = 0
	SYM_IDEA      = 1
	SYM_TRIPLEDES = 2
	SYM_CAST5     = 3
	SYM_BLOWFISH  = 4
	SYM_AES128    = 7
	SYM_AES192    = 8
	SYM_AES256    = 9
	SYM_TWOFISH   = 10
)

// Compression algorithm IDs.
const (
	COMP_NONE  = 0
	COMP_ZIP   = 1
	COMP_ZLIB  = 2
	COMP_BZIP2 = 3
)

var tagNames = map[uint8]string{
	TAG_RESERVED:       "reserved",
	TAG_PKESK:          "public-key encrypted session key",
	TAG_SIGNATURE:      "signature",
	TAG_SKESK:          "symmetric-key encrypted session key",
	TAG_ONE_PASS_SIG:   "one-pass signature",
	TAG_SECRET_KEY:     "secret key",
	TAG_PUBLIC_KEY:     "public key",
	TAG_SECRET_SUBKEY:  "secret subkey",
	TAG_COMPRESSED:     "compressed data",
	TAG_SED:            "symmetrically encrypted data",
	TAG_MARKER:         "marker",
	TAG_LITERAL:        "literal data",
	TAG_TRUST:          "trust",
	TAG_USER_ID:        "user id",
	TAG_PUBLIC_SUBKEY:  "public subkey",
	TAG_USER_ATTRIBUTE: "user attribute",
	TAG_SEIPD:          "sym. encrypted integrity protected data",
	TAG_MDC:            "modification detection code",
}

var pkAlgNames = map[byte]string{
	PKALG_RSA:          "rsa",
	PKALG_RSA_ENCRYPT:  "rsa-encrypt",
	PKALG_RSA_SIGN:     "rsa-sign",
	PKALG_ELGAMAL:      "elgamal",
	PKALG_DSA:          "dsa",
	PKALG_ECDH:         "ecdh",
	PKALG_ECDSA:        "ecdsa",
	PKALG_ELGAMAL_SIGN: "elgamal-sign",
	PKALG_EDDSA:        "eddsa",
	PKALG_X25519:       "x25519",
	PKALG_X448:         "x448",
	PKALG_ED25519:      "ed25519",
	PKALG_ED448:        "ed448",
}

var symAlgNames = map[byte]string{
	SYM_PLAINTEXT: "plaintext",
	SYM_IDEA:      "idea",
	SYM_TRIPLEDES: "3des",
	SYM_CAST5:     "cast5",
	SYM_BLOWFISH:  "blowfish",
	SYM_AES128:    "aes128",
	SYM_AES192:    "aes192",
	SYM_AES256:    "aes256",
	SYM_TWOFISH:   "twofish",
}

var compAlgNames = map[byte]string{
	COMP_NONE:  "uncompressed",
	COMP_ZIP:   "zip",
	COMP_ZLIB:  "zlib",
	COMP_BZIP2: "bzip2",
}

// TagName names a packet tag.
func TagName(tag uint8) string {
	if n, ok := tagNames[tag]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", tag)
}

// PubKeyAlgoName names a public-key algorithm.
func PubKeyAlgoName(id byte) string { return lookupName(pkAlgNames, id) }

// CipherName names a symmetric algorithm.
func CipherName(id byte) string { return lookupName(symAlgNames, id) }

// CompressionName names a compression algorithm.
func CompressionName(id byte) string { return lookupName(compAlgNames, id) }

func lookupName(m map[byte]string, id byte) string {
	if n, ok := m[id]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", id)
}

// cipherBlockSize is the IV length used in front of encrypted secret key
// material. Zero means unknown.
func cipherBlockSize(id byte) int {
	switch id {
	case SYM_IDEA, SYM_TRIPLEDES, SYM_CAST5, SYM_BLOWFISH:
		return 8
	case SYM_AES128, SYM_AES192, SYM_AES256, SYM_TWOFISH:
		return 16
	}
	return 0
}

func isRSA(alg byte) bool {
	return alg == PKALG_RSA || alg == PKALG_RSA_ENCRYPT || alg == PKALG_RSA_SIGN
}
