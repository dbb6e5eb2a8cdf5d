// Package hash maps OpenPGP hash algorithm identifiers to names and to the
// standard library's crypto.Hash values.
package hash

import (
	"crypto"
	_ "crypto/md5"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"

	"github.com/pkg/errors"
)

// Hash algorithm IDs (RFC 4880 §9.4, RFC 9580 §9.5).
const (
	MD5       = 1
	SHA1      = 2
	RIPEMD160 = 3
	SHA256    = 8
	SHA384    = 9
	SHA512    = 10
	SHA224    = 11
	SHA3_256  = 12
	SHA3_512  = 14
)

var registry = map[byte]struct {
	name string
	hash crypto.Hash
}{
	MD5:       {"md5", crypto.MD5},
	SHA1:      {"sha1", crypto.SHA1},
	RIPEMD160: {"ripemd160", crypto.RIPEMD160},
	SHA256:    {"sha256", crypto.SHA256},
	SHA384:    {"sha384", crypto.SHA384},
	SHA512:    {"sha512", crypto.SHA512},
	SHA224:    {"sha224", crypto.SHA224},
	SHA3_256:  {"sha3-256", crypto.SHA3_256},
	SHA3_512:  {"sha3-512", crypto.SHA3_512},
}

// Name returns the lower-case name for id, or "unknown(N)".
func Name(id byte) string {
	if e, ok := registry[id]; ok {
		return e.name
	}
	return fmt.Sprintf("unknown(%d)", id)
}

// ForID reports the crypto.Hash for an OpenPGP hash ID.
func ForID(id byte) (crypto.Hash, bool) {
	e, ok := registry[id]
	return e.hash, ok
}

// Digest hashes data with the function behind an OpenPGP hash ID. IDs that
// are known by name but not linked in (RIPEMD-160, SHA-3) are errors.
func Digest(id byte, data []byte) ([]byte, error) {
	h, ok := ForID(id)
	if !ok || !h.Available() {
		return nil, errors.Errorf("hash: %s not available", Name(id))
	}
	w := h.New()
	w.Write(data)
	return w.Sum(nil), nil
}
