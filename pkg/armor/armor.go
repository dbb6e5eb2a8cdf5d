// Package armor unwraps ASCII-armored input so the packet decoder always sees
// binary OpenPGP data.
package armor

import (
	"bufio"
	"bytes"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/pkg/errors"
)

// sniffLen is how far ahead Open looks for an armor header line.
const sniffLen = 512

var beginPrefix = []byte("-----BEGIN PGP")

// Open returns a reader over the binary content of r. If r starts (after
// optional whitespace) with an armor header line, the first armored block is
// decoded and its type is returned; otherwise r is passed through and the
// type is empty.
func Open(r io.Reader) (io.Reader, string, error) {
	br, ok := r.(*bufio.Reader)
	if !ok || br.Size() < sniffLen {
		br = bufio.NewReaderSize(r, sniffLen)
	}
	if !IsArmored(peek(br)) {
		return br, "", nil
	}
	block, err := armor.Decode(br)
	if err != nil {
		return nil, "", errors.Wrap(err, "armor: unable to unarmor")
	}
	return block.Body, block.Type, nil
}

// IsArmored reports whether p begins with an armor header line.
func IsArmored(p []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(p, " \t\r\n"), beginPrefix)
}

func peek(br *bufio.Reader) []byte {
	p, _ := br.Peek(sniffLen)
	return p
}
