package hash

import (
	"crypto"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	assert.Equal(t, "sha256", Name(SHA256))
	assert.Equal(t, "ripemd160", Name(RIPEMD160))
	assert.Equal(t, "unknown(99)", Name(99))
}

func TestForID(t *testing.T) {
	h, ok := ForID(SHA512)
	require.True(t, ok)
	assert.Equal(t, crypto.SHA512, h)

	_, ok = ForID(4)
	assert.False(t, ok)
}

func TestDigest(t *testing.T) {
	tests := []struct {
		id   byte
		want string
	}{
		{MD5, "900150983cd24fb0d6963f7d28e17f72"},
		{SHA1, "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{SHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tt := range tests {
		sum, err := Digest(tt.id, []byte("abc"))
		require.NoError(t, err, Name(tt.id))
		assert.Equal(t, tt.want, hex.EncodeToString(sum), Name(tt.id))
	}
}

func TestDigestUnavailable(t *testing.T) {
	_, err := Digest(4, nil)
	assert.EqualError(t, err, "hash: unknown(4) not available")

	_, err = Digest(RIPEMD160, nil)
	assert.Error(t, err)
}
