package pgp

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewFormatLengthRoundTrip(t *testing.T) {
	ranges := []struct {
		name     string
		min, max int
		octets   int
	}{
		{"one-octet", 0, 191, 1},
		{"two-octet", 192, 8383, 2},
		{"five-octet", 8384, 1<<32 - 1, 5},
	}
	for _, r := range ranges {
		t.Run(r.name, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				n := rapid.IntRange(r.min, r.max).Draw(t, "n")
				tag := rapid.ByteRange(0, 63).Draw(t, "tag")
				enc := append([]byte{0xc0 | tag}, encodeNewLength(n)...)

				hdr, consumed, err := ReadHeader(bytes.NewReader(enc))
				if err != nil {
					t.Fatalf("ReadHeader: %v", err)
				}
				if hdr.Length != uint32(n) || hdr.Tag != tag || hdr.Format != FormatNew || hdr.Partial {
					t.Fatalf("got %+v, want length %d tag %d", hdr, n, tag)
				}
				if consumed != 1+r.octets {
					t.Fatalf("consumed %d, want %d", consumed, 1+r.octets)
				}
			})
		})
	}
}

func TestOldFormatLengthTypes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tag := rapid.ByteRange(0, 15).Draw(t, "tag")
		lenType := rapid.IntRange(oldOneOctet, oldFourOctet).Draw(t, "lenType")
		max := []int{0xff, 0xffff, 1<<32 - 1}[lenType]
		n := rapid.IntRange(0, max).Draw(t, "n")

		enc := []byte{0x80 | tag<<2 | byte(lenType)}
		switch lenType {
		case oldOneOctet:
			enc = append(enc, byte(n))
		case oldTwoOctet:
			enc = append(enc, byte(n>>8), byte(n))
		case oldFourOctet:
			enc = append(enc, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
		}

		hdr, consumed, err := ReadHeader(bytes.NewReader(enc))
		if err != nil {
			t.Fatalf("ReadHeader: %v", err)
		}
		if hdr.Format != FormatOld || hdr.Tag != tag || hdr.Length != uint32(n) || hdr.Partial {
			t.Fatalf("got %+v, want tag %d length %d", hdr, tag, n)
		}
		if consumed != len(enc) {
			t.Fatalf("consumed %d of %d", consumed, len(enc))
		}
	})
}

func TestOldFormatIndeterminate(t *testing.T) {
	hdr, n, err := ReadHeader(bytes.NewReader([]byte{0x80 | TAG_LITERAL<<2 | oldIndeterminate, 'b'}))
	require.NoError(t, err)
	assert.Equal(t, Header{Tag: TAG_LITERAL, Format: FormatOld, Partial: true}, hdr)
	assert.Equal(t, 1, n)
}

func TestPartialBodyLength(t *testing.T) {
	for v := lenPartialMin; v < lenFiveOctet; v++ {
		hdr, n, err := ReadHeader(bytes.NewReader([]byte{0xc0 | TAG_LITERAL, byte(v)}))
		require.NoError(t, err)
		assert.True(t, hdr.Partial, "v=%d", v)
		assert.Equal(t, uint32(1)<<(v&0x1f), hdr.Length, "v=%d", v)
		assert.Equal(t, 2, n)
	}
}

func TestSubpacketLengthGrammar(t *testing.T) {
	// At sub-packet level 224..254 are two-octet lengths, not partial.
	n, consumed, err := ReadSubpacketLength(bytes.NewReader([]byte{230, 0x10}))
	require.NoError(t, err)
	assert.Equal(t, uint32((230-192)<<8+0x10+192), n)
	assert.Equal(t, 2, consumed)

	n, consumed, err = ReadSubpacketLength(bytes.NewReader([]byte{0xff, 0, 1, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, uint32(1<<16), n)
	assert.Equal(t, 5, consumed)
}

func TestReadHeaderCleanEOF(t *testing.T) {
	_, n, err := ReadHeader(bytes.NewReader(nil))
	assert.Equal(t, io.EOF, err)
	assert.Zero(t, n)
}

func TestReadHeaderShortRead(t *testing.T) {
	cases := map[string][]byte{
		"missing length":       {0xcd},
		"two-octet truncated":  {0xcd, 0xc5},
		"five-octet truncated": {0xcd, 0xff, 0x00, 0x01},
		"old two-octet":        {0x80 | TAG_USER_ID<<2 | oldTwoOctet, 0x01},
		"old four-octet":       {0x80 | TAG_USER_ID<<2 | oldFourOctet},
	}
	for name, enc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ReadHeader(bytes.NewReader(enc))
			require.Error(t, err)
			assert.True(t, IsKind(err, KindShortRead), "%v", err)
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		})
	}
}

func TestReadHeaderMissingIndicator(t *testing.T) {
	_, _, err := ReadHeader(bytes.NewReader([]byte{0x4d, 0x01}))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStructural))
}
