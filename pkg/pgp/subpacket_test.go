package pgp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/pgpscan/pkg/marker"
)

var issuer = []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}

func TestIssuerSubpacketArea(t *testing.T) {
	area := subpacket(SUBPKT_ISSUER, issuer)
	require.Len(t, area, 10)
	b := testBody(area)

	got, err := decodeSubpacketArea(b, uint32(len(area)), nil)
	require.NoError(t, err)
	require.Len(t, got.Subpackets, 1)

	sp := got.Subpackets[0]
	assert.Equal(t, SubpacketHeader{Length: 9, Type: SUBPKT_ISSUER, Critical: false}, sp.SubpacketHeader)
	assert.Len(t, sp.Payload, 8)
	assert.Equal(t, IssuerKeyID{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}, sp.Value)
	assert.NoError(t, sp.Err)

	assert.Zero(t, b.remaining)
	assert.Equal(t, int64(len(area)), got.End-got.Offset)
}

func TestCriticalBit(t *testing.T) {
	area := subpacket(0x80|SUBPKT_CREATION_TIME, []byte{0x5f, 0x5e, 0x10, 0x00})

	got, err := decodeSubpacketArea(testBody(area), uint32(len(area)), nil)
	require.NoError(t, err)
	sp := got.Subpackets[0]
	assert.True(t, sp.Critical)
	assert.Equal(t, uint8(SUBPKT_CREATION_TIME), sp.Type)
	assert.Equal(t, CreationTime(1600000000), sp.Value)
}

func TestPolicyMismatchContinues(t *testing.T) {
	// A three-byte creation time, then a well-formed key flags sub-packet.
	area := cat(
		subpacket(SUBPKT_CREATION_TIME, []byte{1, 2, 3}),
		subpacket(SUBPKT_KEY_FLAGS, []byte{0x03}),
	)

	got, err := decodeSubpacketArea(testBody(area), uint32(len(area)), nil)
	require.NoError(t, err)
	require.Len(t, got.Subpackets, 2)

	bad := got.Subpackets[0]
	assert.True(t, IsKind(bad.Err, KindStructural), "%v", bad.Err)
	assert.Equal(t, Unrecognized{1, 2, 3}, bad.Value)

	good := got.Subpackets[1]
	assert.NoError(t, good.Err)
	assert.Equal(t, KeyFlags{0x03}, good.Value)
	assert.NoError(t, got.Err)
}

func TestUnrecognizedTypes(t *testing.T) {
	for _, typ := range []byte{0, 1, 8, 13, 14, 15, 17, 18, 19, 34, 100} {
		area := subpacket(typ, []byte{0xaa})
		got, err := decodeSubpacketArea(testBody(area), uint32(len(area)), nil)
		require.NoError(t, err)
		sp := got.Subpackets[0]
		assert.True(t, IsKind(sp.Err, KindUnsupported), "type %d", typ)
		assert.Equal(t, Unrecognized{0xaa}, sp.Value)
	}
}

func TestSubpacketOverrunEndsArea(t *testing.T) {
	// Second sub-packet claims 40 bytes in a 7 byte area; the packet
	// continues after the area with 0x77.
	area := cat(subpacket(SUBPKT_EXPORTABLE, []byte{1}), []byte{40, SUBPKT_POLICY_URI, 'x', 'y'})
	b := testBody(cat(area, []byte{0x77}))

	got, err := decodeSubpacketArea(b, uint32(len(area)), nil)
	require.NoError(t, err)
	require.Len(t, got.Subpackets, 1)
	assert.Equal(t, Exportable(true), got.Subpackets[0].Value)
	assert.True(t, IsKind(got.Err, KindStructural))

	next, err := b.readByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x77), next)
}

func TestZeroLengthSubpacket(t *testing.T) {
	area := []byte{0, 0, 0}
	b := testBody(area)
	got, err := decodeSubpacketArea(b, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, got.Subpackets)
	assert.True(t, IsKind(got.Err, KindStructural))
	assert.Zero(t, b.remaining)
}

func TestAreaLongerThanPacket(t *testing.T) {
	_, err := decodeSubpacketArea(testBody([]byte{2, 4}), 10, nil)
	assert.True(t, IsKind(err, KindStructural))
}

func TestFiveOctetSubpacketLength(t *testing.T) {
	uri := make([]byte, 300)
	for i := range uri {
		uri[i] = 'a'
	}
	area := cat([]byte{0xff, 0, 0, 0x01, 0x2d, SUBPKT_POLICY_URI}, uri)

	got, err := decodeSubpacketArea(testBody(area), uint32(len(area)), nil)
	require.NoError(t, err)
	require.Len(t, got.Subpackets, 1)
	assert.Equal(t, uint32(301), got.Subpackets[0].Length)
	assert.Equal(t, PolicyURI(uri), got.Subpackets[0].Value)
}

func TestInterpretedValues(t *testing.T) {
	notation := cat([]byte{0x80, 0, 0, 0, 0, 4, 0, 2}, []byte("test"), []byte("ok"))
	fp := make([]byte, 20)
	fp[19] = 0x42

	tests := []struct {
		typ     byte
		payload []byte
		want    SubpacketValue
	}{
		{SUBPKT_EXPIRATION_TIME, []byte{0, 0, 1, 0}, SignatureExpiration(256)},
		{SUBPKT_KEY_EXPIRATION, []byte{0, 1, 0, 0}, KeyExpiration(65536)},
		{SUBPKT_TRUST, []byte{1, 120}, TrustSignature{Level: 1, Amount: 120}},
		{SUBPKT_REGEXP, []byte("<[^>]+>\x00"), RegularExpression("<[^>]+>")},
		{SUBPKT_REVOCABLE, []byte{0}, Revocable(false)},
		{SUBPKT_PREFERRED_SYMMETRIC, []byte{9, 8, 7}, PreferredSymmetric{9, 8, 7}},
		{SUBPKT_PREFERRED_HASH, []byte{10, 8}, PreferredHash{10, 8}},
		{SUBPKT_PREFERRED_COMPRESSION, []byte{2, 1}, PreferredCompression{2, 1}},
		{SUBPKT_KEYSERVER_PREFS, []byte{0x80}, KeyServerPreferences{0x80}},
		{SUBPKT_PREFERRED_KEYSERVER, []byte("hkps://keys"), PreferredKeyServer("hkps://keys")},
		{SUBPKT_PRIMARY_USER_ID, []byte{1}, PrimaryUserID(true)},
		{SUBPKT_SIGNER_USER_ID, []byte("alice"), SignerUserID("alice")},
		{SUBPKT_REVOCATION_REASON, []byte{2, 'o', 'l', 'd'}, ReasonForRevocation{Code: 2, Reason: "old"}},
		{SUBPKT_FEATURES, []byte{0x01}, Features{0x01}},
		{SUBPKT_SIGNATURE_TARGET, []byte{1, 8, 0xaa}, SignatureTarget{PubKeyAlgo: 1, HashAlgo: 8, Hash: []byte{0xaa}}},
		{SUBPKT_REVOCATION_KEY, cat([]byte{0x80, 1}, fp), RevocationKey{Class: 0x80, Algorithm: 1, Fingerprint: [20]byte{19: 0x42}}},
		{SUBPKT_NOTATION, notation, NotationData{Flags: [4]byte{0x80}, Name: []byte("test"), Value: []byte("ok")}},
		{SUBPKT_ISSUER_FINGERPRINT, cat([]byte{4}, fp), IssuerFingerprint{KeyVersion: 4, Fingerprint: fp}},
	}
	for _, tt := range tests {
		area := subpacket(tt.typ, tt.payload)
		got, err := decodeSubpacketArea(testBody(area), uint32(len(area)), nil)
		require.NoError(t, err)
		sp := got.Subpackets[0]
		assert.NoError(t, sp.Err, "type %d", tt.typ)
		assert.Equal(t, tt.want, sp.Value, "type %d", tt.typ)
	}
}

func TestNotationLengthMismatch(t *testing.T) {
	area := subpacket(SUBPKT_NOTATION, cat([]byte{0, 0, 0, 0, 0, 9, 0, 2}, []byte("abc")))
	got, err := decodeSubpacketArea(testBody(area), uint32(len(area)), nil)
	require.NoError(t, err)
	assert.True(t, IsKind(got.Subpackets[0].Err, KindStructural))
	assert.IsType(t, Unrecognized{}, got.Subpackets[0].Value)
}

func TestIssuerFingerprintKeyID(t *testing.T) {
	fp := make([]byte, 32)
	for i := range fp {
		fp[i] = byte(i)
	}
	assert.Equal(t, [8]byte{24, 25, 26, 27, 28, 29, 30, 31}, IssuerFingerprint{KeyVersion: 4, Fingerprint: fp}.KeyID())
	assert.Equal(t, [8]byte{0, 1, 2, 3, 4, 5, 6, 7}, IssuerFingerprint{KeyVersion: 6, Fingerprint: fp}.KeyID())
}

func TestEmbeddedSignature(t *testing.T) {
	inner := sigV4Body(subpacket(SUBPKT_CREATION_TIME, []byte{0, 0, 0, 1}), nil)
	area := subpacket(SUBPKT_EMBEDDED_SIGNATURE, inner)

	got, err := decodeSubpacketArea(testBody(area), uint32(len(area)), nil)
	require.NoError(t, err)
	sp := got.Subpackets[0]
	require.NoError(t, sp.Err)
	emb, ok := sp.Value.(EmbeddedSignature)
	require.True(t, ok, "%T", sp.Value)
	assert.Equal(t, uint8(4), emb.Version)
	created, ok := emb.Created()
	require.True(t, ok)
	assert.Equal(t, int64(1), created.Unix())
}

func TestAreaMarkers(t *testing.T) {
	marks := marker.New(2, fixedCursor{})
	ctx := &packetContext{marks: marks}
	area := subpacket(SUBPKT_ISSUER, issuer)
	b := newBody(bytesReader(area), int64(len(area)), 100, DefaultMaxPacketSize)

	got, err := decodeSubpacketArea(b, uint32(len(area)), ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Offset)
	assert.Equal(t, int64(110), got.End)
	assert.Zero(t, marks.Len())
	assert.Empty(t, ctx.warnings)
}

func TestAreaMarkerCapacity(t *testing.T) {
	marks := marker.New(1, fixedCursor{})
	require.NoError(t, marks.Mark(0, marker.FlagPacket))
	ctx := &packetContext{marks: marks}
	area := subpacket(SUBPKT_ISSUER, issuer)

	got, err := decodeSubpacketArea(testBody(area), uint32(len(area)), ctx)
	require.NoError(t, err)
	require.Len(t, got.Subpackets, 1)
	require.Len(t, ctx.warnings, 1)
	assert.True(t, IsKind(ctx.warnings[0], KindCapacity))
	// The packet marker below is untouched.
	assert.Equal(t, 1, marks.Len())
}

func TestTrustRegexpRevocablePolicies(t *testing.T) {
	tests := []struct {
		name    string
		typ     byte
		payload []byte
		want    SubpacketValue
		bad     bool
	}{
		{"trust fixed at two octets", SUBPKT_TRUST, []byte{1, 2, 3}, Unrecognized{1, 2, 3}, true},
		{"regexp of one octet", SUBPKT_REGEXP, []byte{'a'}, RegularExpression("a"), false},
		{"regexp empty", SUBPKT_REGEXP, nil, RegularExpression(""), false},
		{"revocable interpreted", SUBPKT_REVOCABLE, []byte{1}, Revocable(true), false},
		{"revocable too long", SUBPKT_REVOCABLE, []byte{1, 0}, Unrecognized{1, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area := subpacket(tt.typ, tt.payload)
			got, err := decodeSubpacketArea(testBody(area), uint32(len(area)), nil)
			require.NoError(t, err)
			sp := got.Subpackets[0]
			assert.Equal(t, tt.want, sp.Value)
			if tt.bad {
				assert.True(t, IsKind(sp.Err, KindStructural), "%v", sp.Err)
			} else {
				assert.NoError(t, sp.Err)
			}
		})
	}
}
