package tlv8

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripSmallValue(t *testing.T) {
	items := []Item{{Tag: TagIdentifier, Value: []byte("hello")}}
	encoded := Encode(items)
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, TagIdentifier, decoded[0].Tag)
	assert.Equal(t, []byte("hello"), decoded[0].Value)
}

func TestFragmentationExactLayout(t *testing.T) {
	value := bytes.Repeat([]byte{0xBB}, 300)
	encoded := Encode([]Item{{Tag: TagPublicKey, Value: value}})

	require.Len(t, encoded, 304)
	assert.Equal(t, byte(TagPublicKey), encoded[0])
	assert.Equal(t, byte(0xFF), encoded[1])
	assert.Equal(t, byte(TagPublicKey), encoded[257])
	assert.Equal(t, byte(0x2D), encoded[258])

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, value, decoded[0].Value)
}

func TestEmptyValueStillEmitsTag(t *testing.T) {
	encoded := Encode([]Item{{Tag: TagError, Value: nil}})
	assert.Equal(t, []byte{byte(TagError), 0}, encoded)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Empty(t, decoded[0].Value)
}

func TestPairSetupM1Envelope(t *testing.T) {
	var b Builder
	b.AddByte(TagMethod, 0)
	b.AddByte(TagSequence, 1)
	got := b.Bytes()
	want := []byte{0x00, 0x01, 0x00, 0x06, 0x01, 0x01}
	assert.Equal(t, want, got)
}

func TestDecodeMap(t *testing.T) {
	encoded := Encode([]Item{
		{Tag: TagSequence, Value: []byte{2}},
		{Tag: TagSalt, Value: []byte("salt-bytes")},
	})
	m, err := DecodeMap(encoded)
	require.NoError(t, err)
	v, ok := m.Get(TagSalt)
	require.True(t, ok)
	assert.Equal(t, []byte("salt-bytes"), v)
}

func TestDecodeTruncatedHeaderErrors(t *testing.T) {
	_, err := Decode([]byte{0x01})
	assert.Error(t, err)
}

func TestDecodeOverrunErrors(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x05, 0x01, 0x02})
	assert.Error(t, err)
}

func TestMultipleValuesUpTo4KBRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 254, 255, 256, 509, 510, 511, 4096} {
		value := bytes.Repeat([]byte{0x42}, n)
		encoded := Encode([]Item{{Tag: TagEncryptedData, Value: value}})
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		require.Len(t, decoded, 1)
		assert.Equal(t, value, decoded[0].Value, "n=%d", n)
	}
}
