package opack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerEncodings(t *testing.T) {
	cases := []struct {
		v    interface{}
		want []byte
	}{
		{int64(0), []byte{0x08}},
		{int64(20), []byte{0x1C}},
		{int64(-1), []byte{0x30, 0xFF}},
		{int64(256), []byte{0x31, 0x00, 0x01}},
	}
	for _, c := range cases {
		got, err := Marshal(c.v)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "encode(%v)", c.v)
	}
}

func TestStringEncoding(t *testing.T) {
	got, err := Marshal("hi")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x42, 0x68, 0x69}, got)
}

func TestRoundTripScalarValues(t *testing.T) {
	values := []interface{}{
		nil, true, false,
		int64(0), int64(39), int64(40), int64(-128), int64(127),
		int64(-32768), int64(32767), int64(1 << 40),
		3.14159, "", "short string", string(make([]byte, 300)),
	}
	for _, v := range values {
		encoded, err := Marshal(v)
		require.NoError(t, err)
		decoded, n, err := Unmarshal(encoded)
		require.NoError(t, err)
		assert.Equal(t, len(encoded), n)
		assert.Equal(t, v, decoded, "value=%#v", v)
	}
}

func TestRoundTripBytes(t *testing.T) {
	for _, n := range []int{0, 32, 33, 255, 256, 65536} {
		b := Bytes(make([]byte, n))
		for i := range b {
			b[i] = byte(i)
		}
		encoded, err := Marshal(b)
		require.NoError(t, err)
		decoded, consumed, err := Unmarshal(encoded)
		require.NoError(t, err)
		assert.Equal(t, len(encoded), consumed)
		assert.Equal(t, b, decoded)
	}
}

func TestRoundTripArray(t *testing.T) {
	small := []interface{}{int64(1), int64(2), int64(3)}
	encoded, err := Marshal(small)
	require.NoError(t, err)
	decoded, _, err := Unmarshal(encoded)
	require.NoError(t, err)
	assert.Equal(t, small, decoded)

	big := make([]interface{}, 20)
	for i := range big {
		big[i] = int64(i)
	}
	encoded, err = Marshal(big)
	require.NoError(t, err)
	assert.Equal(t, byte(0xDF), encoded[0])
	decoded, _, err = Unmarshal(encoded)
	require.NoError(t, err)
	assert.Equal(t, big, decoded)
}

func TestRoundTripMapPreservesOrder(t *testing.T) {
	m := Map{{Key: "_i", Value: "abc"}, {Key: "_x", Value: int64(7)}}
	encoded, err := Marshal(m)
	require.NoError(t, err)
	decoded, _, err := Unmarshal(encoded)
	require.NoError(t, err)
	got, ok := decoded.(Map)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "_i", got[0].Key)
	assert.Equal(t, "_x", got[1].Key)
}

func TestRoundTripLargeMapUsesLongForm(t *testing.T) {
	var m Map
	for i := 0; i < 20; i++ {
		m = append(m, MapEntry{Key: string(rune('a' + i)), Value: int64(i)})
	}
	encoded, err := Marshal(m)
	require.NoError(t, err)
	decoded, _, err := Unmarshal(encoded)
	require.NoError(t, err)
	got, ok := decoded.(Map)
	require.True(t, ok)
	require.Len(t, got, 20)
	for i, e := range got {
		assert.Equal(t, string(rune('a'+i)), e.Key)
		assert.Equal(t, int64(i), e.Value)
	}
}

func TestRoundTripLargeArrayUsesLongForm(t *testing.T) {
	arr := make([]interface{}, 20)
	for i := range arr {
		arr[i] = int64(i)
	}
	encoded, err := Marshal(arr)
	require.NoError(t, err)
	decoded, _, err := Unmarshal(encoded)
	require.NoError(t, err)
	got, ok := decoded.([]interface{})
	require.True(t, ok)
	require.Len(t, got, 20)
}

func TestUnknownTagRejected(t *testing.T) {
	_, _, err := Unmarshal([]byte{0xFE})
	assert.Error(t, err)
}
