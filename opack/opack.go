// Package opack implements the compact typed binary format used inside
// Companion protocol payloads: null, booleans, integers, floats,
// strings, byte sequences, arrays and ordered maps, each with a
// single-byte tag that also encodes small values and short lengths
// inline.
package opack

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	tagNull        byte = 0x04
	tagTrue        byte = 0x01
	tagFalse       byte = 0x02
	tagSmallIntLo  byte = 0x08 // + 0..39
	tagSmallIntHi  byte = 0x08 + 39
	tagInt8        byte = 0x30
	tagInt16       byte = 0x31
	tagInt32       byte = 0x32
	tagInt64       byte = 0x33
	tagFloat64     byte = 0x36
	tagStringLo    byte = 0x40 // + 0..32 inline
	tagStringHi    byte = 0x40 + 32
	tagStringU8    byte = 0x61
	tagStringU16   byte = 0x62
	tagStringU24   byte = 0x63
	tagStringU32   byte = 0x64
	tagBytesLo     byte = 0x70 // + 0..32 inline
	tagBytesHi     byte = 0x70 + 32
	tagBytesU8     byte = 0x91
	tagBytesU16    byte = 0x92
	tagBytesU32    byte = 0x93
	tagArrayLo     byte = 0xD0 // + 0..14
	tagArrayHi     byte = 0xD0 + 14
	tagArrayLong   byte = 0xDF
	tagMapLo       byte = 0xE0 // + 0,2,4..28 (count*2)
	tagMapHi       byte = 0xE0 + 28
	tagMapLong     byte = 0xEF
	tagTerminator  byte = 0x03
)

// MapEntry is a single ordered key/value pair of a Map; opack maps
// preserve insertion order, unlike Go's native map type.
type MapEntry struct {
	Key   interface{}
	Value interface{}
}

// Map is an ordered sequence of key/value pairs.
type Map []MapEntry

// Get returns the value for the given key (compared with ==), and
// whether it was found.
func (m Map) Get(key interface{}) (interface{}, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Bytes represents an opack byte-sequence value, distinguished from a
// Go string which maps to the opack string type.
type Bytes []byte

// Marshal encodes a single value. Supported input types: nil, bool,
// the signed integer kinds up to int64, float64, string, Bytes,
// []interface{} (array), Map (ordered map).
func Marshal(v interface{}) ([]byte, error) {
	var out []byte
	if err := marshalInto(&out, v); err != nil {
		return nil, err
	}
	return out, nil
}

func marshalInto(out *[]byte, v interface{}) error {
	switch x := v.(type) {
	case nil:
		*out = append(*out, tagNull)
	case bool:
		if x {
			*out = append(*out, tagTrue)
		} else {
			*out = append(*out, tagFalse)
		}
	case int:
		return marshalInt(out, int64(x))
	case int8:
		return marshalInt(out, int64(x))
	case int16:
		return marshalInt(out, int64(x))
	case int32:
		return marshalInt(out, int64(x))
	case int64:
		return marshalInt(out, x)
	case uint64:
		return marshalInt(out, int64(x))
	case float64:
		*out = append(*out, tagFloat64)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
		*out = append(*out, buf[:]...)
	case string:
		return marshalString(out, x)
	case Bytes:
		return marshalBytes(out, x)
	case []byte:
		return marshalBytes(out, Bytes(x))
	case []interface{}:
		return marshalArray(out, x)
	case Map:
		return marshalMap(out, x)
	default:
		return fmt.Errorf("opack: unsupported type %T", v)
	}
	return nil
}

func marshalInt(out *[]byte, v int64) error {
	if v >= 0 && v <= 39 {
		*out = append(*out, tagSmallIntLo+byte(v))
		return nil
	}
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		*out = append(*out, tagInt8, byte(int8(v)))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		*out = append(*out, tagInt16)
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(int16(v)))
		*out = append(*out, buf[:]...)
	case v >= math.MinInt32 && v <= math.MaxInt32:
		*out = append(*out, tagInt32)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(int32(v)))
		*out = append(*out, buf[:]...)
	default:
		*out = append(*out, tagInt64)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		*out = append(*out, buf[:]...)
	}
	return nil
}

func marshalString(out *[]byte, s string) error {
	b := []byte(s)
	n := len(b)
	switch {
	case n <= 32:
		*out = append(*out, tagStringLo+byte(n))
	case n <= math.MaxUint8:
		*out = append(*out, tagStringU8, byte(n))
	case n <= math.MaxUint16:
		*out = append(*out, tagStringU16)
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(n))
		*out = append(*out, buf[:]...)
	case n <= 1<<24-1:
		*out = append(*out, tagStringU24)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(n))
		*out = append(*out, buf[:3]...)
	default:
		*out = append(*out, tagStringU32)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(n))
		*out = append(*out, buf[:]...)
	}
	*out = append(*out, b...)
	return nil
}

func marshalBytes(out *[]byte, b Bytes) error {
	n := len(b)
	switch {
	case n <= 32:
		*out = append(*out, tagBytesLo+byte(n))
	case n <= math.MaxUint8:
		*out = append(*out, tagBytesU8, byte(n))
	case n <= math.MaxUint16:
		*out = append(*out, tagBytesU16)
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(n))
		*out = append(*out, buf[:]...)
	default:
		*out = append(*out, tagBytesU32)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(n))
		*out = append(*out, buf[:]...)
	}
	*out = append(*out, b...)
	return nil
}

func marshalArray(out *[]byte, arr []interface{}) error {
	n := len(arr)
	if n < 15 {
		*out = append(*out, tagArrayLo+byte(n))
		for _, v := range arr {
			if err := marshalInto(out, v); err != nil {
				return err
			}
		}
		return nil
	}
	*out = append(*out, tagArrayLong)
	for _, v := range arr {
		if err := marshalInto(out, v); err != nil {
			return err
		}
	}
	*out = append(*out, tagTerminator)
	return nil
}

func marshalMap(out *[]byte, m Map) error {
	n := len(m)
	if n < 15 {
		*out = append(*out, tagMapLo+byte(n*2))
		for _, e := range m {
			if err := marshalInto(out, e.Key); err != nil {
				return err
			}
			if err := marshalInto(out, e.Value); err != nil {
				return err
			}
		}
		return nil
	}
	*out = append(*out, tagMapLong)
	for _, e := range m {
		if err := marshalInto(out, e.Key); err != nil {
			return err
		}
		if err := marshalInto(out, e.Value); err != nil {
			return err
		}
	}
	*out = append(*out, tagTerminator)
	return nil
}

// Unmarshal decodes a single value starting at the front of data and
// returns the value together with the number of bytes consumed.
func Unmarshal(data []byte) (interface{}, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("opack: empty input")
	}
	tag := data[0]
	switch {
	case tag == tagNull:
		return nil, 1, nil
	case tag == tagTrue:
		return true, 1, nil
	case tag == tagFalse:
		return false, 1, nil
	case tag >= tagSmallIntLo && tag <= tagSmallIntHi:
		return int64(tag - tagSmallIntLo), 1, nil
	case tag == tagInt8:
		if len(data) < 2 {
			return nil, 0, fmt.Errorf("opack: truncated int8")
		}
		return int64(int8(data[1])), 2, nil
	case tag == tagInt16:
		if len(data) < 3 {
			return nil, 0, fmt.Errorf("opack: truncated int16")
		}
		return int64(int16(binary.LittleEndian.Uint16(data[1:3]))), 3, nil
	case tag == tagInt32:
		if len(data) < 5 {
			return nil, 0, fmt.Errorf("opack: truncated int32")
		}
		return int64(int32(binary.LittleEndian.Uint32(data[1:5]))), 5, nil
	case tag == tagInt64:
		if len(data) < 9 {
			return nil, 0, fmt.Errorf("opack: truncated int64")
		}
		u := binary.LittleEndian.Uint64(data[1:9])
		return decodeWideInt(u), 9, nil
	case tag == tagFloat64:
		if len(data) < 9 {
			return nil, 0, fmt.Errorf("opack: truncated float64")
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data[1:9])), 9, nil
	case tag >= tagStringLo && tag <= tagStringHi:
		n := int(tag - tagStringLo)
		if len(data) < 1+n {
			return nil, 0, fmt.Errorf("opack: truncated inline string")
		}
		return string(data[1 : 1+n]), 1 + n, nil
	case tag == tagStringU8, tag == tagStringU16, tag == tagStringU24, tag == tagStringU32:
		n, hdr, err := readLen(tag, data, tagStringU8, tagStringU16, tagStringU24, tagStringU32)
		if err != nil {
			return nil, 0, err
		}
		if len(data) < hdr+n {
			return nil, 0, fmt.Errorf("opack: truncated string")
		}
		return string(data[hdr : hdr+n]), hdr + n, nil
	case tag >= tagBytesLo && tag <= tagBytesHi:
		n := int(tag - tagBytesLo)
		if len(data) < 1+n {
			return nil, 0, fmt.Errorf("opack: truncated inline bytes")
		}
		return Bytes(data[1 : 1+n]), 1 + n, nil
	case tag == tagBytesU8, tag == tagBytesU16, tag == tagBytesU32:
		n, hdr, err := readLen(tag, data, tagBytesU8, tagBytesU16, 0, tagBytesU32)
		if err != nil {
			return nil, 0, err
		}
		if len(data) < hdr+n {
			return nil, 0, fmt.Errorf("opack: truncated bytes")
		}
		return Bytes(data[hdr : hdr+n]), hdr + n, nil
	case tag == tagArrayLong:
		return unmarshalArray(data, -1, true)
	case tag >= tagArrayLo && tag <= tagArrayHi:
		return unmarshalArray(data, int(tag-tagArrayLo), false)
	case tag == tagMapLong:
		return unmarshalMap(data, -1, true)
	case tag >= tagMapLo && tag <= tagMapHi:
		return unmarshalMap(data, int(tag-tagMapLo)/2, false)
	default:
		return nil, 0, fmt.Errorf("opack: unknown tag 0x%02x", tag)
	}
}

// decodeWideInt reinterprets an encoded 64-bit pattern as int64; a
// pattern above math.MaxInt64 decodes as a negative value, and
// uint64(v) recovers the original bits.
func decodeWideInt(u uint64) int64 {
	return int64(u)
}

func readLen(tag byte, data []byte, u8, u16, u24, u32 byte) (n int, headerLen int, err error) {
	switch tag {
	case u8:
		if len(data) < 2 {
			return 0, 0, fmt.Errorf("opack: truncated u8 length")
		}
		return int(data[1]), 2, nil
	case u16:
		if len(data) < 3 {
			return 0, 0, fmt.Errorf("opack: truncated u16 length")
		}
		return int(binary.LittleEndian.Uint16(data[1:3])), 3, nil
	case u24:
		if len(data) < 4 {
			return 0, 0, fmt.Errorf("opack: truncated u24 length")
		}
		return int(data[1]) | int(data[2])<<8 | int(data[3])<<16, 4, nil
	case u32:
		if len(data) < 5 {
			return 0, 0, fmt.Errorf("opack: truncated u32 length")
		}
		return int(binary.LittleEndian.Uint32(data[1:5])), 5, nil
	}
	return 0, 0, fmt.Errorf("opack: unrecognized length tag 0x%02x", tag)
}

func unmarshalArray(data []byte, count int, terminated bool) (interface{}, int, error) {
	offset := 1
	var out []interface{}
	if !terminated {
		for i := 0; i < count; i++ {
			v, n, err := Unmarshal(data[offset:])
			if err != nil {
				return nil, 0, err
			}
			out = append(out, v)
			offset += n
		}
		return out, offset, nil
	}
	for {
		if offset >= len(data) {
			return nil, 0, fmt.Errorf("opack: unterminated array")
		}
		if data[offset] == tagTerminator {
			offset++
			break
		}
		v, n, err := Unmarshal(data[offset:])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
		offset += n
	}
	return out, offset, nil
}

func unmarshalMap(data []byte, count int, terminated bool) (interface{}, int, error) {
	offset := 1
	var out Map
	if !terminated {
		for i := 0; i < count; i++ {
			k, n, err := Unmarshal(data[offset:])
			if err != nil {
				return nil, 0, err
			}
			offset += n
			v, n2, err := Unmarshal(data[offset:])
			if err != nil {
				return nil, 0, err
			}
			offset += n2
			out = append(out, MapEntry{Key: k, Value: v})
		}
		return out, offset, nil
	}
	for {
		if offset >= len(data) {
			return nil, 0, fmt.Errorf("opack: unterminated map")
		}
		if data[offset] == tagTerminator {
			offset++
			break
		}
		k, n, err := Unmarshal(data[offset:])
		if err != nil {
			return nil, 0, err
		}
		offset += n
		v, n2, err := Unmarshal(data[offset:])
		if err != nil {
			return nil, 0, err
		}
		offset += n2
		out = append(out, MapEntry{Key: k, Value: v})
	}
	return out, offset, nil
}
