package mrp

import "time"

// Key identifies a single button this client can synthesize as an HID
// event (spec §4.9 key table).
type Key string

const (
	KeyUp         Key = "up"
	KeyDown       Key = "down"
	KeyLeft       Key = "left"
	KeyRight      Key = "right"
	KeySelect     Key = "select"
	KeyMenu       Key = "menu"
	KeyHome       Key = "home"
	KeyTopMenu    Key = "top_menu"
	KeyPlayPause  Key = "play_pause"
	KeyVolumeUp   Key = "volume_up"
	KeyVolumeDown Key = "volume_down"
	KeySleep      Key = "sleep"
)

type usage struct {
	page  uint16
	usage uint16
}

var keyUsages = map[Key]usage{
	KeyUp:         {1, 0x8C},
	KeyDown:       {1, 0x8D},
	KeyLeft:       {1, 0x8B},
	KeyRight:      {1, 0x8A},
	KeySelect:     {1, 0x89},
	KeyMenu:       {1, 0x86},
	KeyHome:       {12, 0x40},
	KeyTopMenu:    {12, 0x60},
	KeyPlayPause:  {12, 0xB0},
	KeyVolumeUp:   {12, 0xE9},
	KeyVolumeDown: {12, 0xEA},
	KeySleep:      {1, 0x82},
}

// hidHeader is the fixed 35-byte constant preceding usage-page/usage/
// pressed in every HID event payload (spec §4.9). Its bytes carry no
// documented meaning beyond matching what the peer expects.
var hidHeader = [35]byte{
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00,
}

// hidFooter is the fixed 11-byte constant following the
// usage-page/usage/pressed fields.
var hidFooter = [11]byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// HIDEventPayload builds the raw byte layout of a single HID event:
// 8-byte timestamp, 35-byte header, usage-page, usage, pressed flag,
// 11-byte footer, all big-endian for the three payload shorts (spec
// §4.9). The timestamp is the wall-clock time in nanoseconds
// (time.Now().UnixNano()) rather than the source's fixed constant, per
// SPEC_FULL's resolution of the timestamp Open Question.
func HIDEventPayload(page, usageCode uint16, down bool) []byte {
	buf := make([]byte, 0, 8+35+2+2+2+11)
	var ts [8]byte
	putUint64BE(ts[:], uint64(time.Now().UnixNano()))
	buf = append(buf, ts[:]...)
	buf = append(buf, hidHeader[:]...)
	buf = appendUint16BE(buf, page)
	buf = appendUint16BE(buf, usageCode)
	if down {
		buf = appendUint16BE(buf, 1)
	} else {
		buf = appendUint16BE(buf, 0)
	}
	buf = append(buf, hidFooter[:]...)
	return buf
}

// SendHIDEvent builds an outbound SendHIDEvent (8) submessage wrapping
// an HID event payload as a single opaque bytes field.
func SendHIDEvent(page, usageCode uint16, down bool) []byte {
	var b []byte
	b = appendBytesField(b, 1, HIDEventPayload(page, usageCode, down))
	return b
}

func appendUint16BE(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

func putUint64BE(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// KeyPressDelay is the minimum gap a normal key press holds between
// its down and up SendHIDEvent messages (spec §4.9).
const KeyPressDelay = 50 * time.Millisecond

// LongKeyPressDelay is the gap a long-press variant holds instead.
const LongKeyPressDelay = 1000 * time.Millisecond

// Usage resolves a Key to its usage-page/usage pair, and whether the
// key is recognized.
func Usage(k Key) (page, usageCode uint16, ok bool) {
	u, ok := keyUsages[k]
	return u.page, u.usage, ok
}
