package mrp

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/arag0re/go-mrp-remote/mrperrors"
)

// ClientInfo is the small set of strings a DeviceInfo message
// identifies the client with (spec §4.7 MRP init, §3 connection
// options).
type ClientInfo struct {
	Name             string
	BundleIdentifier string
	DeviceClass      string
	OSVersion        string
}

// DeviceInfo builds an outbound DeviceInfo (15) submessage.
func DeviceInfo(info ClientInfo) []byte {
	var b []byte
	b = appendStringField(b, 1, info.Name)
	b = appendStringField(b, 2, info.BundleIdentifier)
	b = appendStringField(b, 5, info.DeviceClass)
	b = appendStringField(b, 15, info.OSVersion)
	return b
}

// DecodedDeviceInfo is what the peer's DeviceInfo reply surfaces to
// observers.
type DecodedDeviceInfo struct {
	Name   string
	Model  string
	Active bool
}

// DecodeDeviceInfo parses an inbound DeviceInfo (15) submessage.
func DecodeDeviceInfo(payload []byte) (DecodedDeviceInfo, error) {
	var out DecodedDeviceInfo
	err := consumeFields(payload, func(num protowire.Number, wireType protowire.Type, data []byte) int {
		switch {
		case num == 1 && wireType == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n > 0 {
				out.Name = string(v)
			}
			return n
		case num == 11 && wireType == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n > 0 {
				out.Model = string(v)
			}
			return n
		case num == 4 && wireType == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n > 0 {
				out.Active = v != 0
			}
			return n
		default:
			return -1
		}
	})
	if err != nil {
		return out, mrperrors.ProtocolViolation("%v", err)
	}
	return out, nil
}

// Media command codes for SendCommand.command (spec §4.9).
const (
	CommandPlay            = 1
	CommandPause           = 2
	CommandTogglePlayPause = 3
	CommandStop            = 4
	CommandNextTrack       = 5
	CommandPreviousTrack   = 6
	CommandSkipForward     = 18
	CommandSkipBackward    = 19
)

// SendCommand builds an outbound SendCommand (1) submessage.
func SendCommand(command uint64) []byte {
	var b []byte
	b = appendVarintField(b, 1, command)
	return b
}

// connectionState values for SetConnectionState.state; the client
// only ever sends state 2 ("connected") per spec §4.7.
const ConnectionStateConnected = 2

// SetConnectionState builds an outbound SetConnectionState (38)
// submessage.
func SetConnectionState(state uint64) []byte {
	var b []byte
	b = appendVarintField(b, 1, state)
	return b
}

// ClientUpdatesConfigOptions selects which unsolicited update
// categories the client wants to receive (spec §4.7 MRP init).
type ClientUpdatesConfigOptions struct {
	ArtworkUpdates    bool
	NowPlayingUpdates bool
	VolumeUpdates     bool
	KeyboardUpdates   bool
}

// ClientUpdatesConfig builds an outbound ClientUpdatesConfig (16)
// submessage.
func ClientUpdatesConfig(opts ClientUpdatesConfigOptions) []byte {
	var b []byte
	b = appendBoolField(b, 1, opts.ArtworkUpdates)
	b = appendBoolField(b, 2, opts.NowPlayingUpdates)
	b = appendBoolField(b, 3, opts.VolumeUpdates)
	b = appendBoolField(b, 4, opts.KeyboardUpdates)
	return b
}

// WakeDevice builds an outbound WakeDevice (41) submessage; it carries
// no fields.
func WakeDevice() []byte { return nil }

// TextInput builds an outbound TextInput (25) submessage.
func TextInput(text string) []byte {
	var b []byte
	b = appendStringField(b, 1, text)
	return b
}

// PlaybackQueueRequest builds an outbound PlaybackQueueRequest (32)
// submessage requesting location..length queue entries.
func PlaybackQueueRequest(location, length uint64) []byte {
	var b []byte
	b = appendVarintField(b, 1, location)
	b = appendVarintField(b, 2, length)
	return b
}

// GenericMessage builds an outbound, empty GenericMessage (42)
// submessage used as a flush after HID key-press pairs.
func GenericMessage() []byte { return nil }

// CryptoPairingData carries the inner pair-verify TLV8 bytes for MRP's
// CryptoPairing (34) submessage. Per spec §9 Open Question, this is
// implemented but never invoked over AirPlay; companion.Conn carries no
// MRP, so it does not use it either.
type CryptoPairingData struct {
	Status  int32
	Data    []byte
}

// CryptoPairing builds an outbound CryptoPairing (34) submessage.
// Unlike every other outbound message, the enclosing envelope must
// omit the identifier field (spec §4.9).
func CryptoPairing(d CryptoPairingData) []byte {
	var b []byte
	b = appendBytesField(b, 1, d.Data)
	if d.Status != 0 {
		b = appendVarintField(b, 5, uint64(uint32(d.Status)))
	}
	return b
}

// DecodeCryptoPairing parses an inbound CryptoPairing (34) submessage.
func DecodeCryptoPairing(payload []byte) (CryptoPairingData, error) {
	var out CryptoPairingData
	err := consumeFields(payload, func(num protowire.Number, wireType protowire.Type, data []byte) int {
		switch {
		case num == 1 && wireType == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n > 0 {
				out.Data = append([]byte{}, v...)
			}
			return n
		case num == 5 && wireType == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n > 0 {
				out.Status = int32(v)
			}
			return n
		default:
			return -1
		}
	})
	if err != nil {
		return out, mrperrors.ProtocolViolation("%v", err)
	}
	return out, nil
}

// SendButtonEvent builds an outbound SendButtonEvent (43) submessage,
// the button-level alternative to SendHIDEvent.
func SendButtonEvent(usagePage, usage uint16, down bool) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(usagePage))
	b = appendVarintField(b, 2, uint64(usage))
	b = appendBoolField(b, 3, down)
	return b
}

// DecodedSetState is what SetState (4) surfaces: each of the four
// update categories spec §4.9 documents — now-playing info, supported
// commands, playback queue, and keyboard session state — arrives as
// its own optional nested submessage, numbered from 1 in the order
// spec.md lists them (the same convention ClientUpdatesConfig's
// request flags already use for the same four categories). A nil
// field means that category was absent from this particular update;
// observers that need a category's internals decode its raw bytes
// further themselves.
type DecodedSetState struct {
	NowPlayingInfo    []byte
	SupportedCommands []byte
	PlaybackQueue     []byte
	KeyboardMessage   []byte

	RawPayload []byte
}

// DecodeSetState parses an inbound SetState (4) submessage, splitting
// it into its four documented update categories.
func DecodeSetState(payload []byte) (DecodedSetState, error) {
	out := DecodedSetState{RawPayload: append([]byte{}, payload...)}
	err := consumeFields(payload, func(num protowire.Number, wireType protowire.Type, data []byte) int {
		if wireType != protowire.BytesType {
			return -1
		}
		v, n := protowire.ConsumeBytes(data)
		if n <= 0 {
			return n
		}
		switch num {
		case 1:
			out.NowPlayingInfo = append([]byte{}, v...)
		case 2:
			out.SupportedCommands = append([]byte{}, v...)
		case 3:
			out.PlaybackQueue = append([]byte{}, v...)
		case 4:
			out.KeyboardMessage = append([]byte{}, v...)
		default:
			return -1
		}
		return n
	})
	if err != nil {
		return out, mrperrors.ProtocolViolation("%v", err)
	}
	return out, nil
}
