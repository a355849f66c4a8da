package mrp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		Type:       TypeDeviceInfo,
		Identifier: "req-1",
		Payload:    DeviceInfo(ClientInfo{Name: "go-mrp-remote", DeviceClass: "4"}),
	}
	wire := Encode(env)
	decoded, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, env.Type, decoded.Type)
	assert.Equal(t, env.Identifier, decoded.Identifier)
	assert.Equal(t, env.Payload, decoded.Payload)
}

func TestCryptoPairingEnvelopeOmitsIdentifier(t *testing.T) {
	env := Envelope{
		Type:    TypeCryptoPairing,
		Payload: CryptoPairing(CryptoPairingData{Data: []byte("tlv-bytes")}),
	}
	wire := Encode(env)
	decoded, err := Decode(wire)
	require.NoError(t, err)
	assert.Empty(t, decoded.Identifier)
	data, err := DecodeCryptoPairing(decoded.Payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("tlv-bytes"), data.Data)
}

func TestDeviceInfoRoundTrip(t *testing.T) {
	payload := DeviceInfo(ClientInfo{Name: "living room remote", DeviceClass: "4"})
	env := Envelope{Type: TypeDeviceInfo, Identifier: "id-1", Payload: payload}
	decoded, err := Decode(Encode(env))
	require.NoError(t, err)
	info, err := DecodeDeviceInfo(decoded.Payload)
	require.NoError(t, err)
	assert.Equal(t, "living room remote", info.Name)
}

func TestDecodeSetStateSplitsFourUpdateCategories(t *testing.T) {
	var payload []byte
	payload = appendBytesField(payload, 1, []byte("now-playing"))
	payload = appendBytesField(payload, 2, []byte("supported-commands"))
	payload = appendBytesField(payload, 3, []byte("playback-queue"))
	payload = appendBytesField(payload, 4, []byte("keyboard"))

	decoded, err := DecodeSetState(payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("now-playing"), decoded.NowPlayingInfo)
	assert.Equal(t, []byte("supported-commands"), decoded.SupportedCommands)
	assert.Equal(t, []byte("playback-queue"), decoded.PlaybackQueue)
	assert.Equal(t, []byte("keyboard"), decoded.KeyboardMessage)
	assert.Equal(t, payload, decoded.RawPayload)
}

func TestDecodeSetStateLeavesAbsentCategoriesNil(t *testing.T) {
	var payload []byte
	payload = appendBytesField(payload, 2, []byte("supported-commands"))

	decoded, err := DecodeSetState(payload)
	require.NoError(t, err)
	assert.Nil(t, decoded.NowPlayingInfo)
	assert.Equal(t, []byte("supported-commands"), decoded.SupportedCommands)
	assert.Nil(t, decoded.PlaybackQueue)
	assert.Nil(t, decoded.KeyboardMessage)
}

func TestHIDEventPayloadLayout(t *testing.T) {
	page, usageCode, ok := Usage(KeySelect)
	require.True(t, ok)
	assert.Equal(t, uint16(1), page)
	assert.Equal(t, uint16(0x89), usageCode)

	payload := HIDEventPayload(page, usageCode, true)
	require.Len(t, payload, 8+35+2+2+2+11)
	assert.Equal(t, []byte{0x00, 0x01}, payload[8+35:8+35+2])
	assert.Equal(t, []byte{0x00, 0x89}, payload[8+35+2:8+35+4])
	assert.Equal(t, []byte{0x00, 0x01}, payload[8+35+4:8+35+6])
}

func TestUnknownKeyNotResolved(t *testing.T) {
	_, _, ok := Usage(Key("nonexistent"))
	assert.False(t, ok)
}

func TestRegistryDispatchesToMatchingWaiterAndObservers(t *testing.T) {
	r := NewRegistry()
	var observed []Envelope
	r.Observe(func(e Envelope) { observed = append(observed, e) })

	filter := TypeDeviceInfo
	w := r.Await(&filter)

	r.Dispatch(Envelope{Type: TypeSetState})
	r.Dispatch(Envelope{Type: TypeDeviceInfo, Identifier: "match"})

	env, err := w.Wait()
	require.NoError(t, err)
	assert.Equal(t, "match", env.Identifier)
	require.Len(t, observed, 2)
}

func TestRegistryNilFilterMatchesNextEnvelope(t *testing.T) {
	r := NewRegistry()
	w := r.Await(nil)
	r.Dispatch(Envelope{Type: TypeSetState, Identifier: "whatever"})
	env, err := w.Wait()
	require.NoError(t, err)
	assert.Equal(t, "whatever", env.Identifier)
}

func TestRegistryCloseWithErrorFailsPendingWaiters(t *testing.T) {
	r := NewRegistry()
	w := r.Await(nil)
	r.CloseWithError(assertClosedErr)
	_, err := w.Wait()
	assert.ErrorIs(t, err, assertClosedErr)
}

func TestRegistryCancelFailsWithTimeout(t *testing.T) {
	r := NewRegistry()
	w := r.Await(nil)
	done := make(chan struct{})
	go func() {
		r.Cancel(w)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cancel did not complete")
	}
	_, err := w.Wait()
	assert.Error(t, err)
}

var assertClosedErr = errClosed{}

type errClosed struct{}

func (errClosed) Error() string { return "connection closed" }
