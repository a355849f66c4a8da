package credentials

import (
	"crypto/ed25519"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCredentials(t *testing.T) *Credentials {
	clientPub, clientPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	serverPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return &Credentials{
		ClientIdentifier: "client-id",
		ClientPrivateKey: clientPriv,
		ClientPublicKey:  clientPub,
		ServerPublicKey:  serverPub,
		ServerIdentifier: "server-id",
	}
}

func TestJSONRoundTripWithoutCompanion(t *testing.T) {
	creds := newTestCredentials(t)

	data, err := json.Marshal(creds)
	require.NoError(t, err)

	var decoded Credentials
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, creds.ClientIdentifier, decoded.ClientIdentifier)
	assert.Equal(t, creds.ServerIdentifier, decoded.ServerIdentifier)
	assert.Equal(t, creds.ClientPublicKey, decoded.ClientPublicKey)
	assert.Equal(t, creds.ServerPublicKey, decoded.ServerPublicKey)
	assert.Equal(t, creds.ClientPrivateKey.Public(), decoded.ClientPrivateKey.Public())
	assert.Nil(t, decoded.Companion)
}

func TestJSONRoundTripWithCompanion(t *testing.T) {
	creds := newTestCredentials(t)
	creds.Companion = newTestCredentials(t)
	creds.Companion.ClientIdentifier = "companion-client-id"

	data, err := json.Marshal(creds)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"companion"`)

	var decoded Credentials
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.NotNil(t, decoded.Companion)
	assert.Equal(t, "companion-client-id", decoded.Companion.ClientIdentifier)
	assert.Equal(t, creds.Companion.ServerPublicKey, decoded.Companion.ServerPublicKey)
}

func TestUnmarshalRejectsMalformedHex(t *testing.T) {
	var decoded Credentials
	err := json.Unmarshal([]byte(`{"clientId":"x","clientLTSK":"not-hex","clientLTPK":"","serverLTPK":"","serverId":""}`), &decoded)
	assert.Error(t, err)
}

func TestUnmarshalRejectsWrongSeedLength(t *testing.T) {
	var decoded Credentials
	err := json.Unmarshal([]byte(`{"clientId":"x","clientLTSK":"aabb","clientLTPK":"","serverLTPK":"","serverId":""}`), &decoded)
	assert.Error(t, err)
}

func TestFileStoreSaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := FileStore{Path: filepath.Join(dir, "credentials.json")}

	creds := newTestCredentials(t)
	require.NoError(t, store.Save(creds))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, creds.ClientIdentifier, loaded.ClientIdentifier)
	assert.Equal(t, creds.ClientPublicKey, loaded.ClientPublicKey)
}

func TestFileStoreLoadMissingFileFails(t *testing.T) {
	store := FileStore{Path: filepath.Join(t.TempDir(), "missing.json")}
	_, err := store.Load()
	assert.Error(t, err)
}
