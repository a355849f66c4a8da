// Package credentials defines the durable credential record pair-setup
// produces and its JSON serialization (spec §3 Credential record, §6
// persisted credential file, §10 Data model).
package credentials

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// Credentials is the long-term key material pair-setup yields. The
// signing key pair is self-consistent: PrivateKey's public half equals
// PublicKey (spec §3 invariant). Credentials are never mutated after
// creation; only destroyed by explicit user deletion.
type Credentials struct {
	ClientIdentifier  string
	ClientPrivateKey  ed25519.PrivateKey // 64-byte seed+public form
	ClientPublicKey   ed25519.PublicKey
	ServerPublicKey   ed25519.PublicKey
	ServerIdentifier  string

	// Companion holds an independent Companion-variant credential
	// record of identical shape, present only once Companion pairing
	// has also completed.
	Companion *Credentials
}

// jsonShape mirrors spec §6's persisted file exactly: hex-encoded key
// material plus identifier strings, optionally nested under "companion".
type jsonShape struct {
	ClientID  string     `json:"clientId"`
	ClientLTSK string    `json:"clientLTSK"`
	ClientLTPK string    `json:"clientLTPK"`
	ServerLTPK string    `json:"serverLTPK"`
	ServerID  string     `json:"serverId"`
	Companion *jsonShape `json:"companion,omitempty"`
}

func (c *Credentials) toJSONShape() *jsonShape {
	if c == nil {
		return nil
	}
	seed := c.ClientPrivateKey
	if len(seed) == ed25519.PrivateKeySize {
		seed = seed[:ed25519.SeedSize]
	}
	return &jsonShape{
		ClientID:   c.ClientIdentifier,
		ClientLTSK: hex.EncodeToString(seed),
		ClientLTPK: hex.EncodeToString(c.ClientPublicKey),
		ServerLTPK: hex.EncodeToString(c.ServerPublicKey),
		ServerID:   c.ServerIdentifier,
		Companion:  c.Companion.toJSONShape(),
	}
}

func fromJSONShape(j *jsonShape) (*Credentials, error) {
	if j == nil {
		return nil, nil
	}
	seed, err := hex.DecodeString(j.ClientLTSK)
	if err != nil {
		return nil, fmt.Errorf("credentials: decode clientLTSK: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("credentials: clientLTSK must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	clientPub, err := hex.DecodeString(j.ClientLTPK)
	if err != nil {
		return nil, fmt.Errorf("credentials: decode clientLTPK: %w", err)
	}
	serverPub, err := hex.DecodeString(j.ServerLTPK)
	if err != nil {
		return nil, fmt.Errorf("credentials: decode serverLTPK: %w", err)
	}
	companion, err := fromJSONShape(j.Companion)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		ClientIdentifier: j.ClientID,
		ClientPrivateKey: ed25519.NewKeyFromSeed(seed),
		ClientPublicKey:  ed25519.PublicKey(clientPub),
		ServerPublicKey:  ed25519.PublicKey(serverPub),
		ServerIdentifier: j.ServerID,
		Companion:        companion,
	}, nil
}

// MarshalJSON renders the credential record in the §6 wire shape.
func (c *Credentials) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toJSONShape())
}

// UnmarshalJSON parses the §6 wire shape into c.
func (c *Credentials) UnmarshalJSON(data []byte) error {
	var j jsonShape
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	parsed, err := fromJSONShape(&j)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

// Store persists and retrieves a Credentials record. The library's
// core never needs more than the file-backed implementation below;
// Store exists so callers (a CLI, a larger application) can supply
// their own backing store.
type Store interface {
	Load() (*Credentials, error)
	Save(*Credentials) error
}

// FileStore is a Store backed by a single JSON file on disk.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("credentials: parse %s: %w", f.Path, err)
	}
	return &c, nil
}

func (f FileStore) Save(c *Credentials) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o600)
}
