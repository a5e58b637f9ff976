// Package meshcrypto implements the mesh's AES-128 key derivation and the
// CMAC-based MIC used to authenticate MeshPackets.
package meshcrypto

import (
	"crypto/aes"
	"encoding/hex"
	"fmt"

	"github.com/jacobsa/crypto/cmac"
)

// Key16 is a 128 bit AES key, hex-encoded on the wire (YAML/TOML config).
type Key16 [16]byte

// NullKey16 is the all-zero key, used as the "not configured" sentinel for
// the legacy signing_key override.
var NullKey16 = Key16{}

// String returns the hex encoding of the key.
func (k Key16) String() string {
	return hex.EncodeToString(k[:])
}

// IsNull reports whether the key is the all-zero sentinel.
func (k Key16) IsNull() bool {
	return k == NullKey16
}

// MarshalYAML implements yaml.Marshaler.
func (k Key16) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *Key16) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return k.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key16) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = NullKey16
		return nil
	}
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("meshcrypto: invalid hex key: %w", err)
	}
	if len(b) != len(k) {
		return fmt.Errorf("meshcrypto: key must be exactly %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return nil
}

// KeyFromSlice builds a Key16 from a byte slice, requiring exactly 16 bytes.
func KeyFromSlice(b []byte) (Key16, error) {
	var k Key16
	if len(b) != len(k) {
		return k, fmt.Errorf("meshcrypto: 16 bytes are expected, got %d", len(b))
	}
	copy(k[:], b)
	return k, nil
}

// deriveBlockKey runs a single AES-128 block encryption of rootKey over a
// fixed 16-byte discriminator block, as used for both signing_key and
// encryption_key derivation.
func deriveBlockKey(rootKey Key16, discriminator [16]byte) (Key16, error) {
	block, err := aes.NewCipher(rootKey[:])
	if err != nil {
		return Key16{}, fmt.Errorf("meshcrypto: new cipher: %w", err)
	}

	var out Key16
	block.Encrypt(out[:], discriminator[:])
	return out, nil
}

// DeriveSigningKey computes signing_key = E_rootKey(0x00...).
func DeriveSigningKey(rootKey Key16) (Key16, error) {
	return deriveBlockKey(rootKey, [16]byte{})
}

// DeriveEncryptionKey computes encryption_key = E_rootKey(0x01, 0x00...).
func DeriveEncryptionKey(rootKey Key16) (Key16, error) {
	var disc [16]byte
	disc[0] = 0x01
	return deriveBlockKey(rootKey, disc)
}

// SigningKey resolves the effective signing key: the legacy override when
// it is set (non-null), else the key derived from root_key.
func SigningKey(rootKey, legacyOverride Key16) (Key16, error) {
	if !legacyOverride.IsNull() {
		return legacyOverride, nil
	}
	return DeriveSigningKey(rootKey)
}

// CalculateMIC computes CMAC-AES128(key, data) and returns the first 4
// bytes, as used for the MeshPacket MIC trailer.
func CalculateMIC(key Key16, data []byte) ([4]byte, error) {
	var mic [4]byte

	hash, err := cmac.New(key[:])
	if err != nil {
		return mic, fmt.Errorf("meshcrypto: new cmac: %w", err)
	}
	if _, err := hash.Write(data); err != nil {
		return mic, fmt.Errorf("meshcrypto: cmac write: %w", err)
	}

	sum := hash.Sum(nil)
	if len(sum) < 4 {
		return mic, fmt.Errorf("meshcrypto: cmac sum shorter than 4 bytes")
	}
	copy(mic[:], sum[0:4])
	return mic, nil
}
