package meshcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// CounterCrypt implements the mesh's Event/Command payload cipher: AES-128
// in counter mode, with the initial counter block A built from the frame's
// relay_id and timestamp rather than a random nonce. It is its own inverse,
// so the same call both encrypts and decrypts.
//
// A[0]=0x01, A[5]=0x01 iff isCommand, A[6:10]=relay_id, A[10:14]=timestamp
// (big-endian), A[15]=1 (the 1-based block counter; subsequent blocks
// increment the big-endian counter formed by the full 16-byte block, which
// is exactly what crypto/cipher's CTR implementation does starting from
// this initial block).
func CounterCrypt(key Key16, relayID [4]byte, timestamp uint32, isCommand bool, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("meshcrypto: new cipher: %w", err)
	}

	var a [16]byte
	a[0] = 0x01
	if isCommand {
		a[5] = 0x01
	}
	copy(a[6:10], relayID[:])
	a[10] = byte(timestamp >> 24)
	a[11] = byte(timestamp >> 16)
	a[12] = byte(timestamp >> 8)
	a[13] = byte(timestamp)
	a[15] = 0x01

	out := make([]byte, len(data))
	stream := cipher.NewCTR(block, a[:])
	stream.XORKeyStream(out, data)
	return out, nil
}
