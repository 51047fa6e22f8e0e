// Package crypto provides the hashing and signature primitives the
// lightclient package treats as external collaborators: canonical
// Keccak-256 hashing and the ed25519 signature scheme used by the
// reference SignatureVerifier.
package crypto

import (
	"golang.org/x/crypto/sha3"
)

// Hash is a 32-byte Keccak-256 digest.
type Hash [32]byte

// Keccak256 calculates the Keccak-256 hash of the given data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a Hash.
func Keccak256Hash(data ...[]byte) Hash {
	var h Hash
	copy(h[:], Keccak256(data...))
	return h
}
