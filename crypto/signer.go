package crypto

import "crypto/ed25519"

// PubKey is a validator's public key, as carried on Validator (spec §3).
type PubKey = ed25519.PublicKey

// PrivKey is a validator's private key, used only by test helpers to
// produce valid commit signatures.
type PrivKey = ed25519.PrivateKey

// GenKey deterministically derives an ed25519 keypair from a seed, for
// reproducible test fixtures (committees, commits).
func GenKey(seed byte) (PubKey, PrivKey) {
	var seedBuf [ed25519.SeedSize]byte
	for i := range seedBuf {
		seedBuf[i] = seed
	}
	priv := ed25519.NewKeyFromSeed(seedBuf[:])
	return priv.Public().(ed25519.PublicKey), priv
}

// Sign produces an ed25519 signature over msg.
func Sign(priv PrivKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// Verify reports whether sig is a valid ed25519 signature of msg under pub.
func Verify(pub PubKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}
