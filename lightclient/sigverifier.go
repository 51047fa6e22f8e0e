package lightclient

import (
	"encoding/binary"

	"github.com/chainkit/lightclient/crypto"
)

// SignatureVerifier is the external collaborator (spec §6) that checks a
// single validator's signature over a vote's canonical sign-bytes.
type SignatureVerifier interface {
	Verify(pub crypto.PubKey, msg, sig []byte) bool
}

// DefaultSignatureVerifier delegates to the local crypto package's
// ed25519 verification.
type DefaultSignatureVerifier struct{}

var _ SignatureVerifier = DefaultSignatureVerifier{}

func (DefaultSignatureVerifier) Verify(pub crypto.PubKey, msg, sig []byte) bool {
	return crypto.Verify(pub, msg, sig)
}

// voteSignBytes constructs the canonical message a validator signs for one
// CommitSig entry (spec §6): a domain tag, then height, round, block id (or
// empty for a Nil vote), timestamp, and chain id, concatenated in that
// order.
// VoteSignBytes exposes voteSignBytes for Io implementations that need to
// produce or check the same canonical sign-bytes outside this package.
func VoteSignBytes(chainID string, height Height, round int32, blockID BlockID, flag SignerFlag, ts int64) []byte {
	return voteSignBytes(chainID, height, round, blockID, flag, ts)
}

func voteSignBytes(chainID string, height Height, round int32, blockID BlockID, flag SignerFlag, ts int64) []byte {
	const domainPrecommit = "Precommit"

	buf := make([]byte, 0, 128)
	buf = append(buf, []byte(domainPrecommit)...)
	buf = appendUint64(buf, uint64(height))
	buf = appendInt32(buf, round)
	if flag == FlagCommit {
		buf = append(buf, blockID.Hash[:]...)
	}
	// FlagNil carries no block id, matching spec §4.2 step 1: the
	// synthesized vote's block_id is None for a Nil signature.
	buf = appendInt64(buf, ts)
	buf = append(buf, []byte(chainID)...)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendInt32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func appendInt64(buf []byte, v int64) []byte {
	return appendUint64(buf, uint64(v))
}
