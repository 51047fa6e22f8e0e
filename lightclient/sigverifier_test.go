package lightclient

import (
	"testing"
	"time"

	"github.com/chainkit/lightclient/crypto"
)

func TestDefaultSignatureVerifier_RoundTrip(t *testing.T) {
	pub, priv := crypto.GenKey(1)
	v := DefaultSignatureVerifier{}

	msg := voteSignBytes("chain-1", 10, 0, BlockID{Hash: Hash{1, 2, 3}}, FlagCommit, time.Now().UnixNano())
	sig := crypto.Sign(priv, msg)

	if !v.Verify(pub, msg, sig) {
		t.Fatalf("valid signature rejected")
	}
}

func TestDefaultSignatureVerifier_RejectsTamperedMessage(t *testing.T) {
	pub, priv := crypto.GenKey(1)
	v := DefaultSignatureVerifier{}

	msg := voteSignBytes("chain-1", 10, 0, BlockID{Hash: Hash{1, 2, 3}}, FlagCommit, 1000)
	sig := crypto.Sign(priv, msg)

	tampered := voteSignBytes("chain-1", 11, 0, BlockID{Hash: Hash{1, 2, 3}}, FlagCommit, 1000)
	if v.Verify(pub, tampered, sig) {
		t.Fatalf("signature verified against a different message")
	}
}

func TestVoteSignBytes_NilCarriesNoBlockID(t *testing.T) {
	commit := voteSignBytes("chain-1", 10, 0, BlockID{Hash: Hash{9}}, FlagCommit, 1000)
	nilVote := voteSignBytes("chain-1", 10, 0, BlockID{Hash: Hash{9}}, FlagNil, 1000)
	if len(commit) == len(nilVote) {
		t.Fatalf("expected nil vote sign-bytes to omit the block id")
	}
}
