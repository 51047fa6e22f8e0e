package lightclient

import (
	"time"

	"github.com/chainkit/lightclient/crypto"
)

// testChain is a small self-signed chain used across this package's
// tests: every block is consistent (hashes match, signatures verify)
// unless a test deliberately corrupts it afterward.
type testChain struct {
	chainID    string
	validators []crypto.PrivKey
	vs         *ValidatorSet
	blocks     map[Height]*LightBlock
}

func newTestChain(numValidators, numBlocks int) *testChain {
	tc := &testChain{chainID: "test-chain", blocks: make(map[Height]*LightBlock)}

	var vals []Validator
	for i := 0; i < numValidators; i++ {
		pub, priv := crypto.GenKey(byte(i + 1))
		tc.validators = append(tc.validators, priv)
		vals = append(vals, Validator{
			Address:     AddressFromPubKey(pub),
			VotingPower: 100,
			PubKey:      pub,
		})
	}
	tc.vs = &ValidatorSet{Validators: vals}
	hasher := DefaultHasher{}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var lastCommitHash Hash
	for h := Height(1); h <= Height(numBlocks); h++ {
		header := &Header{
			ChainID:            tc.chainID,
			Height:             h,
			Time:               base.Add(time.Duration(h) * time.Minute),
			ValidatorsHash:     hasher.HashValidatorSet(tc.vs),
			NextValidatorsHash: hasher.HashValidatorSet(tc.vs),
			LastCommitHash:     lastCommitHash,
		}
		blockID := BlockID{Hash: hasher.HashHeader(header)}
		commit := tc.signAll(h, blockID, header.Time)

		tc.blocks[h] = &LightBlock{
			SignedHeader:   &SignedHeader{Header: header, Commit: commit},
			Validators:     tc.vs,
			NextValidators: tc.vs,
			Provider:       PeerID("test"),
		}
		lastCommitHash = blockID.Hash
	}
	return tc
}

// signAll builds a Commit with every validator committing the given
// blockID, except those listed in absent (by validator index), which get
// FlagAbsent instead.
func (tc *testChain) signAll(h Height, blockID BlockID, ts time.Time, absent ...int) *Commit {
	isAbsent := make(map[int]bool, len(absent))
	for _, i := range absent {
		isAbsent[i] = true
	}
	commit := &Commit{Height: h, Round: 0, BlockID: blockID}
	for i, priv := range tc.validators {
		if isAbsent[i] {
			commit.Signatures = append(commit.Signatures, CommitSig{
				Flag:             FlagAbsent,
				ValidatorAddress: tc.vs.Validators[i].Address,
			})
			continue
		}
		msg := voteSignBytes(tc.chainID, h, 0, blockID, FlagCommit, ts.UnixNano())
		commit.Signatures = append(commit.Signatures, CommitSig{
			Flag:             FlagCommit,
			ValidatorAddress: tc.vs.Validators[i].Address,
			Timestamp:        ts,
			Signature:        crypto.Sign(priv, msg),
		})
	}
	return commit
}

func (tc *testChain) block(h Height) *LightBlock { return tc.blocks[h] }

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }
