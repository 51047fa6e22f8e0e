package main

import (
	"context"
	"time"

	"github.com/chainkit/lightclient/crypto"
	"github.com/chainkit/lightclient/lightclient"
)

// demoChain is a self-signed, in-memory chain used to exercise the
// Supervisor end to end when no real RPC client is wired (the wire
// protocol and RPC client are out of scope; see SPEC_FULL.md's
// Non-goals). It is not a substitute for a real Io implementation.
type demoChain struct {
	chainID    string
	validators []crypto.PrivKey
	blocks     map[lightclient.Height]*lightclient.LightBlock
	highest    lightclient.Height
}

func newDemoChain(chainID string, numValidators int, numBlocks int) *demoChain {
	dc := &demoChain{chainID: chainID, blocks: make(map[lightclient.Height]*lightclient.LightBlock)}

	var vals []lightclient.Validator
	for i := 0; i < numValidators; i++ {
		pub, priv := crypto.GenKey(byte(i + 1))
		dc.validators = append(dc.validators, priv)
		vals = append(vals, lightclient.Validator{
			Address:     lightclient.AddressFromPubKey(pub),
			VotingPower: 100,
			PubKey:      pub,
		})
	}
	vs := &lightclient.ValidatorSet{Validators: vals}
	hasher := lightclient.DefaultHasher{}

	var lastCommitHash lightclient.Hash
	for h := lightclient.Height(1); h <= lightclient.Height(numBlocks); h++ {
		header := &lightclient.Header{
			ChainID:            chainID,
			Height:             h,
			Time:               time.Now().Add(-time.Duration(numBlocks-int(h)+1) * time.Second),
			ValidatorsHash:     hasher.HashValidatorSet(vs),
			NextValidatorsHash: hasher.HashValidatorSet(vs),
			LastCommitHash:     lastCommitHash,
		}
		blockID := lightclient.BlockID{Hash: hasher.HashHeader(header)}

		commit := &lightclient.Commit{Height: h, Round: 0, BlockID: blockID}
		ts := header.Time
		for i, priv := range dc.validators {
			msg := lightclient.VoteSignBytes(chainID, h, 0, blockID, lightclient.FlagCommit, ts.UnixNano())
			sig := crypto.Sign(priv, msg)
			commit.Signatures = append(commit.Signatures, lightclient.CommitSig{
				Flag:             lightclient.FlagCommit,
				ValidatorAddress: vals[i].Address,
				Timestamp:        ts,
				Signature:        sig,
			})
		}

		dc.blocks[h] = &lightclient.LightBlock{
			SignedHeader:   &lightclient.SignedHeader{Header: header, Commit: commit},
			Validators:     vs,
			NextValidators: vs,
			Provider:       lightclient.PeerID("demo"),
		}
		lastCommitHash = blockID.Hash
		dc.highest = h
	}
	return dc
}

func (dc *demoChain) FetchLightBlock(_ context.Context, _ lightclient.PeerID, at lightclient.AtHeight) (*lightclient.LightBlock, error) {
	h := at.Height
	if at.Highest {
		h = dc.highest
	}
	block, ok := dc.blocks[h]
	if !ok {
		return nil, lightclient.NewIoError(lightclient.IoInvalidHeight, "no demo block at height %d", h)
	}
	return block, nil
}

type demoEvidenceReporter struct{}

func (demoEvidenceReporter) Report(_ context.Context, evidence *lightclient.Evidence, peer lightclient.PeerID) (lightclient.TxHash, error) {
	return lightclient.TxHash{}, nil
}
