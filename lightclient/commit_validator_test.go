package lightclient

import "testing"

func TestDefaultCommitValidator_Valid(t *testing.T) {
	tc := newTestChain(4, 1)
	v := DefaultCommitValidator{}
	if err := v.ValidateCommit(tc.vs, tc.block(1).SignedHeader.Commit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultCommitValidator_WrongLength(t *testing.T) {
	tc := newTestChain(4, 1)
	v := DefaultCommitValidator{}
	commit := tc.block(1).SignedHeader.Commit
	truncated := &Commit{Height: commit.Height, Round: commit.Round, BlockID: commit.BlockID, Signatures: commit.Signatures[:2]}
	if err := v.ValidateCommit(tc.vs, truncated); err == nil {
		t.Fatalf("expected error for short commit")
	}
}

func TestDefaultCommitValidator_DuplicateValidator(t *testing.T) {
	tc := newTestChain(4, 1)
	v := DefaultCommitValidator{}
	commit := tc.block(1).SignedHeader.Commit
	// Keep the commit length equal to the set size so the duplicate check,
	// not the length check, is what rejects it.
	sigs := append([]CommitSig{}, commit.Signatures...)
	sigs[1] = sigs[0]
	dup := &Commit{
		Height: commit.Height, Round: commit.Round, BlockID: commit.BlockID,
		Signatures: sigs,
	}
	err := v.ValidateCommit(tc.vs, dup)
	if verr, ok := err.(*VerificationError); !ok || verr.Kind != KindDuplicateValidator {
		t.Fatalf("expected DuplicateValidator error, got %v", err)
	}
}

func TestDefaultCommitValidator_AllowsAbsent(t *testing.T) {
	tc := newTestChain(4, 1)
	block := tc.block(1)
	commit := tc.signAll(1, block.SignedHeader.Commit.BlockID, block.SignedHeader.Header.Time, 0)
	v := DefaultCommitValidator{}
	if err := v.ValidateCommit(tc.vs, commit); err != nil {
		t.Fatalf("unexpected error with one absent validator: %v", err)
	}
}
