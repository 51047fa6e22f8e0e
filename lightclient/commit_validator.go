package lightclient

// CommitValidator is the capability that implements predicate 4 of spec
// §4.1: structural validation of a commit against the validator set it was
// collected for.
type CommitValidator interface {
	ValidateCommit(vs *ValidatorSet, commit *Commit) error
}

// DefaultCommitValidator checks commit length, validator membership, and
// duplicate addresses.
type DefaultCommitValidator struct{}

var _ CommitValidator = DefaultCommitValidator{}

func (DefaultCommitValidator) ValidateCommit(vs *ValidatorSet, commit *Commit) error {
	if len(commit.Signatures) != vs.Len() {
		return newVerificationError(KindInvalidCommit,
			"commit has %d signatures, validator set has %d members",
			len(commit.Signatures), vs.Len())
	}

	seen := make(map[Address]struct{}, len(commit.Signatures))
	for _, sig := range commit.Signatures {
		if sig.Flag == FlagAbsent {
			continue
		}
		if _, dup := seen[sig.ValidatorAddress]; dup {
			return newVerificationError(KindDuplicateValidator,
				"validator %x signs more than once in commit", sig.ValidatorAddress)
		}
		seen[sig.ValidatorAddress] = struct{}{}
		// A commit must only carry signatures from members of the set it
		// was collected for. Tallying against a different (trusted) set in
		// voting_power.go skips non-members instead.
		if _, ok := vs.Validator(sig.ValidatorAddress); !ok {
			return newVerificationError(KindInvalidCommit,
				"validator %x in commit is not a member of the validator set", sig.ValidatorAddress)
		}
	}
	return nil
}
