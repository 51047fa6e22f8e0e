package lightclient

// VotingPowerCalculator tallies signed voting power in a commit against a
// given validator set (spec §4.2).
type VotingPowerCalculator interface {
	// VotingPowerIn implements the core algorithm: verify every non-absent
	// signature and sum the voting power of those that committed.
	VotingPowerIn(sh *SignedHeader, vs *ValidatorSet, sigVerifier SignatureVerifier, threshold TrustThreshold) (Tally, error)

	// CheckEnoughTrust tallies against the trusted validator set and
	// reports NotEnoughTrust if the threshold isn't met.
	CheckEnoughTrust(sh *SignedHeader, trustedVS *ValidatorSet, sigVerifier SignatureVerifier, threshold TrustThreshold) (Tally, error)

	// CheckSignersOverlap tallies against the untrusted header's own
	// validator set and reports InsufficientSignersOverlap if strict +2/3
	// isn't met.
	CheckSignersOverlap(sh *SignedHeader, untrustedVS *ValidatorSet) (Tally, error)
}

// DefaultVotingPowerCalculator is the canonical implementation of spec
// §4.2.
type DefaultVotingPowerCalculator struct {
	SignatureVerifier SignatureVerifier
}

var _ VotingPowerCalculator = DefaultVotingPowerCalculator{}

// VotingPowerIn runs the algorithm of spec §4.2 in strict order:
//  1. Iterate commit.signatures by index, synthesizing a canonical vote
//     for each non-absent entry.
//  2. Reject duplicate validator addresses.
//  3. Skip signatures for addresses not in vs.
//  4. Verify the signature against the canonical sign-bytes.
//  5. Tally voting power for FlagCommit entries only; FlagNil is verified
//     but never tallied.
func (c DefaultVotingPowerCalculator) VotingPowerIn(sh *SignedHeader, vs *ValidatorSet, sigVerifier SignatureVerifier, threshold TrustThreshold) (Tally, error) {
	if sigVerifier == nil {
		sigVerifier = c.SignatureVerifier
	}
	if sigVerifier == nil {
		sigVerifier = DefaultSignatureVerifier{}
	}

	seen := make(map[Address]struct{}, len(sh.Commit.Signatures))
	var tallied uint64

	for _, sig := range sh.Commit.Signatures {
		if sig.Flag == FlagAbsent {
			continue
		}

		if _, dup := seen[sig.ValidatorAddress]; dup {
			return Tally{}, newVerificationError(KindDuplicateValidator,
				"validator %x signs more than once in commit", sig.ValidatorAddress)
		}
		seen[sig.ValidatorAddress] = struct{}{}

		validator, ok := vs.Validator(sig.ValidatorAddress)
		if !ok {
			// Stray signature for a validator outside this set: skip
			// (spec §4.2 step 3; open question resolved in DESIGN.md).
			continue
		}

		msg := voteSignBytes(sh.Header.ChainID, sh.Commit.Height, sh.Commit.Round, sh.Commit.BlockID, sig.Flag, sig.Timestamp.UnixNano())
		if !sigVerifier.Verify(validator.PubKey, msg, sig.Signature) {
			return Tally{}, &VerificationError{
				Kind:    KindInvalidSignature,
				Message: "signature verification failed for validator " + addrHex(sig.ValidatorAddress),
			}
		}

		if sig.Flag == FlagCommit {
			tallied += validator.VotingPower
		}
		// FlagNil: verified above, never tallied (spec §4.2 step 5).
	}

	return Tally{
		Total:          vs.TotalPower(),
		Tallied:        tallied,
		TrustThreshold: threshold,
	}, nil
}

// CheckEnoughTrust implements §4.2's derived check against the trusted
// validator set: passes iff tallied*den >= total*num.
func (c DefaultVotingPowerCalculator) CheckEnoughTrust(sh *SignedHeader, trustedVS *ValidatorSet, sigVerifier SignatureVerifier, threshold TrustThreshold) (Tally, error) {
	tally, err := c.VotingPowerIn(sh, trustedVS, sigVerifier, threshold)
	if err != nil {
		return Tally{}, err
	}
	if !tally.EnoughTrust() {
		return tally, &VerificationError{
			Kind:    KindNotEnoughTrust,
			Message: "insufficient signed voting power from trusted validator set",
			Tally:   &tally,
		}
	}
	return tally, nil
}

// CheckSignersOverlap implements §4.2's derived check against the
// untrusted header's own validator set: passes iff tallied*3 > total*2
// (strict +2/3).
func (c DefaultVotingPowerCalculator) CheckSignersOverlap(sh *SignedHeader, untrustedVS *ValidatorSet) (Tally, error) {
	tally, err := c.VotingPowerIn(sh, untrustedVS, c.SignatureVerifier, TwoThirds)
	if err != nil {
		return Tally{}, err
	}
	if tally.Tallied*3 <= tally.Total*2 {
		return tally, &VerificationError{
			Kind:    KindInsufficientSignersOverlap,
			Message: "untrusted header signed by less than +2/3 of its own validator set",
			Tally:   &tally,
		}
	}
	return tally, nil
}

func addrHex(a Address) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(a)*2)
	for i, b := range a {
		out[i*2] = hexdigits[b>>4]
		out[i*2+1] = hexdigits[b&0xf]
	}
	return string(out)
}
