package lightclient

import "time"

// Predicates groups the pure, stateless checks the Verifier runs in fixed
// order (spec §4.1). It is a capability interface so tests can inject
// mocks without the production Verifier losing its default wiring (spec
// §9: "keep the seams, model them as capability interfaces").
type Predicates interface {
	ValidatorSetsMatch(untrusted *LightBlock, hasher Hasher) error
	NextValidatorsMatch(untrusted *LightBlock, hasher Hasher) error
	HeaderMatchesCommit(untrusted *LightBlock, hasher Hasher) error
	IsWithinTrustPeriod(trusted *LightBlock, trustingPeriod time.Duration, now time.Time) error
	IsHeaderFromPast(untrusted *LightBlock, clockDrift time.Duration, now time.Time) error
	IsMonotonicBFTTime(untrusted, trusted *LightBlock) error
	IsMonotonicHeight(untrusted, trusted *LightBlock) error
	ValidNextValidatorSet(untrusted, trusted *LightBlock, hasher Hasher) error
}

// DefaultPredicates is the canonical implementation of spec §4.1.
type DefaultPredicates struct{}

var _ Predicates = DefaultPredicates{}

// ValidatorSetsMatch implements predicate 1: untrusted.validators.hash ==
// untrusted.signed_header.validators_hash.
func (DefaultPredicates) ValidatorSetsMatch(untrusted *LightBlock, hasher Hasher) error {
	got := hasher.HashValidatorSet(untrusted.Validators)
	want := untrusted.SignedHeader.Header.ValidatorsHash
	if got != want {
		return newVerificationError(KindValidatorSetMismatch,
			"validator set hash %x does not match header's validators_hash %x", got, want)
	}
	return nil
}

// NextValidatorsMatch implements predicate 2.
func (DefaultPredicates) NextValidatorsMatch(untrusted *LightBlock, hasher Hasher) error {
	got := hasher.HashValidatorSet(untrusted.NextValidators)
	want := untrusted.SignedHeader.Header.NextValidatorsHash
	if got != want {
		return newVerificationError(KindNextValidatorSetMismatch,
			"next validator set hash %x does not match header's next_validators_hash %x", got, want)
	}
	return nil
}

// HeaderMatchesCommit implements predicate 3.
func (DefaultPredicates) HeaderMatchesCommit(untrusted *LightBlock, hasher Hasher) error {
	got := hasher.HashHeader(untrusted.SignedHeader.Header)
	want := untrusted.SignedHeader.Commit.BlockID.Hash
	if got != want {
		return newVerificationError(KindHeaderCommitMismatch,
			"header hash %x does not match commit.block_id.hash %x", got, want)
	}
	return nil
}

// IsWithinTrustPeriod implements predicate 5: trusted.header.time +
// trusting_period > now.
func (DefaultPredicates) IsWithinTrustPeriod(trusted *LightBlock, trustingPeriod time.Duration, now time.Time) error {
	expiry := trusted.SignedHeader.Header.Time.Add(trustingPeriod)
	if !expiry.After(now) {
		return newVerificationError(KindExpired,
			"trusted header at height %d expired at %s, now is %s",
			trusted.Height(), expiry, now)
	}
	return nil
}

// IsHeaderFromPast implements predicate 6: untrusted.header.time < now +
// clock_drift.
func (DefaultPredicates) IsHeaderFromPast(untrusted *LightBlock, clockDrift time.Duration, now time.Time) error {
	bound := now.Add(clockDrift)
	if !untrusted.SignedHeader.Header.Time.Before(bound) {
		return newVerificationError(KindHeaderFromFuture,
			"untrusted header time %s is not before now+clock_drift %s",
			untrusted.SignedHeader.Header.Time, bound)
	}
	return nil
}

// IsMonotonicBFTTime implements predicate 7.
func (DefaultPredicates) IsMonotonicBFTTime(untrusted, trusted *LightBlock) error {
	ut := untrusted.SignedHeader.Header.Time
	tt := trusted.SignedHeader.Header.Time
	if !ut.After(tt) {
		return newVerificationError(KindNonMonotonicBFTTime,
			"untrusted header time %s is not after trusted header time %s", ut, tt)
	}
	return nil
}

// IsMonotonicHeight implements predicate 8.
func (DefaultPredicates) IsMonotonicHeight(untrusted, trusted *LightBlock) error {
	if untrusted.Height() <= trusted.Height() {
		return newVerificationError(KindNonMonotonicHeight,
			"untrusted height %d is not greater than trusted height %d",
			untrusted.Height(), trusted.Height())
	}
	return nil
}

// ValidNextValidatorSet implements predicate 9, run only when
// untrusted.height == trusted.height + 1: untrusted.validators.hash ==
// trusted.next_validators_hash.
func (DefaultPredicates) ValidNextValidatorSet(untrusted, trusted *LightBlock, hasher Hasher) error {
	got := hasher.HashValidatorSet(untrusted.Validators)
	want := trusted.SignedHeader.Header.NextValidatorsHash
	if got != want {
		return newVerificationError(KindInvalidNextValidatorSet,
			"adjacent untrusted validator set hash %x does not match trusted next_validators_hash %x",
			got, want)
	}
	return nil
}
