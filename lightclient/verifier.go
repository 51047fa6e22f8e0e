package lightclient

import "time"

// Clock is the collaborator predicates 5/6 use for "now". Production code
// uses SystemClock; tests inject a fake clock for determinism (spec §9).
type Clock interface {
	Now() time.Time
}

// SystemClock is the real wall-clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// VerifierConfig wires the injectable capabilities (Predicates,
// VotingPowerCalculator, CommitValidator, Hasher, SignatureVerifier) plus
// the clock. All fields default to the canonical implementation when left
// zero (see NewVerifier).
type VerifierConfig struct {
	Predicates            Predicates
	VotingPowerCalculator VotingPowerCalculator
	CommitValidator       CommitValidator
	Hasher                Hasher
	SignatureVerifier     SignatureVerifier
	Clock                 Clock
}

// Verifier composes Predicates and VotingPowerCalculator into a verdict
// for a (trusted, untrusted, options) triple (spec §4.3).
type Verifier struct {
	cfg VerifierConfig
}

// NewVerifier builds a Verifier, filling any unset capability with the
// canonical default.
func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.Predicates == nil {
		cfg.Predicates = DefaultPredicates{}
	}
	if cfg.Hasher == nil {
		cfg.Hasher = DefaultHasher{}
	}
	if cfg.SignatureVerifier == nil {
		cfg.SignatureVerifier = DefaultSignatureVerifier{}
	}
	if cfg.VotingPowerCalculator == nil {
		cfg.VotingPowerCalculator = DefaultVotingPowerCalculator{SignatureVerifier: cfg.SignatureVerifier}
	}
	if cfg.CommitValidator == nil {
		cfg.CommitValidator = DefaultCommitValidator{}
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	return &Verifier{cfg: cfg}
}

// Verify implements spec §4.3's sequence, returning a Verdict and, for
// NotEnoughTrust/Invalid, the *VerificationError that produced it (spec
// §7: callers need the real Kind/Message/Tally, not just the 3-way enum).
//
//  1. Predicates 1-4 on untrusted; any failure -> Invalid.
//  2. Predicates 5-8 with now = clock.Now(); an expired trusted block ->
//     Invalid(Expired).
//  3. If untrusted is one height above trusted, predicate 9 (hash check
//     only); otherwise CheckEnoughTrust against trusted.NextValidators. A
//     shortfall -> NotEnoughTrust, not Invalid.
//  4. CheckSignersOverlap against the untrusted block's own validator set.
//     A shortfall is always Invalid: an untrusted header with less than
//     +2/3 of its own set is never valid, regardless of bisection.
func (v *Verifier) Verify(untrusted, trusted *LightBlock, opts Options) (Verdict, error) {
	p := v.cfg.Predicates

	if err := p.ValidatorSetsMatch(untrusted, v.cfg.Hasher); err != nil {
		return Invalid, err
	}
	if err := p.NextValidatorsMatch(untrusted, v.cfg.Hasher); err != nil {
		return Invalid, err
	}
	if err := p.HeaderMatchesCommit(untrusted, v.cfg.Hasher); err != nil {
		return Invalid, err
	}
	if err := v.cfg.CommitValidator.ValidateCommit(untrusted.Validators, untrusted.SignedHeader.Commit); err != nil {
		return Invalid, err
	}

	now := v.cfg.Clock.Now()
	if err := p.IsWithinTrustPeriod(trusted, opts.TrustingPeriod, now); err != nil {
		return Invalid, err
	}
	if err := p.IsHeaderFromPast(untrusted, opts.ClockDrift, now); err != nil {
		return Invalid, err
	}
	if err := p.IsMonotonicBFTTime(untrusted, trusted); err != nil {
		return Invalid, err
	}
	if err := p.IsMonotonicHeight(untrusted, trusted); err != nil {
		return Invalid, err
	}

	if untrusted.Height() == trusted.Height()+1 {
		if err := p.ValidNextValidatorSet(untrusted, trusted, v.cfg.Hasher); err != nil {
			return Invalid, err
		}
	} else {
		if _, err := v.cfg.VotingPowerCalculator.CheckEnoughTrust(
			untrusted.SignedHeader, trusted.NextValidators, v.cfg.SignatureVerifier, opts.TrustThreshold,
		); err != nil {
			if ve, ok := err.(*VerificationError); ok && ve.Kind == KindNotEnoughTrust {
				return NotEnoughTrust, err
			}
			return Invalid, err
		}
	}

	if _, err := v.cfg.VotingPowerCalculator.CheckSignersOverlap(untrusted.SignedHeader, untrusted.Validators); err != nil {
		// Spec §4.3 step 4: a shortfall here is always Invalid, never
		// recoverable by bisection.
		return Invalid, err
	}

	return Success, nil
}
