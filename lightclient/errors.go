package lightclient

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a VerificationError for the recoverable/terminal
// split §7 requires: NotEnoughTrust and InsufficientSignersOverlap-against-
// the-trusted-set map to Verdict NotEnoughTrust; everything else is
// terminal (Invalid).
type ErrorKind int

const (
	KindValidatorSetMismatch ErrorKind = iota
	KindNextValidatorSetMismatch
	KindHeaderCommitMismatch
	KindInvalidCommit
	KindDuplicateValidator
	KindInvalidSignature
	KindExpired
	KindHeaderFromFuture
	KindNonMonotonicBFTTime
	KindNonMonotonicHeight
	KindInvalidNextValidatorSet
	KindNotEnoughTrust
	KindInsufficientSignersOverlap
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidatorSetMismatch:
		return "ValidatorSetMismatch"
	case KindNextValidatorSetMismatch:
		return "NextValidatorSetMismatch"
	case KindHeaderCommitMismatch:
		return "HeaderCommitMismatch"
	case KindInvalidCommit:
		return "InvalidCommit"
	case KindDuplicateValidator:
		return "DuplicateValidator"
	case KindInvalidSignature:
		return "InvalidSignature"
	case KindExpired:
		return "Expired"
	case KindHeaderFromFuture:
		return "HeaderFromFuture"
	case KindNonMonotonicBFTTime:
		return "NonMonotonicBftTime"
	case KindNonMonotonicHeight:
		return "NonMonotonicHeight"
	case KindInvalidNextValidatorSet:
		return "InvalidNextValidatorSet"
	case KindNotEnoughTrust:
		return "NotEnoughTrust"
	case KindInsufficientSignersOverlap:
		return "InsufficientSignersOverlap"
	default:
		return "Unknown"
	}
}

// VerificationError carries enough context (hashes, heights, timestamps,
// tallies) to render an actionable diagnostic, and a Kind so the Verifier
// can map it to the right Verdict (spec §4.3/§7).
type VerificationError struct {
	Kind    ErrorKind
	Message string
	Tally   *Tally // set for NotEnoughTrust / InsufficientSignersOverlap
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("lightclient: %s: %s", e.Kind, e.Message)
}

func newVerificationError(kind ErrorKind, format string, args ...any) *VerificationError {
	return &VerificationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IoErrorKind enumerates the external-collaborator failure modes consumed
// from Io (spec §6/§7).
type IoErrorKind int

const (
	IoTimeout IoErrorKind = iota
	IoRPCError
	IoInvalidHeight
	IoInvalidValidatorSet
	IoInvalidSignature
)

func (k IoErrorKind) String() string {
	switch k {
	case IoTimeout:
		return "Timeout"
	case IoRPCError:
		return "RpcError"
	case IoInvalidHeight:
		return "InvalidHeight"
	case IoInvalidValidatorSet:
		return "InvalidValidatorSet"
	case IoInvalidSignature:
		return "InvalidSignature"
	default:
		return "Unknown"
	}
}

// IoError is returned by the Io collaborator.
type IoError struct {
	Kind    IoErrorKind
	Message string
}

func (e *IoError) Error() string {
	return fmt.Sprintf("lightclient: io: %s: %s", e.Kind, e.Message)
}

// NewIoError constructs an IoError; exported because production Io
// implementations live outside this package (spec §6).
func NewIoError(kind IoErrorKind, format string, args ...any) *IoError {
	return &IoError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Evidence carries the two conflicting headers a ForkDetector found, plus
// the last height both peers agreed on (spec §4.7/§8 S6).
type Evidence struct {
	PrimaryHeader *SignedHeader
	WitnessHeader *SignedHeader
	CommonAncestor Height
	WitnessPeer   PeerID
}

func (e *Evidence) Error() string {
	return fmt.Sprintf("lightclient: fork detected at height %d between primary and witness %s (common ancestor %d)",
		e.PrimaryHeader.Header.Height, e.WitnessPeer, e.CommonAncestor)
}

// coreError is a minimal error type for internal sentinels (store, scheduler)
// that don't need VerificationError's Kind/Tally fields.
type coreError struct{ msg string }

func (e *coreError) Error() string { return "lightclient: " + e.msg }

func newCoreError(msg string) error { return &coreError{msg: msg} }

// ErrTerminated is returned to callers of a Supervisor handle that was
// closed while their request was in flight or queued (spec §5/§7).
var ErrTerminated = errors.New("lightclient: supervisor terminated")

// Sentinel configuration errors.
var (
	ErrInvalidTrustThreshold = errors.New("lightclient: trust threshold must satisfy 1/3 <= t <= 1")
	ErrInvalidOptions        = errors.New("lightclient: invalid options")
)

// Verdict is the three-way outcome of Verifier.Verify (spec §3).
type Verdict int

const (
	// Success: the untrusted block may be trusted.
	Success Verdict = iota
	// NotEnoughTrust: recoverable by bisection against a closer anchor.
	NotEnoughTrust
	// Invalid: terminal for this (trusted, untrusted) pair.
	Invalid
)

func (v Verdict) String() string {
	switch v {
	case Success:
		return "Success"
	case NotEnoughTrust:
		return "NotEnoughTrust"
	case Invalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}
