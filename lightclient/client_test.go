package lightclient

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeIo serves blocks from a testChain, recording each height requested.
type fakeIo struct {
	tc        *testChain
	highest   Height
	requested []Height
}

func (f *fakeIo) FetchLightBlock(_ context.Context, _ PeerID, at AtHeight) (*LightBlock, error) {
	h := at.Height
	if at.Highest {
		h = f.highest
	}
	f.requested = append(f.requested, h)
	b, ok := f.tc.blocks[h]
	if !ok {
		return nil, NewIoError(IoInvalidHeight, "no block at height %d", h)
	}
	return b, nil
}

func clientTestOptions() Options {
	return Options{
		TrustThreshold: DefaultTrustThreshold,
		TrustingPeriod: 365 * 24 * time.Hour,
		ClockDrift:     time.Hour,
	}
}

func newTestVerifier(now time.Time) *Verifier {
	return NewVerifier(VerifierConfig{Clock: fakeClock{now: now}})
}

func TestLightClient_VerifyToTargetAdjacent(t *testing.T) {
	tc := newTestChain(4, 3)
	io := &fakeIo{tc: tc, highest: 3}
	now := tc.block(3).SignedHeader.Header.Time.Add(time.Minute)
	verifier := newTestVerifier(now)

	client, err := NewLightClient("primary", io, verifier, NewMemoryLightStore(), tc.block(1), clientTestOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := client.VerifyToTarget(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Height() != 3 {
		t.Fatalf("expected height 3, got %d", result.Height())
	}
}

func TestLightClient_VerifyToTargetBisects(t *testing.T) {
	tc := newTestChain(4, 20)
	io := &fakeIo{tc: tc, highest: 20}
	now := tc.block(20).SignedHeader.Header.Time.Add(time.Minute)
	verifier := newTestVerifier(now)

	client, err := NewLightClient("primary", io, verifier, NewMemoryLightStore(), tc.block(1), clientTestOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := client.VerifyToTarget(context.Background(), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Height() != 20 {
		t.Fatalf("expected height 20, got %d", result.Height())
	}
	// Every header on a fully-signed chain verifies against the anchor, so
	// the Scheduler only halves the remaining gap each step (10, 15, 17, 18,
	// 19, 20): at most ceil(log2(20-1))+1 = 6 round trips.
	if len(io.requested) > 6 {
		t.Fatalf("expected few round trips for a fully-signed chain, got %d: %v", len(io.requested), io.requested)
	}
}

func TestLightClient_VerifyToHighest(t *testing.T) {
	tc := newTestChain(4, 5)
	io := &fakeIo{tc: tc, highest: 5}
	now := tc.block(5).SignedHeader.Header.Time.Add(time.Minute)
	verifier := newTestVerifier(now)

	client, err := NewLightClient("primary", io, verifier, NewMemoryLightStore(), tc.block(1), clientTestOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := client.VerifyToHighest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Height() != 5 {
		t.Fatalf("expected height 5, got %d", result.Height())
	}
}

func TestLightClient_AlreadyAtOrPastTarget(t *testing.T) {
	tc := newTestChain(4, 3)
	io := &fakeIo{tc: tc, highest: 3}
	verifier := newTestVerifier(tc.block(3).SignedHeader.Header.Time.Add(time.Minute))

	client, err := NewLightClient("primary", io, verifier, NewMemoryLightStore(), tc.block(2), clientTestOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := client.VerifyToTarget(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Height() != 2 {
		t.Fatalf("expected existing trusted height 2 returned unchanged, got %d", result.Height())
	}
	if len(io.requested) != 0 {
		t.Fatalf("expected no fetches when target is already behind the trusted anchor")
	}
}

// tamperedAtIo serves blocks from a testChain, except at one height it
// returns a header whose hash no longer matches commit.block_id.hash.
type tamperedAtIo struct {
	tc     *testChain
	height Height
}

func (t *tamperedAtIo) FetchLightBlock(_ context.Context, _ PeerID, at AtHeight) (*LightBlock, error) {
	b, ok := t.tc.blocks[at.Height]
	if !ok {
		return nil, NewIoError(IoInvalidHeight, "no block at height %d", at.Height)
	}
	if at.Height != t.height {
		return b, nil
	}
	tampered := *b
	header := *b.SignedHeader.Header
	header.AppHash = Hash{0xFF}
	tampered.SignedHeader = &SignedHeader{Header: &header, Commit: b.SignedHeader.Commit}
	return &tampered, nil
}

// TestLightClient_VerifyToTargetPropagatesRealKind guards against Verify's
// Verdict being reported without its underlying *VerificationError: a
// header/commit mismatch at height 2 must surface as KindHeaderCommitMismatch,
// not a generic fabricated Kind.
func TestLightClient_VerifyToTargetPropagatesRealKind(t *testing.T) {
	tc := newTestChain(4, 3)
	io := &tamperedAtIo{tc: tc, height: 2}
	now := tc.block(3).SignedHeader.Header.Time.Add(time.Minute)
	verifier := newTestVerifier(now)

	client, err := NewLightClient("primary", io, verifier, NewMemoryLightStore(), tc.block(1), clientTestOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.VerifyToTarget(context.Background(), 2)
	if err == nil {
		t.Fatalf("expected an error for a tampered header")
	}
	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a *VerificationError, got %v", err)
	}
	if verr.Kind != KindHeaderCommitMismatch {
		t.Fatalf("expected Kind KindHeaderCommitMismatch, got %v", verr.Kind)
	}
}

// flakyThenOkIo fails with a transient IoError the first failCount calls,
// then serves normally, recording every attempt.
type flakyThenOkIo struct {
	tc        *testChain
	highest   Height
	failCount int
	attempts  int
}

func (f *flakyThenOkIo) FetchLightBlock(_ context.Context, _ PeerID, at AtHeight) (*LightBlock, error) {
	f.attempts++
	if f.attempts <= f.failCount {
		return nil, NewIoError(IoTimeout, "simulated timeout on attempt %d", f.attempts)
	}
	h := at.Height
	if at.Highest {
		h = f.highest
	}
	b, ok := f.tc.blocks[h]
	if !ok {
		return nil, NewIoError(IoInvalidHeight, "no block at height %d", h)
	}
	return b, nil
}

func TestLightClient_RetriesTransientIoErrors(t *testing.T) {
	tc := newTestChain(4, 3)
	io := &flakyThenOkIo{tc: tc, highest: 3, failCount: 2}
	now := tc.block(3).SignedHeader.Header.Time.Add(time.Minute)
	verifier := newTestVerifier(now)

	opts := clientTestOptions()
	opts.MaxRetryAttempts = 2

	client, err := NewLightClient("primary", io, verifier, NewMemoryLightStore(), tc.block(1), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := client.VerifyToTarget(context.Background(), 3)
	if err != nil {
		t.Fatalf("expected the 3rd attempt to succeed within the retry budget: %v", err)
	}
	if result.Height() != 3 {
		t.Fatalf("expected height 3, got %d", result.Height())
	}
}

func TestLightClient_ExhaustsRetriesAndSurfacesError(t *testing.T) {
	tc := newTestChain(4, 3)
	io := &flakyThenOkIo{tc: tc, highest: 3, failCount: 10}
	now := tc.block(3).SignedHeader.Header.Time.Add(time.Minute)
	verifier := newTestVerifier(now)

	opts := clientTestOptions()
	opts.MaxRetryAttempts = 2

	client, err := NewLightClient("primary", io, verifier, NewMemoryLightStore(), tc.block(1), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.VerifyToTarget(context.Background(), 3)
	if err == nil {
		t.Fatalf("expected an error once the retry budget is exhausted")
	}
	var ioErr *IoError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected an *IoError, got %v", err)
	}
	if io.attempts != 3 { // 1 initial attempt + 2 retries
		t.Fatalf("expected exactly 3 attempts (1 + MaxRetryAttempts), got %d", io.attempts)
	}
}

func TestLightClient_NonTransientIoErrorIsNotRetried(t *testing.T) {
	tc := newTestChain(4, 3)
	io := &fakeIo{tc: tc, highest: 3}
	now := tc.block(3).SignedHeader.Header.Time.Add(time.Minute)
	verifier := newTestVerifier(now)

	opts := clientTestOptions()
	opts.MaxRetryAttempts = 5

	client, err := NewLightClient("primary", io, verifier, NewMemoryLightStore(), tc.block(1), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Height 99 doesn't exist, and neither does the bisection midpoint 50
	// the Scheduler asks for first: fakeIo returns IoInvalidHeight, which is
	// not transient and must fail on the first attempt.
	_, err = client.VerifyToTarget(context.Background(), 99)
	if err == nil {
		t.Fatalf("expected an error for a nonexistent height")
	}
	requestsFor50 := 0
	for _, h := range io.requested {
		if h == 50 {
			requestsFor50++
		}
	}
	if requestsFor50 != 1 {
		t.Fatalf("expected exactly one attempt for a non-transient error, got %d", requestsFor50)
	}
}
