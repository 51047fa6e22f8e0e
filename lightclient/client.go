package lightclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainkit/lightclient/log"
)

// LightClient drives a single primary peer: it owns a LightStore seeded
// with one trusted block, and verifies forward to a requested target
// height by bisection (spec §4.6), using Io to fetch candidate blocks and
// Verifier to judge them.
type LightClient struct {
	primary  PeerID
	io       Io
	verifier *Verifier
	store    LightStore
	opts     Options
	log      *log.Logger
}

// NewLightClient constructs a LightClient trusting the given block as its
// initial anchor. The trusted block is inserted into store at StatusTrusted.
func NewLightClient(primary PeerID, io Io, verifier *Verifier, store LightStore, trusted *LightBlock, opts Options) (*LightClient, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := store.Insert(trusted, StatusTrusted); err != nil {
		return nil, fmt.Errorf("seed trusted anchor: %w", err)
	}
	return &LightClient{
		primary:  primary,
		io:       io,
		verifier: verifier,
		store:    store,
		opts:     opts,
		log:      log.Default().Module("lightclient"),
	}, nil
}

// TrustedState returns the highest Trusted block currently held.
func (c *LightClient) TrustedState() (*LightBlock, error) {
	return c.store.Latest(StatusTrusted)
}

// VerifyToHighest fetches the primary's chain head and verifies to it.
func (c *LightClient) VerifyToHighest(ctx context.Context) (*LightBlock, error) {
	head, err := c.fetchWithRetry(ctx, Highest())
	if err != nil {
		return nil, err
	}
	return c.VerifyToTarget(ctx, head.Height())
}

// VerifyToTarget implements spec §4.6: drive the Scheduler until the
// trusted frontier reaches target, fetching and verifying each height the
// Scheduler names, and promoting any Verified blocks the bisection leaves
// behind once a later height is trusted.
func (c *LightClient) VerifyToTarget(ctx context.Context, target Height) (*LightBlock, error) {
	trusted, err := c.store.Latest(StatusTrusted)
	if err != nil {
		return nil, fmt.Errorf("no trusted anchor: %w", err)
	}
	if target <= trusted.Height() {
		return trusted, nil
	}

	sched := NewScheduler(c.store, target)
	for !sched.Done() {
		h, err := sched.NextHeight()
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}

		block, err := c.fetchAndInsert(ctx, h)
		if err != nil {
			return nil, err
		}

		trusted, err = c.store.Latest(StatusTrusted)
		if err != nil {
			return nil, fmt.Errorf("no trusted anchor: %w", err)
		}

		verdict, verr := c.verifier.Verify(block, trusted, c.opts)
		switch verdict {
		case Success:
			if err := c.store.Update(block.Height(), StatusTrusted); err != nil {
				return nil, fmt.Errorf("promote height %d: %w", block.Height(), err)
			}
			c.log.Info("verified block", "height", block.Height(), "verdict", "success")
			if err := c.promoteVerified(block); err != nil {
				return nil, err
			}
		case NotEnoughTrust:
			if err := c.store.Update(block.Height(), StatusVerified); err != nil {
				return nil, fmt.Errorf("mark height %d verified: %w", block.Height(), err)
			}
			c.log.Info("bisecting", "height", block.Height(), "verdict", "not_enough_trust", "err", verr)
		case Invalid:
			if err := c.store.Update(block.Height(), StatusFailed); err != nil {
				return nil, fmt.Errorf("mark height %d failed: %w", block.Height(), err)
			}
			return nil, verr
		}
	}

	return c.store.Latest(StatusTrusted)
}

func (c *LightClient) fetchAndInsert(ctx context.Context, h Height) (*LightBlock, error) {
	if existing, err := c.store.Get(h, StatusVerified); err == nil {
		return existing, nil
	}
	block, err := c.fetchWithRetry(ctx, Exact(h))
	if err != nil {
		return nil, err
	}
	if err := c.store.Insert(block, StatusUnverified); err != nil && err != ErrStatusRegression {
		return nil, fmt.Errorf("insert height %d: %w", h, err)
	}
	return block, nil
}

// fetchWithRetry calls Io.FetchLightBlock, bounding each attempt with
// opts.RPCTimeout and retrying transient IoErrors (Timeout, RpcError) up to
// opts.MaxRetryAttempts times against the same peer before giving up (spec
// §6/§7: "retried up to max_retry_attempts; exhaustion surfaces to the
// caller and demotes the peer"). Non-transient IoErrors are not retried.
func (c *LightClient) fetchWithRetry(ctx context.Context, at AtHeight) (*LightBlock, error) {
	var lastErr error
	for attempt := uint32(0); attempt <= c.opts.MaxRetryAttempts; attempt++ {
		fetchCtx := ctx
		var cancel context.CancelFunc
		if c.opts.RPCTimeout > 0 {
			fetchCtx, cancel = context.WithTimeout(ctx, c.opts.RPCTimeout)
		}
		block, err := c.io.FetchLightBlock(fetchCtx, c.primary, at)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return block, nil
		}
		lastErr = err
		if !isTransientIoError(err) {
			return nil, err
		}
		if attempt < c.opts.MaxRetryAttempts {
			c.log.Warn("retrying io fetch", "peer", c.primary, "attempt", attempt+1, "err", err)
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// isTransientIoError reports whether err is an IoError worth retrying
// against the same peer (spec §7): Timeout and RpcError are transient;
// InvalidHeight/InvalidValidatorSet/InvalidSignature mean the peer served
// bad data and retrying it won't help.
func isTransientIoError(err error) bool {
	var ioErr *IoError
	if !errors.As(err, &ioErr) {
		return false
	}
	return ioErr.Kind == IoTimeout || ioErr.Kind == IoRPCError
}

// promoteVerified re-verifies every Verified block above the new anchor in
// ascending height order against it, promoting those that succeed to
// Trusted and demoting (without aborting the overall Success) those that
// no longer verify. This resolves the Open Question on what happens to
// Verified blocks left behind by a bisection once a higher anchor is
// trusted (DESIGN.md).
func (c *LightClient) promoteVerified(newAnchor *LightBlock) error {
	heights := c.store.HeightsWithStatus(StatusVerified)
	for _, h := range heights {
		if h <= newAnchor.Height() {
			continue
		}
		block, err := c.store.Get(h, StatusVerified)
		if err != nil {
			continue
		}
		anchor, err := c.store.Latest(StatusTrusted)
		if err != nil {
			return fmt.Errorf("no trusted anchor during promotion: %w", err)
		}
		verdict, verr := c.verifier.Verify(block, anchor, c.opts)
		switch verdict {
		case Success:
			if err := c.store.Update(h, StatusTrusted); err != nil {
				return fmt.Errorf("promote height %d: %w", h, err)
			}
			c.log.Info("promoted pending block", "height", h)
		case NotEnoughTrust:
			// Stays Verified; a later bisection step may still reach it.
		case Invalid:
			if err := c.store.Update(h, StatusFailed); err != nil {
				return fmt.Errorf("demote height %d: %w", h, err)
			}
			c.log.Warn("demoted pending block", "height", h, "err", verr)
		}
	}
	return nil
}
