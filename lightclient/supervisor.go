package lightclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chainkit/lightclient/log"
)

// Supervisor errors.
var (
	ErrNoHealthyPeers = errors.New("lightclient: no healthy peers available")
	ErrUnknownPeer    = errors.New("lightclient: unknown peer")
)

// PeerState classifies a peer's standing with the Supervisor (spec §4.8).
type PeerState int

const (
	// PeerHealthy peers are eligible to be primary or witness.
	PeerHealthy PeerState = iota
	// PeerSuspect peers have exceeded their retry budget and are no longer
	// selected as primary or as witness.
	PeerSuspect
	// PeerFaulty peers were caught forking or gave provably bad data;
	// never used again.
	PeerFaulty
)

func (s PeerState) String() string {
	switch s {
	case PeerHealthy:
		return "healthy"
	case PeerSuspect:
		return "suspect"
	case PeerFaulty:
		return "faulty"
	default:
		return "unknown"
	}
}

// SupervisorConfig configures peer management thresholds.
type SupervisorConfig struct {
	// MaxFailures is how many consecutive Io failures demote a Healthy
	// peer to Suspect.
	MaxFailures int
	Options     Options
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		MaxFailures: 3,
		Options: Options{
			TrustThreshold:   DefaultTrustThreshold,
			RPCTimeout:       DefaultRPCTimeout,
			MaxRetryAttempts: DefaultMaxRetryAttempts,
		},
	}
}

type peerRecord struct {
	id       PeerID
	state    PeerState
	failures int
}

// verifyRequest is one queued VerifyToTarget call. Requests are served in
// submission order by a single goroutine, giving the ordering guarantee
// spec §5 requires: a peer is never used concurrently by two requests.
type verifyRequest struct {
	ctx    context.Context
	target Height
	respCh chan verifyResponse
}

type verifyResponse struct {
	block *LightBlock
	err   error
}

// Supervisor coordinates verification across a primary and a set of
// witness peers: it drives VerifyToTarget against whichever peer is
// currently primary, demotes peers that fail too often, cross-checks
// against witnesses for fork detection, and reports evidence for any
// fork it proves (spec §4.8).
type Supervisor struct {
	io               Io
	verifier         *Verifier
	evidenceReporter EvidenceReporter
	forkDetector     *ForkDetector
	cfg              SupervisorConfig
	log              *log.Logger

	mu      sync.Mutex
	peers   map[PeerID]*peerRecord
	order   []PeerID // submission order, for deterministic primary selection
	clients map[PeerID]*LightClient

	reqCh  chan verifyRequest
	closed atomic.Bool
	done   chan struct{}
}

// NewSupervisor builds a Supervisor seeded with one trusted block shared
// by every peer (they are assumed to agree on it at construction time).
// Each peer gets its own MemoryLightStore; use NewSupervisorWithStores to
// back peers with a persistent store instead.
func NewSupervisor(io Io, evidenceReporter EvidenceReporter, peers []PeerID, trusted *LightBlock, cfg SupervisorConfig) (*Supervisor, error) {
	return NewSupervisorWithStores(io, evidenceReporter, peers, trusted, cfg, func(PeerID) (LightStore, error) {
		return NewMemoryLightStore(), nil
	})
}

// NewSupervisorWithStores is NewSupervisor with a caller-supplied store
// factory, so embedders can back each peer with a PersistentLightStore
// (or any other LightStore) instead of the in-memory default.
func NewSupervisorWithStores(io Io, evidenceReporter EvidenceReporter, peers []PeerID, trusted *LightBlock, cfg SupervisorConfig, newStore func(PeerID) (LightStore, error)) (*Supervisor, error) {
	if len(peers) == 0 {
		return nil, ErrNoHealthyPeers
	}
	verifier := NewVerifier(VerifierConfig{})
	sup := &Supervisor{
		io:               io,
		verifier:         verifier,
		evidenceReporter: evidenceReporter,
		forkDetector:     NewForkDetector(verifier, cfg.Options),
		cfg:              cfg,
		log:              log.Default().Module("supervisor"),
		peers:            make(map[PeerID]*peerRecord, len(peers)),
		clients:          make(map[PeerID]*LightClient, len(peers)),
		reqCh:            make(chan verifyRequest),
		done:             make(chan struct{}),
	}
	for _, p := range peers {
		sup.peers[p] = &peerRecord{id: p, state: PeerHealthy}
		sup.order = append(sup.order, p)
		store, err := newStore(p)
		if err != nil {
			return nil, fmt.Errorf("open store for peer %s: %w", p, err)
		}
		client, err := NewLightClient(p, io, verifier, store, trusted, cfg.Options)
		if err != nil {
			return nil, err
		}
		sup.clients[p] = client
	}
	go sup.run()
	return sup, nil
}

// run is the single goroutine that serializes all verification work so
// peers are never driven concurrently by two in-flight requests.
func (s *Supervisor) run() {
	defer close(s.done)
	for req := range s.reqCh {
		block, err := s.handle(req.ctx, req.target)
		select {
		case req.respCh <- verifyResponse{block: block, err: err}:
		case <-req.ctx.Done():
		}
	}
}

// VerifyToTarget verifies to target against the current primary (the first
// Healthy peer), retrying against the first Healthy peer on failure (the
// same peer until it is demoted or marked faulty), and cross-checking the
// result against one witness for fork detection.
func (s *Supervisor) VerifyToTarget(ctx context.Context, target Height) (*LightBlock, error) {
	if s.closed.Load() {
		return nil, ErrTerminated
	}
	respCh := make(chan verifyResponse, 1)
	select {
	case s.reqCh <- verifyRequest{ctx: ctx, target: target, respCh: respCh}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-respCh:
		return resp.block, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Supervisor) handle(ctx context.Context, target Height) (*LightBlock, error) {
	for {
		primary, ok := s.selectPrimary()
		if !ok {
			return nil, ErrNoHealthyPeers
		}

		client := s.clientFor(primary)
		// The anchor both peers last agreed on is the primary's trusted
		// state before this request advances it.
		anchor, aerr := client.TrustedState()
		// client.VerifyToTarget already retried any transient Io error up
		// to its Options.MaxRetryAttempts (spec §7) before returning, so an
		// error here means that budget is exhausted, not a single hiccup.
		// The failure counts toward MaxFailures; the loop then reselects the
		// first Healthy peer, which is another peer once this one is
		// demoted to Suspect or marked Faulty.
		block, err := client.VerifyToTarget(ctx, target)
		if err != nil {
			s.recordFailure(primary)
			var verr *VerificationError
			if errors.As(err, &verr) {
				// Verification itself failed: this peer gave us a bad
				// block. Treat as faulty rather than merely unreliable.
				s.markFaulty(primary)
			}
			continue
		}

		witness, ok := s.selectWitness(primary)
		if ok {
			if aerr == nil {
				evidence, ferr := s.forkDetector.Compare(ctx, s.io, witness, block, anchor)
				if ferr == nil && evidence != nil {
					s.markFaulty(witness)
					if s.evidenceReporter != nil {
						if _, rerr := s.evidenceReporter.Report(ctx, evidence, primary); rerr != nil {
							s.log.Warn("evidence report failed", "err", rerr)
						}
					}
				}
			}
		}

		s.recordSuccess(primary)
		return block, nil
	}
}

func (s *Supervisor) clientFor(p PeerID) *LightClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[p]
}

// selectPrimary returns the first Healthy peer in submission order.
func (s *Supervisor) selectPrimary() (PeerID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if s.peers[id].state == PeerHealthy {
			return id, true
		}
	}
	return "", false
}

// selectWitness returns a Healthy peer other than exclude, if any.
func (s *Supervisor) selectWitness(exclude PeerID) (PeerID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if id != exclude && s.peers[id].state == PeerHealthy {
			return id, true
		}
	}
	return "", false
}

func (s *Supervisor) recordFailure(p PeerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.peers[p]
	if !ok {
		return
	}
	rec.failures++
	if rec.state == PeerHealthy && rec.failures >= s.cfg.MaxFailures {
		rec.state = PeerSuspect
		s.log.Warn("peer demoted to suspect", "peer", p, "failures", rec.failures)
	}
}

func (s *Supervisor) recordSuccess(p PeerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.peers[p]; ok {
		rec.failures = 0
	}
}

func (s *Supervisor) markFaulty(p PeerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.peers[p]; ok {
		rec.state = PeerFaulty
		s.log.Warn("peer marked faulty", "peer", p)
	}
}

// PeerState reports a single peer's current standing. It returns
// ErrUnknownPeer if the Supervisor was not constructed with this peer.
func (s *Supervisor) PeerState(p PeerID) (PeerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.peers[p]
	if !ok {
		return 0, ErrUnknownPeer
	}
	return rec.state, nil
}

// PeerStates returns a snapshot of every peer's current state, for
// diagnostics.
func (s *Supervisor) PeerStates() map[PeerID]PeerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[PeerID]PeerState, len(s.peers))
	for id, rec := range s.peers {
		out[id] = rec.state
	}
	return out
}

// Close terminates the Supervisor's worker goroutine. Any request still
// queued or in flight when Close is called observes ErrTerminated or a
// context cancellation.
func (s *Supervisor) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.reqCh)
		<-s.done
	}
}
