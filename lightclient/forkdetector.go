package lightclient

import (
	"context"
	"fmt"

	"github.com/chainkit/lightclient/log"
)

// ForkDetector cross-checks a primary's verified light blocks against
// witness peers to catch a primary that has forked from the rest of the
// network (spec §4.7/§8 S6).
type ForkDetector struct {
	verifier *Verifier
	opts     Options
	log      *log.Logger
}

// NewForkDetector builds a ForkDetector using the given Verifier to replay
// a witness's chain when headers diverge.
func NewForkDetector(verifier *Verifier, opts Options) *ForkDetector {
	return &ForkDetector{verifier: verifier, opts: opts, log: log.Default().Module("forkdetector")}
}

// Compare fetches the witness's light block at primary's height and
// compares header hashes. Matching hashes mean no fork at this height.
// Divergent hashes require proving the witness's header is itself valid
// starting from commonAncestor (a height both peers previously agreed on);
// if so, the witness exhibits a genuine alternative chain and Compare
// returns Evidence naming both headers. If the witness's chain does not
// itself verify, the witness is reported faulty instead (no Evidence).
func (fd *ForkDetector) Compare(ctx context.Context, witnessIo Io, witness PeerID, primary *LightBlock, commonAncestor *LightBlock) (*Evidence, error) {
	witnessBlock, err := witnessIo.FetchLightBlock(ctx, witness, Exact(primary.Height()))
	if err != nil {
		return nil, fmt.Errorf("fetch witness block at height %d: %w", primary.Height(), err)
	}

	hasher := DefaultHasher{}
	primaryHash := hasher.HashHeader(primary.SignedHeader.Header)
	witnessHash := hasher.HashHeader(witnessBlock.SignedHeader.Header)
	if primaryHash == witnessHash {
		return nil, nil
	}

	verdict, verr := fd.verifier.Verify(witnessBlock, commonAncestor, fd.opts)
	if verdict != Success {
		fd.log.Warn("witness failed to verify from common ancestor, treating as faulty",
			"witness", witness, "height", primary.Height(), "verdict", verdict, "err", verr)
		return nil, &IoError{Kind: IoInvalidValidatorSet, Message: fmt.Sprintf("witness %s did not verify from common ancestor %d: %v", witness, commonAncestor.Height(), verr)}
	}

	fd.log.Warn("fork detected", "witness", witness, "height", primary.Height())
	return &Evidence{
		PrimaryHeader:  primary.SignedHeader,
		WitnessHeader:  witnessBlock.SignedHeader,
		CommonAncestor: commonAncestor.Height(),
		WitnessPeer:    witness,
	}, nil
}
