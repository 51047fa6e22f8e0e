package lightclient

import "context"

// AtHeight selects which height Io.FetchLightBlock should fetch.
type AtHeight struct {
	Height  Height // valid only when Highest is false
	Highest bool
}

// Exact builds an AtHeight requesting a specific height.
func Exact(h Height) AtHeight { return AtHeight{Height: h} }

// Highest builds an AtHeight requesting the provider's chain head.
func Highest() AtHeight { return AtHeight{Highest: true} }

// Io is the external collaborator (spec §6) the LightClient fetches light
// blocks through. Production implementations wrap the chain's RPC client;
// this package only depends on the interface.
type Io interface {
	FetchLightBlock(ctx context.Context, peer PeerID, at AtHeight) (*LightBlock, error)
}

// EvidenceReporter is the external collaborator that submits fork evidence
// to the chain (spec §6).
type EvidenceReporter interface {
	Report(ctx context.Context, evidence *Evidence, peer PeerID) (TxHash, error)
}

// TxHash identifies a submitted evidence transaction.
type TxHash [32]byte
