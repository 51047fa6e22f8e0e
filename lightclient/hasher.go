package lightclient

import (
	"encoding/binary"

	"github.com/chainkit/lightclient/crypto"
)

// Hasher is the external collaborator (spec §6) that computes canonical
// header hashes and validator-set Merkle roots. Production embedders
// supply the chain's real wire-format hasher; DefaultHasher below is the
// reference implementation used by tests and by the bundled cmd.
type Hasher interface {
	// HashHeader returns the canonical hash of a header, matching what a
	// well-formed Commit's BlockID.Hash must equal (predicate 3).
	HashHeader(h *Header) Hash
	// HashValidatorSet returns the canonical Merkle root over validator
	// records in set order, each record = (address, voting_power, pubkey).
	HashValidatorSet(vs *ValidatorSet) Hash
}

// DefaultHasher builds a Merkle tree over Keccak-256 leaf hashes, following
// crypto.Keccak256's pairwise-concatenation convention.
type DefaultHasher struct{}

var _ Hasher = DefaultHasher{}

func (DefaultHasher) HashHeader(h *Header) Hash {
	if h == nil {
		return Hash{}
	}
	leaves := [][]byte{
		[]byte(h.ChainID),
		encodeUint64(uint64(h.Height)),
		encodeInt64(h.Time.UnixNano()),
		h.ValidatorsHash[:],
		h.NextValidatorsHash[:],
		h.AppHash[:],
		h.LastCommitHash[:],
	}
	return merkleRoot(leaves)
}

func (DefaultHasher) HashValidatorSet(vs *ValidatorSet) Hash {
	if vs == nil || len(vs.Validators) == 0 {
		return Hash{}
	}
	leaves := make([][]byte, len(vs.Validators))
	for i, v := range vs.Validators {
		buf := make([]byte, 0, 20+8+len(v.PubKey))
		buf = append(buf, v.Address[:]...)
		buf = append(buf, encodeUint64(v.VotingPower)...)
		buf = append(buf, v.PubKey...)
		leaves[i] = buf
	}
	return merkleRoot(leaves)
}

// AddressFromPubKey derives a validator address from its public key, the
// way DefaultHasher's callers are expected to construct Validator.Address.
func AddressFromPubKey(pub crypto.PubKey) Address {
	h := crypto.Keccak256(pub)
	var addr Address
	copy(addr[:], h[:len(addr)])
	return addr
}

// merkleRoot computes a simple binary Merkle root over leaf hashes,
// duplicating the last node on odd levels, without leaf/inner-node domain
// separation.
func merkleRoot(leaves [][]byte) Hash {
	if len(leaves) == 0 {
		return Hash{}
	}
	level := make([][]byte, len(leaves))
	for i, l := range leaves {
		level[i] = crypto.Keccak256(l)
	}
	for len(level) > 1 {
		var next [][]byte
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, crypto.Keccak256(level[i], level[i+1]))
			} else {
				next = append(next, crypto.Keccak256(level[i], level[i]))
			}
		}
		level = next
	}
	var h Hash
	copy(h[:], level[0])
	return h
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func encodeInt64(v int64) []byte {
	return encodeUint64(uint64(v))
}
