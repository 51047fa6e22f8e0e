package lightclient

import (
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// PersistentLightStore is a goleveldb-backed LightStore, the second
// reference implementation spec §4.5 calls for. Keys are laid out as
// "block:<status>:<height, zero-padded>" so that a range scan per status
// prefix visits heights in ascending order and Last() within a bounded
// range gives the highest height below a cutoff in O(log n), following
// tolelom-tolchain/storage/leveldb.go's JSON-encoded, prefix-keyed
// convention.
type PersistentLightStore struct {
	db *leveldb.DB
}

var _ LightStore = (*PersistentLightStore)(nil)

// OpenPersistentLightStore opens (or creates) a goleveldb database at path.
func OpenPersistentLightStore(path string) (*PersistentLightStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", path, err)
	}
	return &PersistentLightStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *PersistentLightStore) Close() error {
	return s.db.Close()
}

func blockKey(status Status, height Height) []byte {
	return []byte(fmt.Sprintf("block:%d:%020d", status, height))
}

func currentKey(height Height) []byte {
	return []byte(fmt.Sprintf("current:%020d", height))
}

func (s *PersistentLightStore) Get(height Height, status Status) (*LightBlock, error) {
	data, err := s.db.Get(blockKey(status, height), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var lb LightBlock
	if err := json.Unmarshal(data, &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

func (s *PersistentLightStore) currentStatus(height Height) (Status, bool, error) {
	data, err := s.db.Get(currentKey(height), nil)
	if err == leveldb.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return 0, false, err
	}
	return st, true, nil
}

func (s *PersistentLightStore) Insert(block *LightBlock, status Status) error {
	return s.set(block.Height(), block, status)
}

func (s *PersistentLightStore) Update(height Height, status Status) error {
	cur, ok, err := s.currentStatus(height)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	block, err := s.Get(height, cur)
	if err != nil {
		return err
	}
	return s.set(height, block, status)
}

func (s *PersistentLightStore) set(height Height, block *LightBlock, status Status) error {
	if cur, ok, err := s.currentStatus(height); err != nil {
		return err
	} else if ok {
		if cur == StatusFailed || (cur == StatusTrusted && status == StatusFailed) {
			return ErrStatusRegression
		}
		if status != StatusFailed && status.rank() < cur.rank() {
			return ErrStatusRegression
		}
	}

	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(blockKey(status, height), data)
	curData, err := json.Marshal(status)
	if err != nil {
		return err
	}
	batch.Put(currentKey(height), curData)
	return s.db.Write(batch, nil)
}

func (s *PersistentLightStore) Latest(status Status) (*LightBlock, error) {
	prefix := []byte(fmt.Sprintf("block:%d:", status))
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	if !iter.Last() {
		return nil, ErrNotFound
	}
	var lb LightBlock
	if err := json.Unmarshal(iter.Value(), &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

func (s *PersistentLightStore) HighestTrustedOrVerifiedBelow(height Height) (*LightBlock, error) {
	trusted, tErr := s.highestAtOrBelow(StatusTrusted, height)
	verified, vErr := s.highestAtOrBelow(StatusVerified, height)
	if tErr != nil && vErr != nil {
		return nil, ErrNotFound
	}
	switch {
	case tErr != nil:
		return verified, nil
	case vErr != nil:
		return trusted, nil
	case trusted.Height() >= verified.Height():
		return trusted, nil
	default:
		return verified, nil
	}
}

func (s *PersistentLightStore) highestAtOrBelow(status Status, height Height) (*LightBlock, error) {
	prefix := []byte(fmt.Sprintf("block:%d:", status))
	r := util.BytesPrefix(prefix)
	r.Limit = []byte(fmt.Sprintf("block:%d:%020d", status, height+1))
	iter := s.db.NewIterator(r, nil)
	defer iter.Release()
	if !iter.Last() {
		return nil, ErrNotFound
	}
	var lb LightBlock
	if err := json.Unmarshal(iter.Value(), &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

func (s *PersistentLightStore) HeightsWithStatus(status Status) []Height {
	prefix := []byte(fmt.Sprintf("block:%d:", status))
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var out []Height
	for iter.Next() {
		var lb LightBlock
		if err := json.Unmarshal(iter.Value(), &lb); err != nil {
			continue
		}
		out = append(out, lb.Height())
	}
	return out
}
