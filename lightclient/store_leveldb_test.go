package lightclient

import (
	"path/filepath"
	"testing"
)

func openTestPersistentStore(t *testing.T) *PersistentLightStore {
	t.Helper()
	dir := t.TempDir()
	s, err := OpenPersistentLightStore(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPersistentLightStore_InsertAndGet(t *testing.T) {
	tc := newTestChain(4, 1)
	s := openTestPersistentStore(t)

	if err := s.Insert(tc.block(1), StatusTrusted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Get(1, StatusTrusted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Height() != 1 {
		t.Fatalf("got wrong height back: %d", got.Height())
	}
	if got.SignedHeader.Header.ChainID != tc.chainID {
		t.Fatalf("round-tripped block lost its chain id")
	}
}

func TestPersistentLightStore_MonotonicityEnforced(t *testing.T) {
	tc := newTestChain(4, 1)
	s := openTestPersistentStore(t)

	if err := s.Insert(tc.block(1), StatusTrusted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Update(1, StatusVerified); err != ErrStatusRegression {
		t.Fatalf("expected ErrStatusRegression, got %v", err)
	}
}

func TestPersistentLightStore_HighestTrustedOrVerifiedBelow(t *testing.T) {
	tc := newTestChain(4, 5)
	s := openTestPersistentStore(t)

	for _, h := range []Height{1, 3} {
		if err := s.Insert(tc.block(h), StatusVerified); err != nil {
			t.Fatalf("insert %d: %v", h, err)
		}
	}
	if err := s.Insert(tc.block(4), StatusTrusted); err != nil {
		t.Fatalf("insert 4: %v", err)
	}

	got, err := s.HighestTrustedOrVerifiedBelow(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Height() != 4 {
		t.Fatalf("expected height 4, got %d", got.Height())
	}

	got, err = s.HighestTrustedOrVerifiedBelow(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Height() != 3 {
		t.Fatalf("expected height 3, got %d", got.Height())
	}
}

func TestPersistentLightStore_HeightsWithStatusSorted(t *testing.T) {
	tc := newTestChain(4, 5)
	s := openTestPersistentStore(t)

	for _, h := range []Height{5, 2, 4} {
		if err := s.Insert(tc.block(h), StatusVerified); err != nil {
			t.Fatalf("insert %d: %v", h, err)
		}
	}

	heights := s.HeightsWithStatus(StatusVerified)
	want := []Height{2, 4, 5}
	if len(heights) != len(want) {
		t.Fatalf("expected %v, got %v", want, heights)
	}
	for i := range want {
		if heights[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, heights)
		}
	}
}

func TestPersistentLightStore_Latest(t *testing.T) {
	tc := newTestChain(4, 3)
	s := openTestPersistentStore(t)
	for h := Height(1); h <= 3; h++ {
		if err := s.Insert(tc.block(h), StatusVerified); err != nil {
			t.Fatalf("insert %d: %v", h, err)
		}
	}
	latest, err := s.Latest(StatusVerified)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Height() != 3 {
		t.Fatalf("expected height 3, got %d", latest.Height())
	}
}
