package quota

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// memStore mirrors the catalog's conditional-update semantics in memory.
type memStore struct {
	mu         sync.Mutex
	capacityMB int64
	usedMB     int64
}

func (s *memStore) TryReserve(_ context.Context, _ string, mb int64) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usedMB+mb > s.capacityMB {
		available := s.capacityMB - s.usedMB
		if available < 0 {
			available = 0
		}
		return false, available, nil
	}
	s.usedMB += mb
	return true, 0, nil
}

func (s *memStore) ReleaseSpace(_ context.Context, _ string, mb int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usedMB -= mb
	if s.usedMB < 0 {
		s.usedMB = 0
	}
	return nil
}

func TestMegabytesCeil(t *testing.T) {
	cases := []struct {
		bytes int64
		want  int64
	}{
		{0, 0},
		{1, 1},
		{MB, 1},
		{MB + 1, 2},
		{10 * MB, 10},
		{-5, 0},
	}
	for _, tc := range cases {
		if got := MegabytesCeil(tc.bytes); got != tc.want {
			t.Errorf("MegabytesCeil(%d) = %d, want %d", tc.bytes, got, tc.want)
		}
	}
}

func TestReserveAdmitsWithinCapacity(t *testing.T) {
	store := &memStore{capacityMB: 100, usedMB: 40}
	ledger := NewLedger(nil, store)

	grant, err := ledger.Reserve(context.Background(), "folder-1", 60*MB)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if grant.MB != 60 {
		t.Fatalf("grant MB = %d, want 60", grant.MB)
	}
	if store.usedMB != 100 {
		t.Fatalf("usedMB = %d, want 100", store.usedMB)
	}
}

func TestReserveDeniesOverCapacity(t *testing.T) {
	store := &memStore{capacityMB: 100, usedMB: 95}
	ledger := NewLedger(nil, store)

	_, err := ledger.Reserve(context.Background(), "folder-1", 6*MB)
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("error = %v, want ExceededError", err)
	}
	if exceeded.RequiredMB != 6 || exceeded.AvailableMB != 5 {
		t.Fatalf("exceeded = %+v", exceeded)
	}
	if store.usedMB != 95 {
		t.Fatalf("denied reservation must not mutate usage, usedMB = %d", store.usedMB)
	}
}

func TestReserveRoundsUpPartialMegabytes(t *testing.T) {
	store := &memStore{capacityMB: 2, usedMB: 0}
	ledger := NewLedger(nil, store)

	// 1 byte over a megabyte must charge 2 MB
	grant, err := ledger.Reserve(context.Background(), "folder-1", MB+1)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if grant.MB != 2 || store.usedMB != 2 {
		t.Fatalf("grant=%d usedMB=%d, want 2/2", grant.MB, store.usedMB)
	}
}

func TestGrantReleaseIsIdempotent(t *testing.T) {
	store := &memStore{capacityMB: 100, usedMB: 0}
	ledger := NewLedger(nil, store)

	grant, err := ledger.Reserve(context.Background(), "folder-1", 10*MB)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if err := grant.Release(context.Background()); err != nil {
		t.Fatalf("first release failed: %v", err)
	}
	if err := grant.Release(context.Background()); err != nil {
		t.Fatalf("second release failed: %v", err)
	}
	if store.usedMB != 0 {
		t.Fatalf("usedMB = %d, want 0 after single-effect release", store.usedMB)
	}
}

func TestReleaseClampsAtZero(t *testing.T) {
	store := &memStore{capacityMB: 100, usedMB: 3}
	ledger := NewLedger(nil, store)

	if err := ledger.Release(context.Background(), "folder-1", 10*MB); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if store.usedMB != 0 {
		t.Fatalf("usedMB = %d, want clamp at 0", store.usedMB)
	}
}

func TestConcurrentReservationsNeverOverCommit(t *testing.T) {
	const capacity = 50
	store := &memStore{capacityMB: capacity}
	ledger := NewLedger(nil, store)

	const workers = 100
	var wg sync.WaitGroup
	granted := make(chan int64, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			grant, err := ledger.Reserve(context.Background(), "folder-1", 1*MB)
			if err != nil {
				var exceeded *ExceededError
				if !errors.As(err, &exceeded) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			granted <- grant.MB
		}()
	}
	wg.Wait()
	close(granted)

	var total int64
	accepted := 0
	for mb := range granted {
		total += mb
		accepted++
	}

	require.Equal(t, capacity, accepted, "exactly enough acceptances to reach capacity")
	require.Equal(t, int64(capacity), total, "granted megabytes must equal capacity")
	require.Equal(t, int64(capacity), store.usedMB, "store usage must equal capacity, never more")
}
