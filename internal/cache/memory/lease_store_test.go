package memory

import (
	"context"
	"testing"
	"time"
)

func TestLeaseAcquireExcludesSecondOwnerUntilExpiry(t *testing.T) {
	s := NewLeaseStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := s.Acquire(ctx, "d1", "instance-a", 5*time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire = %v, %v", ok, err)
	}

	// B's claim before expiry fails.
	ok, err = s.Acquire(ctx, "d1", "instance-b", 5*time.Minute)
	if err != nil || ok {
		t.Fatalf("competing acquire = %v, %v; want false", ok, err)
	}

	owner, _ := s.Owner(ctx, "d1")
	if owner != "instance-a" {
		t.Fatalf("owner = %q, want instance-a", owner)
	}

	// After the TTL elapses with no renewal, B's claim succeeds.
	now = now.Add(5*time.Minute + time.Second)
	ok, err = s.Acquire(ctx, "d1", "instance-b", 5*time.Minute)
	if err != nil || !ok {
		t.Fatalf("post-expiry acquire = %v, %v; want true", ok, err)
	}
}

func TestLeaseRenewOnlyForHolder(t *testing.T) {
	s := NewLeaseStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := s.Acquire(ctx, "d1", "instance-a", time.Minute); !ok {
		t.Fatal("acquire failed")
	}

	if ok, _ := s.Renew(ctx, "d1", "instance-b", time.Minute); ok {
		t.Fatal("non-holder renewed the lease")
	}

	now = now.Add(50 * time.Second)
	if ok, _ := s.Renew(ctx, "d1", "instance-a", time.Minute); !ok {
		t.Fatal("holder could not renew a live lease")
	}

	// The renewal pushed expiry out past the original TTL.
	now = now.Add(30 * time.Second)
	if owner, _ := s.Owner(ctx, "d1"); owner != "instance-a" {
		t.Fatalf("owner after renewal = %q, want instance-a", owner)
	}

	// An expired lease cannot be renewed back to life.
	now = now.Add(2 * time.Minute)
	if ok, _ := s.Renew(ctx, "d1", "instance-a", time.Minute); ok {
		t.Fatal("expired lease was renewed")
	}
}

func TestLeaseReleaseIgnoresNonHolder(t *testing.T) {
	s := NewLeaseStore()
	ctx := context.Background()

	if ok, _ := s.Acquire(ctx, "d1", "instance-a", time.Minute); !ok {
		t.Fatal("acquire failed")
	}
	if err := s.Release(ctx, "d1", "instance-b"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if owner, _ := s.Owner(ctx, "d1"); owner != "instance-a" {
		t.Fatal("non-holder release removed the lease")
	}

	if err := s.Release(ctx, "d1", "instance-a"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if owner, _ := s.Owner(ctx, "d1"); owner != "" {
		t.Fatalf("owner after release = %q, want empty", owner)
	}
}
