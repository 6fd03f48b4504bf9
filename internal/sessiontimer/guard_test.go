package sessiontimer

import (
	"context"
	"testing"
	"time"
)

func TestGuardUnlimitedNeverExpires(t *testing.T) {
	guard := NewGuard(NewMemoryStore())

	remaining, expired, err := guard.Check(context.Background(), 1, "client-a", 0)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if expired {
		t.Error("Check() expired = true for unlimited template")
	}
	if remaining != 0 {
		t.Errorf("Check() remaining = %v, want 0", remaining)
	}
}

func TestGuardCountsDownFromFirstAccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	guard := NewGuardWithClock(NewMemoryStore(), clock)

	remaining, expired, err := guard.Check(context.Background(), 1, "client-a", 1)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if expired {
		t.Fatal("Check() expired on first access")
	}
	if remaining != time.Minute {
		t.Errorf("Check() remaining = %v, want 1m", remaining)
	}

	// 30s in: half the budget left.
	now = now.Add(30 * time.Second)
	remaining, expired, _ = guard.Check(context.Background(), 1, "client-a", 1)
	if expired || remaining != 30*time.Second {
		t.Errorf("Check() = (%v, %t), want (30s, false)", remaining, expired)
	}

	// 61s in: over the limit.
	now = now.Add(31 * time.Second)
	_, expired, _ = guard.Check(context.Background(), 1, "client-a", 1)
	if !expired {
		t.Error("Check() expired = false at t=61s with 1m limit")
	}
}

func TestGuardExactBoundaryExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	guard := NewGuardWithClock(NewMemoryStore(), clock)

	guard.Check(context.Background(), 1, "client-a", 1)

	now = now.Add(time.Minute)
	_, expired, _ := guard.Check(context.Background(), 1, "client-a", 1)
	if !expired {
		t.Error("Check() expired = false at elapsed == limit")
	}
}

func TestGuardStartIsNotResetByReconnect(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	guard := NewGuardWithClock(NewMemoryStore(), clock)

	guard.Check(context.Background(), 1, "client-a", 10)

	// Repeated checks later must measure from the original start.
	now = now.Add(4 * time.Minute)
	remaining, _, _ := guard.Check(context.Background(), 1, "client-a", 10)
	if remaining != 6*time.Minute {
		t.Errorf("Check() remaining = %v, want 6m", remaining)
	}
}

func TestGuardKeysPerInvitationAndClient(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	guard := NewGuardWithClock(NewMemoryStore(), clock)

	guard.Check(context.Background(), 1, "client-a", 1)

	now = now.Add(2 * time.Minute)

	// Same invitation, different client: fresh timer.
	_, expired, _ := guard.Check(context.Background(), 1, "client-b", 1)
	if expired {
		t.Error("Check() expired for a different client session")
	}

	// Different invitation, same client: fresh timer.
	_, expired, _ = guard.Check(context.Background(), 2, "client-a", 1)
	if expired {
		t.Error("Check() expired for a different invitation")
	}

	// Original pair is long over.
	_, expired, _ = guard.Check(context.Background(), 1, "client-a", 1)
	if !expired {
		t.Error("Check() expired = false for the original pair after 2m")
	}
}
