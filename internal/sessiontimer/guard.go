package sessiontimer

import (
	"context"
	"time"
)

// Guard enforces a template's time limit server-side. The check runs on
// every session access, so a client cannot out-wait the limit by simply
// not asking. The clock is injectable for tests.
type Guard struct {
	store Store
	now   func() time.Time
}

// NewGuard creates a Guard over the given Store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store, now: time.Now}
}

// NewGuardWithClock creates a Guard with a custom clock.
func NewGuardWithClock(store Store, now func() time.Time) *Guard {
	return &Guard{store: store, now: now}
}

// Check records the session start on first access and reports the
// remaining time. limitMinutes of 0 means unlimited: the guard never
// intervenes and remaining is 0. expired is true once elapsed >= limit;
// the caller must then force completion.
func (g *Guard) Check(ctx context.Context, invitationID int64, clientSession string, limitMinutes int) (remaining time.Duration, expired bool, err error) {
	if limitMinutes == 0 {
		return 0, false, nil
	}

	start, err := g.store.StartIfAbsent(ctx, invitationID, clientSession, g.now())
	if err != nil {
		return 0, false, err
	}

	limit := time.Duration(limitMinutes) * time.Minute
	elapsed := g.now().Sub(start)
	if elapsed >= limit {
		return 0, true, nil
	}
	return limit - elapsed, false, nil
}
