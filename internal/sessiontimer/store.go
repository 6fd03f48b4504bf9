package sessiontimer

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Store holds one start timestamp per (invitation, client session) pair.
// StartIfAbsent is first-writer-wins: once a start exists it is never
// replaced, so a timer can never be reset by reconnecting.
type Store interface {
	StartIfAbsent(ctx context.Context, invitationID int64, clientSession string, start time.Time) (time.Time, error)
}

// MemoryStore is the in-process Store used by tests and single-instance
// deployments.
type MemoryStore struct {
	mu     sync.Mutex
	starts map[string]time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{starts: make(map[string]time.Time)}
}

func memoryKey(invitationID int64, clientSession string) string {
	return strconv.FormatInt(invitationID, 10) + "/" + clientSession
}

func (s *MemoryStore) StartIfAbsent(_ context.Context, invitationID int64, clientSession string, start time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(invitationID, clientSession)
	if existing, ok := s.starts[key]; ok {
		return existing, nil
	}
	s.starts[key] = start
	return start, nil
}
