package realtime

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry owns the live interview rooms of one serving process, mapping
// link token to room. Rooms are created on first join and removed when
// the last member leaves, so the map never grows unbounded.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	runner CodeRunner
	log    zerolog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(runner CodeRunner, log zerolog.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		runner: runner,
		log:    log.With().Str("component", "room_registry").Logger(),
	}
}

// Join places the member into the room for token, creating the room from
// snapshot if needed. The member receives initial_data as its first event.
func (reg *Registry) Join(token string, snapshot *Snapshot, m *Member) (*Room, error) {
	// A room can close between lookup and join when its last member
	// leaves concurrently; retry with a fresh room in that case.
	for {
		room := reg.getOrCreate(token, snapshot)
		if err := room.Join(m); err == nil {
			return room, nil
		}
	}
}

func (reg *Registry) getOrCreate(token string, snapshot *Snapshot) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[token]; ok {
		return room
	}

	var room *Room
	room = newRoom(token, snapshot, reg.runner, reg.log, func() {
		reg.remove(token, room)
	})
	reg.rooms[token] = room
	go room.run()
	reg.log.Info().Str("room", token).Msg("Interview room opened")
	return room
}

func (reg *Registry) remove(token string, room *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if current, ok := reg.rooms[token]; ok && current == room {
		delete(reg.rooms, token)
		reg.log.Info().Str("room", token).Msg("Interview room closed")
	}
}

// Len reports the number of open rooms.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}
