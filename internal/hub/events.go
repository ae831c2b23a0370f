package hub

import (
	"sync"

	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"github.com/google/uuid"
)

const subscriberBuffer = 16

// subscribers fans directory events out to the connected websocket clients.
type subscribers struct {
	mu sync.Mutex
	m  map[uuid.UUID]chan directory.Event
}

func newSubscribers() *subscribers {
	return &subscribers{m: make(map[uuid.UUID]chan directory.Event)}
}

func (s *subscribers) add() (uuid.UUID, <-chan directory.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	ch := make(chan directory.Event, subscriberBuffer)
	s.m[id] = ch
	return id, ch
}

func (s *subscribers) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.m[id]; ok {
		close(ch)
		delete(s.m, id)
	}
}

func (s *subscribers) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// broadcast delivers the event to every subscriber with room in its buffer.
// It returns the number of subscribers the event was dropped for.
func (s *subscribers) broadcast(ev directory.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for _, ch := range s.m {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	return dropped
}
