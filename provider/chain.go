package provider

import (
	"sync"

	"github.com/google/uuid"
)

// maxChains bounds how many continuation tokens a local chain store keeps.
// Only the most recent token is ever continued; older ones are dropped.
const maxChains = 16

// chainStore gives backends without server-side response chaining a
// continuation token: the full request context of a completed exchange is
// kept locally under an opaque id and restored when a later request names it.
type chainStore[T any] struct {
	mu    sync.Mutex
	byID  map[string][]T
	order []string
}

func newChainStore[T any]() *chainStore[T] {
	return &chainStore[T]{byID: make(map[string][]T)}
}

// save stores a copy of msgs and returns its token.
func (s *chainStore[T]) save(msgs []T) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[id] = append([]T(nil), msgs...)
	s.order = append(s.order, id)
	for len(s.order) > maxChains {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	return id
}

// load returns a copy of the context stored under id.
func (s *chainStore[T]) load(id string) ([]T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return append([]T(nil), msgs...), true
}
