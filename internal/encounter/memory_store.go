package encounter

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type MemoryLinkStore struct {
	mu    sync.Mutex
	links map[string]Link
}

func NewMemoryLinkStore() *MemoryLinkStore {
	return &MemoryLinkStore{links: make(map[string]Link)}
}

func (s *MemoryLinkStore) Get(ctx context.Context, sessionID string) (*Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[sessionID]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

func (s *MemoryLinkStore) Set(ctx context.Context, link Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[link.SessionID] = link
	return nil
}

func (s *MemoryLinkStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.links, sessionID)
	return nil
}

func (s *MemoryLinkStore) ClearIf(ctx context.Context, sessionID string, appointmentID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[sessionID]
	if !ok || !link.Links(appointmentID) {
		return false, nil
	}
	delete(s.links, sessionID)
	return true, nil
}
