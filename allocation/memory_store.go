package allocation

import (
	"context"
	"sync"
	"time"
)

// MemoryExposureStore is an in-process ExposureStore. Updates for the same viewer
// are serialized by a per-viewer mutex.
type MemoryExposureStore struct {
	mu      sync.Mutex
	viewers map[string]*ViewerExposure
	locks   map[string]*sync.Mutex
}

// NewMemoryExposureStore creates an empty store.
func NewMemoryExposureStore() *MemoryExposureStore {
	return &MemoryExposureStore{
		viewers: make(map[string]*ViewerExposure),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *MemoryExposureStore) viewerLock(viewerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[viewerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[viewerID] = l
	}
	return l
}

// lockViewer locks the current mutex of viewerID. Prune may retire a mutex while a
// caller waits on it, so the caller retries until it holds the registered one.
func (s *MemoryExposureStore) lockViewer(viewerID string) *sync.Mutex {
	for {
		l := s.viewerLock(viewerID)
		l.Lock()
		s.mu.Lock()
		current := s.locks[viewerID]
		s.mu.Unlock()
		if current == l {
			return l
		}
		l.Unlock()
	}
}

func (s *MemoryExposureStore) Load(ctx context.Context, viewerID string) (*ViewerExposure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewers[viewerID].Clone(), nil
}

func (s *MemoryExposureStore) Update(ctx context.Context, viewerID string, fn func(*ViewerExposure) error) error {
	l := s.lockViewer(viewerID)
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	state := s.viewers[viewerID].Clone()
	s.mu.Unlock()

	if err := fn(state); err != nil {
		return err
	}

	s.mu.Lock()
	s.viewers[viewerID] = state
	s.mu.Unlock()
	return nil
}

func (s *MemoryExposureStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.viewers))
	for id := range s.viewers {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var removed int64
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		l := s.lockViewer(id)
		s.mu.Lock()
		if state, ok := s.viewers[id]; ok {
			removed += int64(state.PruneBefore(olderThan))
			if state.IsEmpty() {
				delete(s.viewers, id)
				delete(s.locks, id)
			}
		}
		s.mu.Unlock()
		l.Unlock()
	}
	return removed, nil
}
