package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"opsdesk/internal/activity"
)

// Memory is the in-process store used by tests and the dev profile.
type Memory struct {
	mu      sync.RWMutex
	entries []activity.Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Append(_ context.Context, entry activity.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Memory) List(_ context.Context, filter activity.Filter) ([]activity.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]activity.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.UserID != (uuid.UUID{}) && e.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		matched = append(matched, e)
	}

	// Newest first, matching the persistent store's ordering.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []activity.Entry{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}
