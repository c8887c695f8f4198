// Package store provides profile persistence: Postgres against the hosted
// relational backend and an in-memory implementation for unit tests.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"opsdesk/internal/profile"
	"opsdesk/pkg/platform/sentinel"
)

// Memory is a map-backed profile store.
type Memory struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*profile.Profile
}

func NewMemory() *Memory {
	return &Memory{profiles: make(map[uuid.UUID]*profile.Profile)}
}

func (m *Memory) FindByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) Create(ctx context.Context, p *profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[p.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *Memory) Update(ctx context.Context, p *profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[p.ID]; !exists {
		return sentinel.ErrNotFound
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *Memory) UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.LastActiveAt = &at
	return nil
}

func (m *Memory) List(ctx context.Context, filter profile.Filter) (*profile.Page, error) {
	m.mu.RLock()
	matched := make([]*profile.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		if matches(p, filter) {
			cp := *p
			matched = append(matched, &cp)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= total {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return &profile.Page{Profiles: matched, Total: total}, nil
}

func matches(p *profile.Profile, filter profile.Filter) bool {
	if filter.Role != "" && p.Role != filter.Role {
		return false
	}
	if filter.Status != "" && p.Status != filter.Status {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(p.Email), needle) &&
			!strings.Contains(strings.ToLower(p.FirstName), needle) &&
			!strings.Contains(strings.ToLower(p.LastName), needle) {
			return false
		}
	}
	return true
}
