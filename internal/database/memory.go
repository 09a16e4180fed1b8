package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Alias1177/NovaAnalyst/models"
)

// Memory is an in-process Store used when Postgres is not configured
type Memory struct {
	mu       sync.RWMutex
	watches  map[int64][]models.WatchlistEntry
	personas map[int64]string
	now      func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		watches:  make(map[int64][]models.WatchlistEntry),
		personas: make(map[int64]string),
		now:      time.Now,
	}
}

func (m *Memory) AddWatch(_ context.Context, chatID int64, query, persona string) (bool, error) {
	query = normalizeQuery(query)

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.watches[chatID]
	for _, e := range list {
		if e.Query == query {
			return false, nil
		}
	}
	if len(list) >= MaxWatchlist {
		return false, ErrWatchlistFull
	}

	m.watches[chatID] = append(list, models.WatchlistEntry{
		ChatID:    chatID,
		Query:     query,
		Persona:   persona,
		CreatedAt: m.now().UTC(),
	})
	return true, nil
}

func (m *Memory) RemoveWatch(_ context.Context, chatID int64, query string) (bool, error) {
	query = normalizeQuery(query)

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.watches[chatID]
	for i, e := range list {
		if e.Query == query {
			m.watches[chatID] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ListWatchlist(_ context.Context, chatID int64) ([]models.WatchlistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]models.WatchlistEntry(nil), m.watches[chatID]...), nil
}

func (m *Memory) AllWatchlists(_ context.Context) ([]models.WatchlistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chats := make([]int64, 0, len(m.watches))
	for id := range m.watches {
		chats = append(chats, id)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })

	var out []models.WatchlistEntry
	for _, id := range chats {
		out = append(out, m.watches[id]...)
	}
	return out, nil
}

func (m *Memory) SetPersona(_ context.Context, chatID int64, persona string) error {
	m.mu.Lock()
	m.personas[chatID] = persona
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetPersona(_ context.Context, chatID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.personas[chatID], nil
}

func (m *Memory) Close() error { return nil }

// GroupByChat splits entries into per-chat lists, preserving order
func GroupByChat(entries []models.WatchlistEntry) map[int64][]models.WatchlistEntry {
	out := make(map[int64][]models.WatchlistEntry)
	for _, e := range entries {
		out[e.ChatID] = append(out[e.ChatID], e)
	}
	return out
}
