package memorystate

import (
	"context"
	"sort"
	"strings"
	"sync"

	"collaborative-canvas/internal/repository"
)

// MemoryRoomStore 是进程内的 RoomStore 实现，用于本地开发和测试。
// 进程退出后数据丢失。
type MemoryRoomStore struct {
	mu    sync.RWMutex
	rooms map[string]map[string][]byte
}

var _ repository.RoomStore = (*MemoryRoomStore)(nil)

// NewMemoryRoomStore 创建 MemoryRoomStore 实例
func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{rooms: make(map[string]map[string][]byte)}
}

func (s *MemoryRoomStore) Get(_ context.Context, roomID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.rooms[roomID][key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(value), nil
}

func (s *MemoryRoomStore) Put(_ context.Context, roomID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.rooms[roomID]
	if !ok {
		entries = make(map[string][]byte)
		s.rooms[roomID] = entries
	}
	entries[key] = clone(value)
	return nil
}

func (s *MemoryRoomStore) Delete(_ context.Context, roomID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms[roomID], key)
	return nil
}

func (s *MemoryRoomStore) DeletePrefix(_ context.Context, roomID, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.rooms[roomID] {
		if strings.HasPrefix(key, prefix) {
			delete(s.rooms[roomID], key)
		}
	}
	return nil
}

func (s *MemoryRoomStore) List(_ context.Context, roomID, prefix string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.rooms[roomID]
	keys := make([]string, 0, len(entries))
	for key := range entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, 0, len(keys))
	for _, key := range keys {
		values = append(values, clone(entries[key]))
	}
	return values, nil
}

func (s *MemoryRoomStore) DeleteAll(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
