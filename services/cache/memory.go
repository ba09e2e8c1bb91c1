package cache

import (
	"sync"
	"time"
)

type memoryItem struct {
	value      []byte
	expiration time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// MemoryService is a process-local CacheService with TTL support
type MemoryService struct {
	data  map[string]memoryItem
	mutex sync.RWMutex
	now   func() time.Time
}

// NewMemoryService creates a new in-memory cache
func NewMemoryService() *MemoryService {
	return &MemoryService{
		data: make(map[string]memoryItem),
		now:  time.Now,
	}
}

// Get retrieves a value from the cache
func (m *MemoryService) Get(key string) ([]byte, error) {
	m.mutex.RLock()
	item, exists := m.data[key]
	m.mutex.RUnlock()

	if !exists {
		return nil, ErrCacheMiss
	}
	if item.expired(m.now()) {
		m.deleteIfExpired(key)
		return nil, ErrCacheMiss
	}

	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// deleteIfExpired removes key only if the entry stored now is still expired;
// a Set between the read and this lock keeps its fresh value.
func (m *MemoryService) deleteIfExpired(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if item, ok := m.data[key]; ok && item.expired(m.now()) {
		delete(m.data, key)
	}
}

// Set stores a value; a zero expiration never expires
func (m *MemoryService) Set(key string, value []byte, expiration time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	item := memoryItem{value: stored}
	if expiration > 0 {
		item.expiration = m.now().Add(expiration)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data[key] = item
	m.sweepLocked()
	return nil
}

// Delete removes a value from the cache
func (m *MemoryService) Delete(key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.data, key)
	return nil
}

// Size returns the number of stored entries, expired ones included
func (m *MemoryService) Size() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.data)
}

// sweepLocked drops expired entries once the map grows past a small bound
func (m *MemoryService) sweepLocked() {
	if len(m.data) < 1024 {
		return
	}
	now := m.now()
	for key, item := range m.data {
		if item.expired(now) {
			delete(m.data, key)
		}
	}
}
