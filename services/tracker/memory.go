package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps tracked items in process memory
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Item
	now   func() time.Time
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]Item),
		now:   time.Now,
	}
}

// Create assigns an ID and creation time and stores the item
func (r *MemoryRepository) Create(ctx context.Context, item Item) (Item, error) {
	item.ID = uuid.NewString()
	item.CreatedAt = r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	return item, nil
}

// Get returns the item with id
func (r *MemoryRepository) Get(ctx context.Context, id string) (Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

// ListByEmail returns an email's items, oldest first
func (r *MemoryRepository) ListByEmail(ctx context.Context, email string) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []Item{}
	for _, item := range r.items {
		if item.Email == email {
			items = append(items, item)
		}
	}
	sortByCreation(items)
	return items, nil
}

// List returns every item, oldest first
func (r *MemoryRepository) List(ctx context.Context) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Item, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	sortByCreation(items)
	return items, nil
}

// Update replaces an existing item
func (r *MemoryRepository) Update(ctx context.Context, item Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return ErrNotFound
	}
	r.items[item.ID] = item
	return nil
}

// Delete removes the item with id
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func sortByCreation(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
