package demo

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Item is one entry in the demo list.
type Item struct {
	ID        string
	Title     string
	Done      bool
	CreatedAt time.Time

	seq int
}

// Stats summarises the store.
type Stats struct {
	Total int
	Done  int
}

// Store is an in-memory item store.
type Store struct {
	mu     sync.RWMutex
	items  map[string]*Item
	nextID int
	now    func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		items:  make(map[string]*Item),
		nextID: 1,
		now:    time.Now,
	}
}

// NewSampleStore creates a store with a few items.
func NewSampleStore() *Store {
	s := NewStore()
	s.Add("Buy groceries")
	s.Add("Review pull request")
	s.Add("Write documentation")
	return s
}

// Add creates an item and returns a copy of it. Blank titles are rejected.
func (s *Store) Add(title string) (Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Item{}, fmt.Errorf("title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("item-%d", s.nextID)
	s.nextID++
	it := &Item{ID: id, Title: title, CreatedAt: s.now(), seq: s.nextID - 1}
	s.items[id] = it
	return *it, nil
}

// Get returns a copy of the item with id.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Toggle flips the done flag.
func (s *Store) Toggle(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	it.Done = !it.Done
	return *it, true
}

// Delete removes an item by ID.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// List returns all items, oldest first.
func (s *Store) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		result = append(result, *it)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

// Stats returns counts of all and completed items.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, it := range s.items {
		st.Total++
		if it.Done {
			st.Done++
		}
	}
	return st
}
