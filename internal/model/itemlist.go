package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ListState tells an untouched item list apart from a populated one.
type ListState string

const (
	ListEmpty    ListState = "empty"
	ListNonEmpty ListState = "non_empty"
)

// ItemList is the ordered item array of a collection.
//
// Item ids come from a per-collection counter that only grows, so ids are never
// reused after deletion and are unrelated to array positions. An id -> position
// index is kept alongside the slice. The zero value is an empty list.
type ItemList struct {
	items  []Item
	nextID int64
	pos    map[int64]int
}

// State reports whether the list currently holds any items.
func (l *ItemList) State() ListState {
	if len(l.items) == 0 {
		return ListEmpty
	}
	return ListNonEmpty
}

// Len returns the number of items.
func (l *ItemList) Len() int { return len(l.items) }

// NextID returns the id the next appended item will receive.
func (l *ItemList) NextID() int64 {
	if l.nextID < 1 {
		return 1
	}
	return l.nextID
}

// Items returns a copy of the items in order.
func (l *ItemList) Items() []Item {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Get returns the item with the given id. The pointer stays valid until the
// next Append or Remove.
func (l *ItemList) Get(id int64) (*Item, bool) {
	l.ensureIndex()
	i, ok := l.pos[id]
	if !ok {
		return nil, false
	}
	return &l.items[i], true
}

// Append assigns the next id to it, stores it and returns the stored copy.
func (l *ItemList) Append(it Item) Item {
	l.ensureIndex()
	it.ID = l.NextID()
	l.nextID = it.ID + 1
	l.items = append(l.items, it)
	l.pos[it.ID] = len(l.items) - 1
	return it
}

// Remove deletes the item with the given id and reports whether it existed.
// The id counter is left untouched.
func (l *ItemList) Remove(id int64) bool {
	l.ensureIndex()
	i, ok := l.pos[id]
	if !ok {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.reindex()
	return true
}

func (l *ItemList) ensureIndex() {
	if l.pos == nil {
		l.reindex()
	}
}

func (l *ItemList) reindex() {
	l.pos = make(map[int64]int, len(l.items))
	for i := range l.items {
		l.pos[l.items[i].ID] = i
	}
}

type itemListJSON struct {
	State  ListState `json:"state"`
	NextID int64     `json:"nextId"`
	Items  []Item    `json:"items"`
}

// MarshalJSON encodes the list with its explicit state.
func (l ItemList) MarshalJSON() ([]byte, error) {
	items := l.items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(itemListJSON{State: l.State(), NextID: l.NextID(), Items: items})
}

// UnmarshalJSON decodes and validates a stored list.
func (l *ItemList) UnmarshalJSON(b []byte) error {
	var raw itemListJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.State {
	case ListEmpty:
		if len(raw.Items) != 0 {
			return errors.New("item list: empty state with items")
		}
	case ListNonEmpty:
		if len(raw.Items) == 0 {
			return errors.New("item list: non_empty state without items")
		}
	default:
		return fmt.Errorf("item list: unknown state %q", raw.State)
	}
	next := raw.NextID
	if next < 1 {
		next = 1
	}
	seen := make(map[int64]struct{}, len(raw.Items))
	for _, it := range raw.Items {
		if it.ID < 1 || it.ID >= next {
			return fmt.Errorf("item list: id %d outside [1,%d)", it.ID, next)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("item list: duplicate id %d", it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	l.items = raw.Items
	l.nextID = next
	l.reindex()
	return nil
}
