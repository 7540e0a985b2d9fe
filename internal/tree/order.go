package tree

import (
	"errors"
	"sort"
)

// ErrNoOrderKey is returned when an ordered insert has to compare an entry
// that has no creation time.
var ErrNoOrderKey = errors.New("node has no ordering key")

// Orderable is anything that can sit in a time-ordered sibling list.
type Orderable interface {
	OrderKey() (float64, bool)
}

// insertOrdered inserts item into items, which must already be sorted by
// OrderKey. Equal keys keep insertion order. On error items is returned
// unchanged.
func insertOrdered[T Orderable](items []T, item T) ([]T, error) {
	if len(items) == 0 {
		return append(items, item), nil
	}

	key, ok := item.OrderKey()
	if !ok {
		return items, ErrNoOrderKey
	}

	var missing bool
	i := sort.Search(len(items), func(j int) bool {
		k, ok := items[j].OrderKey()
		if !ok {
			missing = true
			return true
		}
		return k > key
	})
	if missing {
		return items, ErrNoOrderKey
	}

	items = append(items, item)
	copy(items[i+1:], items[i:])
	items[i] = item
	return items, nil
}
