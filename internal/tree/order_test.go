package tree

import (
	"errors"
	"testing"
)

type stamp struct {
	name string
	ts   float64
	ok   bool
}

func (s stamp) OrderKey() (float64, bool) { return s.ts, s.ok }

func names(items []stamp) string {
	var out string
	for _, s := range items {
		out += s.name
	}
	return out
}

func TestInsertOrdered(t *testing.T) {
	var items []stamp
	var err error
	for _, s := range []stamp{
		{"c", 3, true},
		{"a", 1, true},
		{"d", 4, true},
		{"b", 2, true},
		{"B", 2, true},
	} {
		items, err = insertOrdered(items, s)
		if err != nil {
			t.Fatalf("insert %s: %v", s.name, err)
		}
	}
	if got := names(items); got != "abBcd" {
		t.Errorf("order = %s, want abBcd", got)
	}
}

func TestInsertOrdered_MissingKey(t *testing.T) {
	items, err := insertOrdered(nil, stamp{name: "x"})
	if err != nil {
		t.Fatalf("empty insert needs no key: %v", err)
	}

	after, err := insertOrdered(items, stamp{"y", 1, true})
	if !errors.Is(err, ErrNoOrderKey) {
		t.Fatalf("expected ErrNoOrderKey comparing against keyless entry, got %v", err)
	}
	if names(after) != "x" {
		t.Errorf("slice changed on error: %s", names(after))
	}

	keyed := []stamp{{"a", 1, true}}
	after, err = insertOrdered(keyed, stamp{name: "z"})
	if !errors.Is(err, ErrNoOrderKey) {
		t.Fatalf("expected ErrNoOrderKey for keyless item, got %v", err)
	}
	if names(after) != "a" {
		t.Errorf("slice changed on error: %s", names(after))
	}
}
