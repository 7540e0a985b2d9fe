package tree

import (
	"errors"
	"fmt"

	"github.com/MikeSquared-Agency/arbor/internal/archive"
)

// ErrEmptyMapping is returned when a conversation has no fragments to build from.
var ErrEmptyMapping = errors.New("conversation mapping is empty")

// Build links every fragment reachable from the mapping's first entry into
// one tree and returns its root. Fragments may reference parents or children
// that have not been visited yet; whichever side is built second completes
// the link.
func Build(conv archive.Conversation) (*Node, error) {
	m := conv.Mapping
	if m.Len() == 0 {
		return nil, fmt.Errorf("build %q: %w", conv.Title, ErrEmptyMapping)
	}

	seed := m.Order[0]
	queue := []string{seed}
	seen := map[string]bool{seed: true}
	resolved := make(map[string]*Node, m.Len())

	enqueue := func(id string) {
		if id == "" || seen[id] {
			return
		}
		if _, ok := m.Get(id); !ok {
			return
		}
		queue = append(queue, id)
		seen[id] = true
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		frag, _ := m.Get(id)
		node := NewNode(frag, conv.Title)

		if parent, ok := resolved[node.ParentID]; ok {
			if err := parent.AttachChild(node); err != nil {
				return nil, fmt.Errorf("build %q: %w", conv.Title, err)
			}
		} else {
			enqueue(node.ParentID)
		}

		for _, childID := range node.ChildIDs {
			if child, ok := resolved[childID]; ok {
				if child.parent != nil {
					// Already linked through its own parent id.
					continue
				}
				if err := child.AttachToParent(node); err != nil {
					return nil, fmt.Errorf("build %q: %w", conv.Title, err)
				}
				continue
			}
			enqueue(childID)
		}

		resolved[id] = node
	}

	return resolved[seed].Root(), nil
}
