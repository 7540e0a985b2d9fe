package forest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/arbor/internal/tree"
)

var (
	// ErrTreeNotFound is returned when no registered tree has the requested title.
	ErrTreeNotFound = errors.New("tree not found")
	// ErrBadPath is returned when a path index does not name a child.
	ErrBadPath = errors.New("path index out of range")
)

// LinearizeTitle renders a branch of the registered tree with the given
// title. When several registered trees share a title the last one wins.
func (f *Forest) LinearizeTitle(title string, path []int) (string, error) {
	root := f.Lookup(title)
	if root == nil {
		f.logger.Warn("tree not found, could not compile text", "title", title)
		return "", fmt.Errorf("%q: %w", title, ErrTreeNotFound)
	}
	return f.LinearizeBranch(root, path)
}

// Lookup returns the last registered root with the given title, or nil.
func (f *Forest) Lookup(title string) *tree.Node {
	var found *tree.Node
	for _, root := range f.Trees() {
		if root.Title() == title {
			found = root
		}
	}
	return found
}

// LinearizeBranch walks from root to a leaf and renders user and assistant
// messages as a transcript. At each branch point the next path entry
// (1-based) picks the child; once the path runs out the newest child is
// taken. path is not modified.
func (f *Forest) LinearizeBranch(root *tree.Node, path []int) (string, error) {
	var sb strings.Builder
	next := 0

	for node := root; ; {
		switch node.Author() {
		case "user":
			sb.WriteString("User:\n")
			sb.WriteString(node.Content())
			sb.WriteString("\n\n")
		case "assistant":
			sb.WriteString("Assistant:\n")
			sb.WriteString(node.Content())
			sb.WriteString("\n\n")
		}

		n := node.NumChildren()
		switch {
		case n == 0:
			return sb.String(), nil
		case n == 1:
			node = node.Child(0)
		case next < len(path):
			idx := path[next]
			next++
			if idx < 1 || idx > n {
				return "", fmt.Errorf("branch at %s has %d children, got index %d: %w", node.ID, n, idx, ErrBadPath)
			}
			node = node.Child(idx - 1)
		default:
			node = node.Child(n - 1)
		}
	}
}
