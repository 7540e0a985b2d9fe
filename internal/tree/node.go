package tree

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/arbor/internal/archive"
)

var (
	// ErrAttached is returned when a node that already has a parent is attached again.
	ErrAttached = errors.New("node already has a parent")
	// ErrCycle is returned when an attach would make a node its own ancestor.
	ErrCycle = errors.New("link would create a cycle")
)

// Node is one message of a conversation tree. Children are kept sorted by
// creation time; the parent pointer is a back reference only.
type Node struct {
	ID       string
	ParentID string
	ChildIDs []string
	Valid    bool

	title      string
	author     string
	content    string
	createTime float64
	hasTime    bool

	parent   *Node
	children []*Node
}

// NewNode builds an unlinked node from a fragment. Fragments without a
// message payload become invalid placeholders with no author, content or
// timestamp.
func NewNode(f archive.Fragment, title string) *Node {
	n := &Node{
		ID:       f.ID,
		ParentID: f.Parent,
		ChildIDs: append([]string(nil), f.Children...),
		title:    title,
	}
	if !f.HasPayload() {
		return n
	}

	n.Valid = true
	n.author = f.Message.Author.Role
	n.content = f.Message.Text()
	if f.Message.CreateTime != nil {
		n.createTime = *f.Message.CreateTime
		n.hasTime = true
	}
	return n
}

// OrderKey implements Orderable.
func (n *Node) OrderKey() (float64, bool) {
	return n.createTime, n.hasTime
}

// AttachChild makes child a child of n, keeping n's children in time order.
func (n *Node) AttachChild(child *Node) error {
	if child.parent != nil {
		return fmt.Errorf("attach %s under %s: %w", child.ID, n.ID, ErrAttached)
	}
	if child == n || child.IsAncestorOf(n) {
		return fmt.Errorf("attach %s under %s: %w", child.ID, n.ID, ErrCycle)
	}
	children, err := insertOrdered(n.children, child)
	if err != nil {
		return fmt.Errorf("attach %s under %s: %w", child.ID, n.ID, err)
	}
	n.children = children
	child.parent = n
	return nil
}

// AttachToParent is AttachChild seen from the child, for when the parent is
// found after the child was built.
func (n *Node) AttachToParent(parent *Node) error {
	return parent.AttachChild(n)
}

// Path returns the 1-based sibling index at every branching ancestor, from
// the root down to n. Single-child hops contribute nothing.
func (n *Node) Path() []int {
	var rev []int
	for node := n; node.parent != nil; node = node.parent {
		siblings := node.parent.children
		if len(siblings) > 1 {
			rev = append(rev, indexOf(siblings, node)+1)
		}
	}

	path := make([]int, len(rev))
	for i, idx := range rev {
		path[len(rev)-1-i] = idx
	}
	return path
}

// Locate returns the node's path together with its conversation title.
func (n *Node) Locate() ([]int, string) {
	return n.Path(), n.title
}

// SearchDown returns every valid node in n's subtree whose content contains
// query, in pre-order.
func (n *Node) SearchDown(query string) []*Node {
	var results []*Node
	n.Walk(func(node *Node) {
		if node.Valid && strings.Contains(node.content, query) {
			results = append(results, node)
		}
	})
	return results
}

// Walk visits n and its descendants in pre-order, children in sorted order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// IsAncestorOf reports whether n appears on other's parent chain.
func (n *Node) IsAncestorOf(other *Node) bool {
	for node := other; node != nil; node = node.parent {
		if node.parent == n {
			return true
		}
	}
	return false
}

// Root follows parent links up from n.
func (n *Node) Root() *Node {
	node := n
	for node.parent != nil {
		node = node.parent
	}
	return node
}

// Equal compares nodes by id.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.ID == other.ID
}

// Is reports whether n has the given id.
func (n *Node) Is(id string) bool {
	return n.ID == id
}

func (n *Node) String() string {
	switch {
	case n.Valid:
		return n.content
	case n.ID != "":
		return n.ID
	default:
		return "none"
	}
}

func (n *Node) Parent() *Node { return n.parent }
func (n *Node) IsRoot() bool  { return n.parent == nil }
func (n *Node) Title() string { return n.title }

// Children returns a copy of the ordered children.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

func (n *Node) NumChildren() int {
	return len(n.children)
}

// Child returns the i-th child (0-based).
func (n *Node) Child(i int) *Node {
	return n.children[i]
}

func (n *Node) Author() string {
	return n.author
}

func (n *Node) Content() string {
	return n.content
}

// CreateTime returns the message creation time in epoch seconds.
func (n *Node) CreateTime() (float64, bool) {
	return n.createTime, n.hasTime
}

// Created converts CreateTime to a time.Time; zero when absent.
func (n *Node) Created() time.Time {
	if !n.hasTime {
		return time.Time{}
	}
	sec, frac := math.Modf(n.createTime)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Size counts the nodes in n's subtree.
func (n *Node) Size() int {
	count := 0
	n.Walk(func(*Node) { count++ })
	return count
}

func indexOf(nodes []*Node, target *Node) int {
	for i, node := range nodes {
		if node.Equal(target) {
			return i
		}
	}
	return -1
}
