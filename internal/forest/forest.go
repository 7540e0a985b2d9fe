package forest

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MikeSquared-Agency/arbor/internal/archive"
	"github.com/MikeSquared-Agency/arbor/internal/metrics"
	"github.com/MikeSquared-Agency/arbor/internal/tree"
)

// ErrConversationNotFound is returned when a title is not in the archive.
var ErrConversationNotFound = errors.New("conversation not found")

// Specifier selects a conversation to build: by title, or a raw record.
type Specifier interface {
	resolve(a archive.Archive) (archive.Conversation, error)
}

type byTitle string

func (t byTitle) resolve(a archive.Archive) (archive.Conversation, error) {
	conv, ok := a.Find(string(t))
	if !ok {
		return archive.Conversation{}, fmt.Errorf("%q: %w", string(t), ErrConversationNotFound)
	}
	return conv, nil
}

type byRecord archive.Conversation

func (r byRecord) resolve(archive.Archive) (archive.Conversation, error) {
	return archive.Conversation(r), nil
}

// Title selects the first archive record with the given title.
func Title(title string) Specifier { return byTitle(title) }

// Record builds the given record directly.
func Record(conv archive.Conversation) Specifier { return byRecord(conv) }

// Forest holds an archive and the trees built from it.
type Forest struct {
	archive archive.Archive
	logger  *slog.Logger

	mu    sync.RWMutex
	trees []*tree.Node
}

// New creates a forest over an already decoded archive.
func New(a archive.Archive, logger *slog.Logger) *Forest {
	return &Forest{archive: a, logger: logger}
}

// Archive returns the underlying records.
func (f *Forest) Archive() archive.Archive {
	return f.archive
}

// BuildTree builds one tree per specifier, in order. Roots are registered
// when register is set; a root whose id is already registered is not added
// twice. Failures are logged and returned joined, alongside whatever roots
// were built.
func (f *Forest) BuildTree(register bool, specs ...Specifier) ([]*tree.Node, error) {
	var (
		roots []*tree.Node
		errs  []error
	)

	for _, spec := range specs {
		conv, err := spec.resolve(f.archive)
		if err != nil {
			f.logger.Warn("failed to find conversation", "error", err)
			metrics.BuildFailures.WithLabelValues("not_found").Inc()
			errs = append(errs, err)
			continue
		}

		root, err := tree.Build(conv)
		if err != nil {
			f.logger.Warn("failed to build conversation tree", "title", conv.Title, "error", err)
			metrics.BuildFailures.WithLabelValues("build").Inc()
			errs = append(errs, err)
			continue
		}

		if register {
			f.register(root)
		}
		roots = append(roots, root)

		f.logger.Debug("tree built", "title", conv.Title, "root", root.ID, "nodes", root.Size())
	}

	return roots, errors.Join(errs...)
}

// BuildAllTrees builds and registers every record in the archive.
func (f *Forest) BuildAllTrees() error {
	specs := make([]Specifier, len(f.archive))
	for i, conv := range f.archive {
		specs[i] = Record(conv)
	}
	roots, err := f.BuildTree(true, specs...)
	f.logger.Info("trees built", "conversations", len(f.archive), "built", len(roots))
	return err
}

func (f *Forest) register(root *tree.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.trees {
		if t.Equal(root) {
			return
		}
	}
	f.trees = append(f.trees, root)
	metrics.TreesRegistered.Set(float64(len(f.trees)))
}

// Trees returns the registered roots in registration order.
func (f *Forest) Trees() []*tree.Node {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*tree.Node(nil), f.trees...)
}

func (f *Forest) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.trees)
}

// SearchForString searches every registered tree, in registration order.
func (f *Forest) SearchForString(query string) []*tree.Node {
	var results []*tree.Node
	for _, root := range f.Trees() {
		results = append(results, root.SearchDown(query)...)
	}
	return results
}
