package forest

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/arbor/internal/archive"
	"github.com/MikeSquared-Agency/arbor/internal/tree"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func msg(id, parent, role, text string, ts float64, children ...string) archive.Fragment {
	return archive.Fragment{ID: id, Parent: parent, Children: children, Message: archive.NewTextMessage(role, text, ts)}
}

func testArchive() archive.Archive {
	return archive.Archive{
		{
			Title: "Reverse a list",
			Mapping: archive.NewMapping(
				msg("a1", "u1", "assistant", "Use slices.Reverse.", 2, "u2", "u3"),
				archive.Fragment{ID: "root", Children: []string{"sys"}},
				archive.Fragment{ID: "sys", Parent: "root", Children: []string{"u1"}, Message: archive.NewTextMessage("system", "You are helpful.", 0)},
				msg("u1", "sys", "user", "How do I reverse a list?", 1, "a1"),
				msg("u2", "a1", "user", "And a string?", 3, "a2"),
				msg("a2", "u2", "assistant", "Convert to runes first.", 4),
				msg("u3", "a1", "user", "What about in place?", 5, "a3"),
				msg("a3", "u3", "assistant", "slices.Reverse is already in place.", 6, "t3"),
				msg("t3", "a3", "tool", "reverse list output", 7),
			),
		},
		{
			Title: "Dinner ideas",
			Mapping: archive.NewMapping(
				archive.Fragment{ID: "r", Children: []string{"q"}, Message: &archive.Message{}},
				msg("q", "r", "user", "Something with a list of vegetables?", 10, "ans"),
				msg("ans", "q", "assistant", "Ratatouille.", 11),
			),
		},
		{Title: "Broken", Mapping: archive.Mapping{}},
	}
}

func TestBuildTree_ByTitleAndRecord(t *testing.T) {
	a := testArchive()
	f := New(a, quietLogger())

	roots, err := f.BuildTree(true, Title("Dinner ideas"), Record(a[0]))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0].Title() != "Dinner ideas" || roots[1].Title() != "Reverse a list" {
		t.Errorf("roots out of input order: %q, %q", roots[0].Title(), roots[1].Title())
	}
	if roots[1].ID != "root" {
		t.Errorf("root id = %s, want root", roots[1].ID)
	}
	if f.Len() != 2 {
		t.Errorf("registered = %d, want 2", f.Len())
	}
}

func TestBuildTree_NoRegister(t *testing.T) {
	f := New(testArchive(), quietLogger())

	roots, err := f.BuildTree(false, Title("Dinner ideas"))
	if err != nil || len(roots) != 1 {
		t.Fatalf("roots=%d err=%v", len(roots), err)
	}
	if f.Len() != 0 {
		t.Errorf("register=false should not register, got %d", f.Len())
	}
}

func TestBuildTree_Idempotent(t *testing.T) {
	f := New(testArchive(), quietLogger())

	for i := 0; i < 3; i++ {
		if _, err := f.BuildTree(true, Title("Reverse a list")); err != nil {
			t.Fatal(err)
		}
	}
	if f.Len() != 1 {
		t.Errorf("duplicate roots registered: %d", f.Len())
	}
}

func TestBuildTree_MissingTitleContinues(t *testing.T) {
	f := New(testArchive(), quietLogger())

	roots, err := f.BuildTree(true, Title("Nope"), Title("Dinner ideas"))
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
	if len(roots) != 1 || roots[0].Title() != "Dinner ideas" {
		t.Fatalf("expected remaining input to be built, got %d roots", len(roots))
	}
}

func TestBuildAllTrees(t *testing.T) {
	f := New(testArchive(), quietLogger())

	err := f.BuildAllTrees()
	if !errors.Is(err, tree.ErrEmptyMapping) {
		t.Errorf("expected the broken record to be reported, got %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("registered = %d, want 2", f.Len())
	}
	if f.Trees()[0].Title() != "Reverse a list" {
		t.Errorf("registration order not preserved")
	}
}

func TestSearchForString(t *testing.T) {
	f := New(testArchive(), quietLogger())
	_ = f.BuildAllTrees()

	var got []string
	for _, n := range f.SearchForString("list") {
		got = append(got, n.ID)
	}
	want := []string{"u1", "t3", "q"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hits = %v, want %v", got, want)
	}

	// An empty message object is a placeholder and never matches.
	for _, n := range f.SearchForString("") {
		if n.ID == "r" || n.ID == "root" {
			t.Errorf("placeholder %s returned by search", n.ID)
		}
	}

	if hits := f.SearchForString("no such text"); len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestLinearizeBranch_DefaultsToNewest(t *testing.T) {
	f := New(testArchive(), quietLogger())
	_ = f.BuildAllTrees()

	text, err := f.LinearizeTitle("Reverse a list", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "User:\nHow do I reverse a list?\n\n" +
		"Assistant:\nUse slices.Reverse.\n\n" +
		"User:\nWhat about in place?\n\n" +
		"Assistant:\nslices.Reverse is already in place.\n\n"
	if text != want {
		t.Errorf("transcript =\n%s\nwant\n%s", text, want)
	}
	if strings.Contains(text, "You are helpful") || strings.Contains(text, "reverse list output") {
		t.Error("system and tool messages must be skipped")
	}
}

func TestLinearizeBranch_FollowsPath(t *testing.T) {
	f := New(testArchive(), quietLogger())
	_ = f.BuildAllTrees()

	path := []int{1}
	text, err := f.LinearizeTitle("Reverse a list", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(text, "User:\nAnd a string?\n\nAssistant:\nConvert to runes first.\n\n") {
		t.Errorf("path [1] should follow the first branch, got\n%s", text)
	}
	if !reflect.DeepEqual(path, []int{1}) {
		t.Errorf("caller's path was modified: %v", path)
	}
}

func TestLinearizeBranch_RoundTrip(t *testing.T) {
	f := New(testArchive(), quietLogger())
	_ = f.BuildAllTrees()

	for _, hit := range f.SearchForString("") {
		path, title := hit.Locate()
		text, err := f.LinearizeTitle(title, path)
		if err != nil {
			t.Fatalf("%s: %v", hit.ID, err)
		}
		if hit.Author() == "user" || hit.Author() == "assistant" {
			if !strings.Contains(text, hit.Content()) {
				t.Errorf("transcript for path %v does not reach %s", path, hit.ID)
			}
		}
	}
}

func TestLinearizeBranch_Errors(t *testing.T) {
	f := New(testArchive(), quietLogger())
	_ = f.BuildAllTrees()

	if _, err := f.LinearizeTitle("Unknown", nil); !errors.Is(err, ErrTreeNotFound) {
		t.Errorf("expected ErrTreeNotFound, got %v", err)
	}
	if _, err := f.LinearizeTitle("Reverse a list", []int{3}); !errors.Is(err, ErrBadPath) {
		t.Errorf("expected ErrBadPath for 3, got %v", err)
	}
	if _, err := f.LinearizeTitle("Reverse a list", []int{0}); !errors.Is(err, ErrBadPath) {
		t.Errorf("expected ErrBadPath for 0, got %v", err)
	}
}

func TestLinearizeBranch_ScenarioLastChild(t *testing.T) {
	conv := archive.Conversation{
		Title: "Scenario",
		Mapping: archive.NewMapping(
			msg("C", "A", "user", "older", 1),
			archive.Fragment{ID: "A", Children: []string{"B", "C"}},
			msg("B", "A", "user", "newer", 2),
		),
	}
	f := New(nil, quietLogger())
	roots, err := f.BuildTree(true, Record(conv))
	if err != nil {
		t.Fatal(err)
	}

	text, err := f.LinearizeBranch(roots[0], []int{})
	if err != nil {
		t.Fatal(err)
	}
	if text != "User:\nnewer\n\n" {
		t.Errorf("transcript = %q, want the newest branch", text)
	}
}

func TestLookup_LastRegisteredWins(t *testing.T) {
	first := archive.Conversation{Title: "Same", Mapping: archive.NewMapping(msg("one", "", "user", "first", 1))}
	second := archive.Conversation{Title: "Same", Mapping: archive.NewMapping(msg("two", "", "user", "second", 2))}

	f := New(archive.Archive{first, second}, quietLogger())
	_ = f.BuildAllTrees()

	if root := f.Lookup("Same"); root == nil || root.ID != "two" {
		t.Errorf("Lookup should return the last registered tree, got %v", root)
	}
	if f.Lookup("Other") != nil {
		t.Error("unknown title should return nil")
	}
}
