package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
	"github.com/roach88/vtree/internal/testutil"
)

var itemTpl = template.Must(template.New("test:item",
	template.Element("li", template.Attrs(template.Static("class", "item")), template.Dynamic(0))))

// createTestStore creates a store in a temp dir with deterministic session ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequenceIDs("sess")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestSession(t *testing.T, s *Store, f mutation.Format) Session {
	t.Helper()
	sess, err := s.CreateSession(context.Background(), "app", f)
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}

// mountBatch mounts one list item with text.
func mountBatch(gen uint64, text string) mutation.Batch {
	return mutation.Batch{Generation: gen, Edits: []mutation.Mutation{
		mutation.RegisterTemplate(itemTpl),
		mutation.LoadTemplate(itemTpl.ID, 0, 1),
		mutation.CreateTextNode(text, 2),
		mutation.ReplacePlaceholder(template.Path{0}, 1),
		mutation.AppendChildren(mutation.Root, 1),
	}}
}

func setTextBatch(gen uint64, text string) mutation.Batch {
	return mutation.Batch{Generation: gen, Edits: []mutation.Mutation{
		mutation.SetText(text, 2),
	}}
}
