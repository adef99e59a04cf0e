package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// backends returns a fresh instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	bolt, err := NewBoltStore(filepath.Join(t.TempDir(), "smolmind.db"))
	if err != nil {
		t.Fatalf("unexpected error opening bolt store: %v", err)
	}
	t.Cleanup(func() { bolt.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"bolt":   bolt,
	}
}

func newTestConversation(name string, texts ...string) *v1alpha1.Conversation {
	conv := &v1alpha1.Conversation{
		TypeMeta: v1alpha1.TypeMeta{
			APIVersion: v1alpha1.APIVersion,
			Kind:       v1alpha1.KindConversation,
		},
		Metadata: v1alpha1.ObjectMeta{Name: name},
	}
	for _, text := range texts {
		conv.History = append(conv.History, v1alpha1.Message{Role: v1alpha1.RoleUser, Content: text})
	}
	return conv
}

func TestCRUD(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			key := ResourceKey(v1alpha1.KindConversation, "crud")

			if err := s.Create(key, newTestConversation("crud", "hello")); err != nil {
				t.Fatalf("unexpected error on Create: %v", err)
			}
			if err := s.Create(key, newTestConversation("crud")); !errors.Is(err, ErrAlreadyExists) {
				t.Fatalf("expected ErrAlreadyExists, got %v", err)
			}

			var got v1alpha1.Conversation
			if err := s.Get(key, &got); err != nil {
				t.Fatalf("unexpected error on Get: %v", err)
			}
			if len(got.History) != 1 || got.History[0].Content != "hello" {
				t.Errorf("expected one message 'hello', got %+v", got.History)
			}

			if err := s.Update(key, newTestConversation("crud", "hello", "again")); err != nil {
				t.Fatalf("unexpected error on Update: %v", err)
			}
			if err := s.Get(key, &got); err != nil {
				t.Fatalf("unexpected error on Get after Update: %v", err)
			}
			if len(got.History) != 2 {
				t.Errorf("expected 2 messages after update, got %d", len(got.History))
			}

			if err := s.Delete(key); err != nil {
				t.Fatalf("unexpected error on Delete: %v", err)
			}
			if err := s.Get(key, &got); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after Delete, got %v", err)
			}
		})
	}
}

func TestMissingKeys(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			key := ResourceKey(v1alpha1.KindConversation, "ghost")

			var got v1alpha1.Conversation
			if err := s.Get(key, &got); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound on Get, got %v", err)
			}
			if err := s.Update(key, newTestConversation("ghost")); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound on Update, got %v", err)
			}
			if err := s.Delete(key); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound on Delete, got %v", err)
			}
		})
	}
}

func TestListPrefixAndOrder(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, n := range []string{"b", "c", "a"} {
				if err := s.Create(ResourceKey(v1alpha1.KindConversation, n), newTestConversation(n)); err != nil {
					t.Fatalf("unexpected error creating %s: %v", n, err)
				}
			}
			if err := s.Create(ResourceKey("Other", "z"), newTestConversation("z")); err != nil {
				t.Fatalf("unexpected error creating other: %v", err)
			}

			factory := func() interface{} { return &v1alpha1.Conversation{} }
			results, err := s.List(KindPrefix(v1alpha1.KindConversation), factory)
			if err != nil {
				t.Fatalf("unexpected error on List: %v", err)
			}
			if len(results) != 3 {
				t.Fatalf("expected 3 results, got %d", len(results))
			}
			for i, want := range []string{"a", "b", "c"} {
				got := results[i].(*v1alpha1.Conversation).Metadata.Name
				if got != want {
					t.Errorf("expected %s at %d, got %s", want, i, got)
				}
			}

			results, err = s.List("/NonExistentKind/", factory)
			if err != nil {
				t.Fatalf("unexpected error on List: %v", err)
			}
			if len(results) != 0 {
				t.Errorf("expected 0 results, got %d", len(results))
			}
		})
	}
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smolmind.db")
	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	key := ResourceKey(v1alpha1.KindConversation, "persist")
	if err := s.Create(key, newTestConversation("persist", "remember me")); err != nil {
		t.Fatalf("unexpected error on Create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error on Close: %v", err)
	}

	s, err = NewBoltStore(path)
	if err != nil {
		t.Fatalf("unexpected error reopening store: %v", err)
	}
	defer s.Close()

	var got v1alpha1.Conversation
	if err := s.Get(key, &got); err != nil {
		t.Fatalf("unexpected error on Get: %v", err)
	}
	if got.History[0].Content != "remember me" {
		t.Errorf("expected 'remember me', got %q", got.History[0].Content)
	}
}

func TestConversations(t *testing.T) {
	convs := NewConversations(NewMemoryStore())
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	convs.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first, err := convs.New("first")
	if err != nil {
		t.Fatalf("unexpected error on New: %v", err)
	}
	if first.Metadata.UID == "" {
		t.Errorf("expected a UID to be assigned")
	}
	if first.Kind != v1alpha1.KindConversation {
		t.Errorf("expected kind Conversation, got %s", first.Kind)
	}

	anon, err := convs.New("")
	if err != nil {
		t.Fatalf("unexpected error on New: %v", err)
	}
	if anon.Metadata.Name == "" {
		t.Errorf("expected generated name")
	}

	if _, err := convs.New("first"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	first.History = append(first.History, v1alpha1.Message{Role: v1alpha1.RoleUser, Content: "hi"})
	if err := convs.Save(first); err != nil {
		t.Fatalf("unexpected error on Save: %v", err)
	}

	list, err := convs.List()
	if err != nil {
		t.Fatalf("unexpected error on List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(list))
	}
	if list[0].Metadata.Name != "first" {
		t.Errorf("expected most recently saved first, got %s", list[0].Metadata.Name)
	}

	reopened, err := convs.Open("first")
	if err != nil {
		t.Fatalf("unexpected error on Open: %v", err)
	}
	if len(reopened.History) != 1 {
		t.Errorf("expected 1 message, got %d", len(reopened.History))
	}

	created, err := convs.Open("brand-new")
	if err != nil {
		t.Fatalf("unexpected error on Open: %v", err)
	}
	if len(created.History) != 0 {
		t.Errorf("expected empty history, got %d", len(created.History))
	}

	if err := convs.Delete("first"); err != nil {
		t.Fatalf("unexpected error on Delete: %v", err)
	}
	if _, err := convs.Get("first"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := convs.Save(first); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound saving deleted conversation, got %v", err)
	}
}
