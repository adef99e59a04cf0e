package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

const (
	todoDescription = "Manage the local SmolMind todo list. Supports add/list/complete operations."
	todoFileName    = "todo.json"

	// EmptyTodoMessage is returned when listing an empty store.
	EmptyTodoMessage = "Todo list is empty. Use operation=add to insert new items."
)

// TodoInput is the argument payload of the todo tool.
type TodoInput struct {
	Operation string  `json:"operation"`
	Title     *string `json:"title"`
	TodoID    *int    `json:"todo_id"`
}

func (in *TodoInput) Validate() []FieldError {
	in.Operation = strings.ToLower(strings.TrimSpace(in.Operation))
	switch in.Operation {
	case "list":
	case "add":
		if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
			return []FieldError{{Field: "title", Reason: "adding a todo requires a non-empty title"}}
		}
	case "done", "complete":
		if in.TodoID == nil {
			return []FieldError{{Field: "todo_id", Reason: "completing a todo requires todo_id"}}
		}
	default:
		return []FieldError{{Field: "operation", Reason: fmt.Sprintf("unsupported todo operation %q", in.Operation)}}
	}
	return nil
}

// TodoSpec returns the todo tool.
func TodoSpec() *Spec {
	return NewSpec(TodoName, todoDescription, Schema{
		Required: []string{"operation"},
		Properties: map[string]Property{
			"operation": {
				Type:        "string",
				Description: "Operation: add, list, or complete.",
			},
			"title": {
				Type:        "string",
				Description: "Item text when adding a todo.",
			},
			"todo_id": {
				Type:        "integer",
				Description: "Numeric identifier when completing.",
			},
		},
	}, Todo)
}

// Todo runs one todo operation against the store in the context's data dir.
func Todo(_ context.Context, in TodoInput, tc *Context) (string, error) {
	store, err := OpenTodoStore(filepath.Join(tc.DataDir, todoFileName))
	if err != nil {
		return "", err
	}

	switch in.Operation {
	case "list":
		entries, err := store.List()
		if err != nil {
			return "", err
		}
		return formatTodos(entries), nil

	case "add":
		entry, err := store.Add(*in.Title)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Added todo #%d: %s", entry.ID, entry.Title), nil

	default: // done, complete
		entry, err := store.Complete(*in.TodoID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Marked todo #%d as complete.", entry.ID), nil
	}
}

func formatTodos(entries []v1alpha1.TodoEntry) string {
	if len(entries) == 0 {
		return EmptyTodoMessage
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		status := "⬜️"
		if e.Completed {
			status = "✅"
		}
		lines = append(lines, fmt.Sprintf("%s #%d %s", status, e.ID, e.Title))
	}
	return strings.Join(lines, "\n")
}

// TodoStore persists todo entries as a JSON array on disk.
// It is not safe for concurrent use across processes.
type TodoStore struct {
	path string
	now  func() time.Time
}

// OpenTodoStore opens the store at path, creating an empty array file when
// it does not exist yet.
func OpenTodoStore(path string) (*TodoStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating todo directory: %w", err)
	}
	s := &TodoStore{path: path, now: func() time.Time { return time.Now().UTC() }}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.write([]v1alpha1.TodoEntry{}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// List returns every entry. A corrupt file reads as an empty list.
func (s *TodoStore) List() ([]v1alpha1.TodoEntry, error) {
	return s.read()
}

// Add appends an entry with id = 1 + the highest existing id.
func (s *TodoStore) Add(title string) (v1alpha1.TodoEntry, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return v1alpha1.TodoEntry{}, fmt.Errorf("%w: cannot add an empty todo item", ErrValidation)
	}
	items, err := s.read()
	if err != nil {
		return v1alpha1.TodoEntry{}, err
	}

	next := 0
	for _, item := range items {
		if item.ID > next {
			next = item.ID
		}
	}
	entry := v1alpha1.TodoEntry{ID: next + 1, Title: title, CreatedAt: s.now()}
	items = append(items, entry)
	if err := s.write(items); err != nil {
		return v1alpha1.TodoEntry{}, err
	}
	return entry, nil
}

// Complete marks an entry done. Completing a finished entry is a no-op.
func (s *TodoStore) Complete(id int) (v1alpha1.TodoEntry, error) {
	items, err := s.read()
	if err != nil {
		return v1alpha1.TodoEntry{}, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if items[i].Completed {
			return items[i], nil
		}
		now := s.now()
		items[i].Completed = true
		items[i].CompletedAt = &now
		if err := s.write(items); err != nil {
			return v1alpha1.TodoEntry{}, err
		}
		return items[i], nil
	}
	return v1alpha1.TodoEntry{}, fmt.Errorf("%w: todo with id %d", ErrNotFound, id)
}

func (s *TodoStore) read() ([]v1alpha1.TodoEntry, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []v1alpha1.TodoEntry{}, nil
		}
		return nil, fmt.Errorf("reading todo store: %w", err)
	}
	var items []v1alpha1.TodoEntry
	if err := json.Unmarshal(raw, &items); err != nil {
		return []v1alpha1.TodoEntry{}, nil
	}
	return items, nil
}

func (s *TodoStore) write(items []v1alpha1.TodoEntry) error {
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding todo store: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("writing todo store: %w", err)
	}
	return nil
}
