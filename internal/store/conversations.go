package store

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// Conversations stores chat sessions on top of a Store.
type Conversations struct {
	store Store
	now   func() time.Time
}

// NewConversations wraps s.
func NewConversations(s Store) *Conversations {
	return &Conversations{store: s, now: time.Now}
}

// New creates an empty conversation. An empty name gets a random UUID.
func (c *Conversations) New(name string) (*v1alpha1.Conversation, error) {
	if name == "" {
		name = uuid.NewString()
	}
	now := c.now().UTC()
	conv := &v1alpha1.Conversation{
		TypeMeta: v1alpha1.TypeMeta{APIVersion: v1alpha1.APIVersion, Kind: v1alpha1.KindConversation},
		Metadata: v1alpha1.ObjectMeta{
			Name:      name,
			UID:       uuid.NewString(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		History: []v1alpha1.Message{},
	}
	if err := c.store.Create(ResourceKey(v1alpha1.KindConversation, name), conv); err != nil {
		return nil, fmt.Errorf("creating conversation %s: %w", name, err)
	}
	return conv, nil
}

// Get loads the conversation called name.
func (c *Conversations) Get(name string) (*v1alpha1.Conversation, error) {
	var conv v1alpha1.Conversation
	if err := c.store.Get(ResourceKey(v1alpha1.KindConversation, name), &conv); err != nil {
		return nil, fmt.Errorf("conversation %s: %w", name, err)
	}
	return &conv, nil
}

// Open loads name, creating it when it does not exist yet.
func (c *Conversations) Open(name string) (*v1alpha1.Conversation, error) {
	conv, err := c.Get(name)
	if errors.Is(err, ErrNotFound) {
		return c.New(name)
	}
	return conv, err
}

// Save writes conv back, bumping its UpdatedAt.
func (c *Conversations) Save(conv *v1alpha1.Conversation) error {
	conv.Metadata.UpdatedAt = c.now().UTC()
	if err := c.store.Update(ResourceKey(v1alpha1.KindConversation, conv.Metadata.Name), conv); err != nil {
		return fmt.Errorf("saving conversation %s: %w", conv.Metadata.Name, err)
	}
	return nil
}

// Delete removes the conversation called name.
func (c *Conversations) Delete(name string) error {
	if err := c.store.Delete(ResourceKey(v1alpha1.KindConversation, name)); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", name, err)
	}
	return nil
}

// List returns every conversation, most recently updated first.
func (c *Conversations) List() ([]*v1alpha1.Conversation, error) {
	items, err := c.store.List(KindPrefix(v1alpha1.KindConversation), func() interface{} {
		return &v1alpha1.Conversation{}
	})
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	convs := make([]*v1alpha1.Conversation, 0, len(items))
	for _, item := range items {
		convs = append(convs, item.(*v1alpha1.Conversation))
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].Metadata.UpdatedAt.After(convs[j].Metadata.UpdatedAt)
	})
	return convs, nil
}
