package agent

import (
	"time"

	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// State is the append-only history of one conversation. Callers must not
// run two turns against the same State at once.
type State struct {
	History []v1alpha1.Message
}

// NewState starts a conversation, optionally from persisted history.
func NewState(history ...v1alpha1.Message) *State {
	return &State{History: append([]v1alpha1.Message(nil), history...)}
}

// Append adds a message, stamping it when no timestamp is set.
func (s *State) Append(m v1alpha1.Message) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	s.History = append(s.History, m)
}

// Window returns the trailing n messages (all of them when n <= 0).
func (s *State) Window(n int) []v1alpha1.Message {
	return window(s.History, n)
}

func window(history []v1alpha1.Message, n int) []v1alpha1.Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
