package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks setup problems that must abort startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnknownAgent is returned when naming an agent that is not in the table.
	ErrUnknownAgent = fmt.Errorf("%w: unknown agent", ErrConfiguration)

	// ErrEmptyReply is returned when the gateway hands back blank text.
	ErrEmptyReply = errors.New("model gateway returned an empty reply")
)
