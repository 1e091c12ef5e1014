package chat

import (
	"errors"
	"fmt"
)

// ErrEmptyMessage rejects a send whose text is empty after trimming. No
// frame is emitted.
var ErrEmptyMessage = errors.New("message text is empty")

// ErrMessageTooLong rejects a send past the backend's length cap.
var ErrMessageTooLong = fmt.Errorf("message text exceeds %d characters", MaxMessageLen)

// ChannelNotReadyError means a send was attempted while the live channel is
// not open. Recoverable: the caller keeps the composed text and retries.
type ChannelNotReadyError struct {
	State State
}

func (e *ChannelNotReadyError) Error() string {
	return fmt.Sprintf("live channel not ready (state %s)", e.State)
}
