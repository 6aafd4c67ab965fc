package connect

import (
	"sync"

	"connectrpc.com/connect"

	playerv1 "github.com/osa030/ringdeck/internal/api/playerv1"
)

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends are serialized; a ServerStream is not safe for concurrent use.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[playerv1.Notification]
}

func (a *notificationStreamAdapter) Send(notification *playerv1.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(notification)
}
