// internal/socket/broadcaster.go
package socket

// Broadcaster is the surface services use to push lifecycle events to
// connected members without depending on hub internals.
type Broadcaster struct {
	hub *Hub
}

func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// SendNotification pushes a stored notification to the member's open
// connections.
func (b *Broadcaster) SendNotification(memberID string, payload map[string]interface{}) {
	if b == nil || b.hub == nil {
		return
	}
	b.hub.SendToMember(memberID, MessageNotification, payload)
}

// SendStatusChanged tells the member their membership status moved.
func (b *Broadcaster) SendStatusChanged(memberID, fromStatus, toStatus, reason string) {
	if b == nil || b.hub == nil {
		return
	}
	b.hub.SendToMember(memberID, MessageStatusChanged, map[string]interface{}{
		"from":   fromStatus,
		"to":     toStatus,
		"reason": reason,
	})
}

// SendRoleChanged tells the member their role moved.
func (b *Broadcaster) SendRoleChanged(memberID, fromRole, toRole string) {
	if b == nil || b.hub == nil {
		return
	}
	b.hub.SendToMember(memberID, MessageRoleChanged, map[string]interface{}{
		"from": fromRole,
		"to":   toRole,
	})
}
