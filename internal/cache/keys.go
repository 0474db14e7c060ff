package cache

import "fmt"

// Key schema. Rooms are identified by their durable UUID, never the
// human-readable short code, so distinct rooms that reuse a code can
// never collide in the fast store.

// messagesKey returns the key for a room's message sorted set.
func messagesKey(roomID string) string {
	return fmt.Sprintf("messages:%s", roomID)
}

// pinnedKey returns the key holding one pinned message's cached record.
func pinnedKey(roomID, msgID string) string {
	return fmt.Sprintf("pinned:%s:%s", roomID, msgID)
}

// pinnedOrderKey returns the key for a room's pin-order sorted set,
// scored by amount paid.
func pinnedOrderKey(roomID string) string {
	return fmt.Sprintf("pinned_order:%s", roomID)
}

// reactionsKey returns the key for a message's emoji-count hash.
func reactionsKey(roomID, msgID string) string {
	return fmt.Sprintf("reactions:%s:%s", roomID, msgID)
}

// blockedKey returns the key for a user's blocked-username set.
func blockedKey(userID string) string {
	return fmt.Sprintf("blocked:%s", userID)
}
