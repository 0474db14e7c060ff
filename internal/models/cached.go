package models

// ReplyPreview is a one-hop inline rendering of a reply target so the
// feed does not need a second lookup.
type ReplyPreview struct {
	Author  string `json:"author"`
	Excerpt string `json:"excerpt"`
	IsHost  bool   `json:"is_host"`
}

// CachedMessage is the JSON projection of a Message stored in Redis.
// It is a member of the room's sorted set, scored by creation time in
// fractional seconds. Deserialization tolerates unknown fields, so
// fields may be added without invalidating older cached entries.
type CachedMessage struct {
	ID                 string           `json:"id"`
	RoomID             string           `json:"room_id"`
	Author             string           `json:"author"`
	AuthorID           string           `json:"author_id,omitempty"`
	UsernameIsReserved bool             `json:"username_is_reserved"`
	ReplyToID          string           `json:"reply_to_id,omitempty"`
	ReplyPreview       *ReplyPreview    `json:"reply_preview,omitempty"`
	Content            string           `json:"content"`
	Voice              *VoiceAttachment `json:"voice,omitempty"`
	Pinned             bool             `json:"pinned"`
	PinExpiresAt       float64          `json:"pin_expires_at,omitempty"` // unix seconds, 0 = not pinned
	PinAmount          float64          `json:"pin_amount,omitempty"`
	CreatedAt          float64          `json:"created_at"` // unix seconds, fractional
}
