package models

// ReactionSummary is a denormalized emoji count for one message. The
// durable store holds individual per-user reaction rows; summaries are
// rebuilt wholesale from those rows on every mutation.
type ReactionSummary struct {
	Emoji string `json:"emoji"`
	Count int64  `json:"count"`
}
