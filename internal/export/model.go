package export

import "time"

// Well-known role values. Source exports may carry other roles; those pass
// through as opaque strings rather than being rejected.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleUnknown   = "unknown"
)

// Turn is one role-attributed message within a conversation.
type Turn struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time

	// Parent is the index of this turn's parent within the conversation's
	// turn slice, or -1 when the source carries no parent link. An index is
	// stored instead of a pointer so linearized mapping trees never form
	// reference cycles.
	Parent int
}

// Conversation is one assembled export record. The assembler hands it out
// fully formed; nothing mutates it afterwards.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time // zero when the export carries no update time
	Turns     []Turn
}

// MessageCount returns the number of turns.
func (c *Conversation) MessageCount() int {
	return len(c.Turns)
}

// EffectiveDate returns the last-update time, falling back to the creation
// time when the export carried none.
func (c *Conversation) EffectiveDate() time.Time {
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// ExportStatistics aggregates one complete pass over an export file.
type ExportStatistics struct {
	TotalConversations int       `json:"total_conversations"`
	TotalMessages      int       `json:"total_messages"`
	AverageMessages    float64   `json:"average_messages"`
	EarliestTimestamp  time.Time `json:"earliest_timestamp"`
	LatestTimestamp    time.Time `json:"latest_timestamp"`

	// Largest and smallest conversation by turn count. Ties go to the
	// lexicographically smaller conversation id.
	LargestID            string `json:"largest_id"`
	LargestMessageCount  int    `json:"largest_message_count"`
	SmallestID           string `json:"smallest_id"`
	SmallestMessageCount int    `json:"smallest_message_count"`

	// SkippedMalformed counts records dropped by the assembler.
	SkippedMalformed int `json:"skipped_malformed"`
}
