package line

// webhookPayload is one LINE webhook delivery body. A single delivery may
// carry multiple events.
type webhookPayload struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type    string         `json:"type"`
	Source  eventSource    `json:"source"`
	Message messagePayload `json:"message"`
}

// eventSource identifies the originating chat. Exactly one of the three id
// fields is set depending on Type.
type eventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
	RoomID  string `json:"roomId"`
}

// chatID returns the id matching the source type, or "" for source types
// the bridge does not know.
func (s eventSource) chatID() string {
	switch s.Type {
	case "user":
		return s.UserID
	case "group":
		return s.GroupID
	case "room":
		return s.RoomID
	default:
		return ""
	}
}

type messagePayload struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	PackageID string `json:"packageId"`
	StickerID string `json:"stickerId"`
}
