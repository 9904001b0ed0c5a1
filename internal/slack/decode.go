package slack

// eventEnvelope is the outer Slack Events API payload. Type selects between
// url_verification and event_callback.
type eventEnvelope struct {
	Type      string       `json:"type"`
	Challenge string       `json:"challenge"`
	TeamID    string       `json:"team_id"`
	Event     messageEvent `json:"event"`
}

type messageEvent struct {
	Type    string     `json:"type"`
	Subtype string     `json:"subtype"`
	Channel string     `json:"channel"`
	User    string     `json:"user"`
	Text    string     `json:"text"`
	Files   []fileInfo `json:"files"`
}

type fileInfo struct {
	Mimetype   string `json:"mimetype"`
	URLPrivate string `json:"url_private"`
	Thumb360   string `json:"thumb_360"`
}
