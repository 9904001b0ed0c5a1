// Package bridge defines the channel endpoints, bridge pairs, and the
// platform-agnostic inbound event model shared by both relay directions.
package bridge

// SlackChannel is one Slack endpoint. Inbound matching uses (TeamID,
// ChannelID); Name is the join key referenced by bridges.
type SlackChannel struct {
	Name       string
	TeamID     string
	ChannelID  string
	Token      string // legacy outgoing-webhook token, optional
	WebhookURL string
}

// LineChannel is one LINE endpoint. Inbound matching uses the
// platform-assigned ID; Name is the join key referenced by bridges.
type LineChannel struct {
	Name string
	ID   string
}

// Bridge pairs one Slack endpoint with one LINE endpoint by name. Multiple
// bridges may share an endpoint for fan-out, and lookups work from either
// side.
type Bridge struct {
	Slack string
	Line  string
}

// ContentKind tags the decoded payload variant of an Event.
type ContentKind string

const (
	KindText    ContentKind = "text"
	KindImage   ContentKind = "image"
	KindSticker ContentKind = "sticker"
	KindOther   ContentKind = "other"
)

// Content is the tagged union of inbound payload variants. Decoding validates
// fields once at the boundary; anything unrecognized becomes OtherContent.
type Content interface {
	Kind() ContentKind
}

// TextContent is a plain text message.
type TextContent struct {
	Text string
}

func (TextContent) Kind() ContentKind { return KindText }

// ImageContent references a protected remote image and its preview variant.
type ImageContent struct {
	URL        string
	PreviewURL string
}

func (ImageContent) Kind() ContentKind { return KindImage }

// StickerContent identifies a LINE sticker by pack and sticker id.
type StickerContent struct {
	PackageID string
	StickerID string
}

func (StickerContent) Kind() ContentKind { return KindSticker }

// OtherContent carries the raw type tag of a payload the bridge does not
// transform, plus the platform message id when the raw content is fetchable.
type OtherContent struct {
	Type      string
	MessageID string
}

func (OtherContent) Kind() ContentKind { return KindOther }

// Event is one platform-agnostic inbound message after verification and
// decode. Source is the endpoint name of the originating channel.
type Event struct {
	Source     string
	SenderID   string
	SenderName string
	SenderIcon string
	Content    Content
}
