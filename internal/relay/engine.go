// Package relay maps verified inbound events onto outbound messages for
// every bridge whose endpoints match, embedding capability-token proxy URLs
// for protected media.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/slack-go/slack"

	"github.com/bridgelabs/slackline/internal/bridge"
	"github.com/bridgelabs/slackline/internal/lineapi"
	"github.com/bridgelabs/slackline/internal/signing"
)

// stickerURLTemplate renders a LINE sticker from the public sticker CDN, so
// sticker images need no proxying.
const stickerURLTemplate = "https://stickershop.line-scdn.net/stickershop/v1/sticker/%s/android/sticker.png"

// slackLinkPattern matches Slack's angle-bracket link markup: <url|label>
// or bare <url>.
var slackLinkPattern = regexp.MustCompile(`<(?P<url>http[^|>]+)\|?.*?>`)

// SlackSender delivers messages to Slack incoming webhooks.
type SlackSender interface {
	PostWebhook(ctx context.Context, webhookURL string, msg *slack.WebhookMessage) error
}

// LinePusher delivers message batches to LINE chats.
type LinePusher interface {
	Push(ctx context.Context, to string, messages []lineapi.Message) error
}

// Engine resolves bridges for an inbound event and builds the outbound
// message for each destination. Delivery failures are logged and isolated
// per bridge; they never abort the remaining fan-out.
type Engine struct {
	directory   *bridge.Directory
	slack       SlackSender
	line        LinePusher
	slackSecret string
	lineSecret  string
	logger      *slog.Logger
}

// NewEngine wires the engine. slackSecret and lineSecret key the proxy
// capability tokens for the respective platform's protected media.
func NewEngine(log *slog.Logger, directory *bridge.Directory, slackSender SlackSender, linePusher LinePusher, slackSecret, lineSecret string) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		directory:   directory,
		slack:       slackSender,
		line:        linePusher,
		slackSecret: slackSecret,
		lineSecret:  lineSecret,
		logger:      log.With(slog.String("component", "relay")),
	}
}

// ExtractLinks pulls every URL out of Slack's angle-bracket link markup,
// preserving order of appearance.
func ExtractLinks(text string) []string {
	matches := slackLinkPattern.FindAllStringSubmatch(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, m[1])
	}
	return urls
}

// RelayFromSlack delivers one decoded Slack message group to every bridged
// LINE channel. The first event carries the text; image events follow in
// attachment order. An empty bridge resolution is acknowledged silently.
func (e *Engine) RelayFromSlack(ctx context.Context, host string, group []bridge.Event) error {
	if len(group) == 0 {
		return nil
	}
	head := group[0]
	bridges := e.directory.BridgesForSlack(head.Source)
	if len(bridges) == 0 {
		e.logger.Info("no bridges for slack channel", slog.String("channel", head.Source))
		return nil
	}
	for _, b := range bridges {
		lineCh, ok := e.directory.LineChannelByName(b.Line)
		if !ok {
			e.logger.Error("bridge references unknown line channel", slog.String("line", b.Line))
			continue
		}
		e.pushGroupToLine(ctx, host, lineCh, group)
	}
	return nil
}

// pushGroupToLine issues up to two push calls per destination: one carrying
// the text plus extracted link messages, one carrying the image messages.
func (e *Engine) pushGroupToLine(ctx context.Context, host string, lineCh bridge.LineChannel, group []bridge.Event) {
	head := group[0]
	sender := &lineapi.Sender{Name: head.SenderName}
	if head.SenderIcon != "" {
		sender.IconURL = e.slackProxyURL(host, head.SenderIcon)
	}

	var textMessages, imageMessages []lineapi.Message
	for _, ev := range group {
		switch c := ev.Content.(type) {
		case bridge.TextContent:
			textMessages = append(textMessages, lineapi.Message{
				Type:    "text",
				Text:    c.Text,
				AltText: c.Text,
				Sender:  sender,
			})
			for _, u := range ExtractLinks(c.Text) {
				textMessages = append(textMessages, lineapi.Message{Type: "text", Text: u})
			}
		case bridge.ImageContent:
			imageMessages = append(imageMessages, lineapi.Message{
				Type:               "image",
				OriginalContentURL: e.slackProxyURL(host, c.URL),
				PreviewImageURL:    e.slackProxyURL(host, c.PreviewURL),
				Sender:             sender,
			})
		}
	}

	if len(textMessages) > 0 {
		if err := e.line.Push(ctx, lineCh.ID, textMessages); err != nil {
			e.logger.Error("line push failed",
				slog.String("channel", lineCh.Name),
				slog.Any("error", err),
			)
		}
	}
	if len(imageMessages) > 0 {
		if err := e.line.Push(ctx, lineCh.ID, imageMessages); err != nil {
			e.logger.Error("line image push failed",
				slog.String("channel", lineCh.Name),
				slog.Any("error", err),
			)
		}
	}
}

// RelayFromLine delivers one decoded LINE event to every bridged Slack
// channel via its incoming webhook.
func (e *Engine) RelayFromLine(ctx context.Context, host string, ev bridge.Event) error {
	bridges := e.directory.BridgesForLine(ev.Source)
	if len(bridges) == 0 {
		return nil
	}
	for _, b := range bridges {
		slackCh, ok := e.directory.SlackChannelByName(b.Slack)
		if !ok {
			e.logger.Error("bridge references unknown slack channel", slog.String("slack", b.Slack))
			continue
		}
		msg := e.buildSlackWebhookMessage(host, slackCh, ev)
		if err := e.slack.PostWebhook(ctx, slackCh.WebhookURL, msg); err != nil {
			e.logger.Error("slack webhook delivery failed",
				slog.String("channel", slackCh.Name),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

func (e *Engine) buildSlackWebhookMessage(host string, ch bridge.SlackChannel, ev bridge.Event) *slack.WebhookMessage {
	msg := &slack.WebhookMessage{
		Channel:   ch.ChannelID,
		Username:  ev.SenderName,
		IconEmoji: ":line:",
	}
	switch c := ev.Content.(type) {
	case bridge.TextContent:
		msg.Text = c.Text
	case bridge.StickerContent:
		msg.Text = "<sticker>"
		imageURL := fmt.Sprintf(stickerURLTemplate, c.StickerID)
		msg.Blocks = &slack.Blocks{
			BlockSet: []slack.Block{slack.NewImageBlock(imageURL, "sticker", "", nil)},
		}
	case bridge.OtherContent:
		msg.Text = "<" + c.Type + ">"
		if c.MessageID != "" {
			msg.Text += "\n" + e.lineProxyURL(host, c.MessageID)
		}
	default:
		msg.Text = "<" + string(ev.Content.Kind()) + ">"
	}
	return msg
}

// slackProxyURL builds a capability URL for a protected Slack resource: the
// token is a MAC over the raw URL, which travels URL-encoded beside it.
func (e *Engine) slackProxyURL(host, resource string) string {
	return "https://" + host + "/proxy/slack/" +
		signing.ResourceToken(resource, e.slackSecret) + "/" + url.QueryEscape(resource)
}

// lineProxyURL builds a capability URL for a LINE media message's content.
func (e *Engine) lineProxyURL(host, messageID string) string {
	return "https://" + host + "/proxy/line/" +
		signing.ResourceToken(messageID, e.lineSecret) + "/" + messageID
}
