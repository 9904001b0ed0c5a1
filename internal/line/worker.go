package line

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/bridgelabs/slackline/internal/bridge"
	"github.com/bridgelabs/slackline/internal/lineapi"
	"github.com/bridgelabs/slackline/internal/queue"
	"github.com/bridgelabs/slackline/internal/signing"
)

// Relayer fans one decoded LINE event out to the bridged Slack channels.
type Relayer interface {
	RelayFromLine(ctx context.Context, host string, ev bridge.Event) error
}

// ProfileSource resolves a LINE user id to a display profile.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (lineapi.Profile, error)
}

// Worker is the single consumer of the ingestion queue. It verifies the
// deferred webhook signature, decodes the delivery, and relays each event.
// A bad item is logged and skipped; it never stops the loop.
type Worker struct {
	queue         *queue.Queue
	directory     *bridge.Directory
	relayer       Relayer
	profiles      ProfileSource
	channelSecret []byte
	logger        *slog.Logger
}

// NewWorker wires the worker. channelSecret is the hex-decoded LINE channel
// secret used for webhook signature verification.
func NewWorker(log *slog.Logger, q *queue.Queue, directory *bridge.Directory, relayer Relayer, profiles ProfileSource, channelSecret []byte) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		queue:         q,
		directory:     directory,
		relayer:       relayer,
		profiles:      profiles,
		channelSecret: channelSecret,
		logger:        log.With(slog.String("component", "line_worker")),
	}
}

// Run consumes the queue until ctx is cancelled or the queue closes.
// Blocking on Dequeue replaces fixed-interval polling; cancellation is
// checked on every iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Debug("line worker starting")
	for {
		item, ok := w.queue.Dequeue(ctx)
		if !ok {
			w.logger.Debug("line worker stopping")
			return
		}
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item queue.Item) {
	expected := signing.LineSignature(item.Body, w.channelSecret)
	if !signing.Verify(item.Signature, expected) {
		w.logger.Info("line signature mismatch", slog.String("id", item.ID))
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(item.Body, &payload); err != nil {
		w.logger.Info("malformed line delivery",
			slog.String("id", item.ID),
			slog.Any("error", err),
		)
		return
	}

	for _, ev := range payload.Events {
		w.processEvent(ctx, item.Host, ev)
	}
}

func (w *Worker) processEvent(ctx context.Context, host string, ev webhookEvent) {
	sourceID := ev.Source.chatID()
	if sourceID == "" {
		w.logger.Error("unknown line source type", slog.String("type", ev.Source.Type))
		return
	}
	if ev.Type != "message" {
		w.logger.Info("ignoring line event",
			slog.String("type", ev.Type),
			slog.String("source", sourceID),
		)
		return
	}

	channel, ok := w.directory.LineChannelByID(sourceID)
	if !ok {
		w.logger.Info("message from unknown line channel", slog.String("source", sourceID))
		return
	}
	if len(w.directory.BridgesForLine(channel.Name)) == 0 {
		return
	}

	event := bridge.Event{
		Source:     channel.Name,
		SenderID:   ev.Source.UserID,
		SenderName: w.resolveSender(ctx, ev.Source.UserID),
		Content:    decodeContent(ev.Message),
	}
	if err := w.relayer.RelayFromLine(ctx, host, event); err != nil {
		w.logger.Error("relay to slack failed", slog.Any("error", err))
	}
}

func decodeContent(msg messagePayload) bridge.Content {
	switch msg.Type {
	case "text":
		return bridge.TextContent{Text: msg.Text}
	case "sticker":
		return bridge.StickerContent{PackageID: msg.PackageID, StickerID: msg.StickerID}
	default:
		return bridge.OtherContent{Type: msg.Type, MessageID: msg.ID}
	}
}

// resolveSender degrades to a placeholder when the user id is absent or the
// profile lookup fails.
func (w *Worker) resolveSender(ctx context.Context, userID string) string {
	if userID == "" {
		return "Unknown"
	}
	profile, err := w.profiles.Profile(ctx, userID)
	if err != nil || profile.DisplayName == "" {
		if err != nil {
			w.logger.Warn("line profile lookup failed",
				slog.String("user", userID),
				slog.Any("error", err),
			)
		}
		return "Unknown (" + userID + ")"
	}
	return profile.DisplayName
}
