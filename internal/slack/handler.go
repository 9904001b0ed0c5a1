// Package slack handles the synchronous Slack Events API webhook: signature
// and freshness verification, payload decode, and inline relay to LINE.
package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bridgelabs/slackline/internal/bridge"
	"github.com/bridgelabs/slackline/internal/signing"
	"github.com/bridgelabs/slackline/internal/slackapi"
)

const (
	headerRetryReason = "X-Slack-Retry-Reason"
	headerTimestamp   = "X-Slack-Request-Timestamp"
	headerSignature   = "X-Slack-Signature"

	// maxTimestampSkew bounds replay of captured requests. Requests outside
	// the window are rejected before any signature work.
	maxTimestampSkew = 300
)

// Relayer fans one decoded message group out to the bridged LINE channels.
type Relayer interface {
	RelayFromSlack(ctx context.Context, host string, group []bridge.Event) error
}

// ProfileSource resolves a Slack user id to a display profile.
type ProfileSource interface {
	UserProfile(ctx context.Context, userID string) (slackapi.Profile, error)
}

// Handler serves the Slack events webhook. Relay happens inline, before the
// 200 is written; Slack's own retry flag guards against duplicate delivery
// when processing runs long.
type Handler struct {
	directory     *bridge.Directory
	relayer       Relayer
	profiles      ProfileSource
	signingSecret string
	now           func() time.Time
	logger        *slog.Logger
}

// NewHandler wires the webhook handler.
func NewHandler(log *slog.Logger, directory *bridge.Directory, relayer Relayer, profiles ProfileSource, signingSecret string) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		directory:     directory,
		relayer:       relayer,
		profiles:      profiles,
		signingSecret: signingSecret,
		now:           time.Now,
		logger:        log.With(slog.String("handler", "slack")),
	}
}

// Register mounts the current and legacy webhook paths on the same pipeline.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/slack2", h.Events)
	e.POST("/slack", h.Events)
}

// Events processes one Slack Events API delivery. Unverifiable requests get
// a generic 400 with no detail; retry-flagged resends are acknowledged
// without reprocessing.
func (h *Handler) Events(c echo.Context) error {
	req := c.Request()

	if req.Header.Get(headerRetryReason) == "http_timeout" {
		h.logger.Info("ignoring slack timeout retry")
		return c.NoContent(http.StatusOK)
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	if !h.verify(req.Header.Get(headerTimestamp), req.Header.Get(headerSignature), body) {
		return c.NoContent(http.StatusBadRequest)
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.logger.Info("malformed slack payload", slog.Any("error", err))
		return c.NoContent(http.StatusBadRequest)
	}

	switch envelope.Type {
	case "url_verification":
		return c.String(http.StatusOK, envelope.Challenge)
	case "event_callback":
		if envelope.Event.Type == "message" {
			return h.handleMessage(c, envelope)
		}
	}
	return c.NoContent(http.StatusBadRequest)
}

// verify applies the freshness window and the v0 signature scheme. Any
// failure is logged and reported as a single boolean so callers cannot leak
// which check tripped.
func (h *Handler) verify(timestampStr, supplied string, body []byte) bool {
	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		h.logger.Info("slack timestamp header missing or unparsable")
		return false
	}
	skew := h.now().Unix() - timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > maxTimestampSkew {
		h.logger.Info("slack timestamp outside freshness window", slog.Int64("skew_seconds", skew))
		return false
	}

	expected := signing.SlackSignature(timestamp, body, h.signingSecret)
	if !signing.Verify(supplied, expected) {
		h.logger.Info("slack signature mismatch")
		return false
	}
	return true
}

func (h *Handler) handleMessage(c echo.Context, envelope eventEnvelope) error {
	ev := envelope.Event
	if ev.Subtype == "bot_message" {
		return c.NoContent(http.StatusOK)
	}

	channel, ok := h.directory.SlackChannelByID(envelope.TeamID, ev.Channel)
	if !ok {
		h.logger.Info("message from unknown slack channel",
			slog.String("team", envelope.TeamID),
			slog.String("channel", ev.Channel),
		)
		return c.NoContent(http.StatusOK)
	}

	ctx := c.Request().Context()
	name, icon := h.resolveSender(ctx, ev.User)

	group := []bridge.Event{{
		Source:     channel.Name,
		SenderID:   ev.User,
		SenderName: name,
		SenderIcon: icon,
		Content:    bridge.TextContent{Text: ev.Text},
	}}
	for _, f := range ev.Files {
		if !strings.HasPrefix(f.Mimetype, "image") {
			continue
		}
		group = append(group, bridge.Event{
			Source:     channel.Name,
			SenderID:   ev.User,
			SenderName: name,
			SenderIcon: icon,
			Content:    bridge.ImageContent{URL: f.URLPrivate, PreviewURL: f.Thumb360},
		})
	}

	if err := h.relayer.RelayFromSlack(ctx, c.Request().Host, group); err != nil {
		h.logger.Error("relay to line failed", slog.Any("error", err))
	}
	return c.NoContent(http.StatusOK)
}

// resolveSender degrades to a placeholder name when the profile lookup fails
// so delivery never blocks on the profile API.
func (h *Handler) resolveSender(ctx context.Context, userID string) (name, icon string) {
	if userID == "" {
		return "Unknown", ""
	}
	profile, err := h.profiles.UserProfile(ctx, userID)
	if err != nil {
		h.logger.Warn("slack profile lookup failed",
			slog.String("user", userID),
			slog.Any("error", err),
		)
		return "Unknown (" + userID + ")", ""
	}
	if profile.DisplayName == "" {
		return "Unknown (" + userID + ")", profile.Image512
	}
	return profile.DisplayName, profile.Image512
}
