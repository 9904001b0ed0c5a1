// Package proxy serves protected platform media through capability URLs so
// neither platform ever sees the other's credentials.
package proxy

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/bridgelabs/slackline/internal/signing"
)

// SlackFetcher issues authenticated GETs against private Slack file URLs.
type SlackFetcher interface {
	FetchFile(ctx context.Context, url string) (*http.Response, error)
}

// LineFetcher retrieves the binary content of a LINE media message.
type LineFetcher interface {
	Content(ctx context.Context, messageID string) (*http.Response, error)
}

// Handler validates capability tokens and streams upstream content back
// verbatim. A token mismatch never triggers an upstream call, which keeps
// the endpoint from being usable as an open relay.
type Handler struct {
	slack       SlackFetcher
	line        LineFetcher
	slackSecret string
	lineSecret  string
	logger      *slog.Logger
}

// NewHandler wires the proxy. The secrets must match the ones used when the
// capability URLs were minted.
func NewHandler(log *slog.Logger, slackFetcher SlackFetcher, lineFetcher LineFetcher, slackSecret, lineSecret string) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		slack:       slackFetcher,
		line:        lineFetcher,
		slackSecret: slackSecret,
		lineSecret:  lineSecret,
		logger:      log.With(slog.String("handler", "proxy")),
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/proxy/line/:token/:id", h.Line)
	e.GET("/proxy/slack/:token/:url", h.Slack)
}

// Line serves the content of a LINE media message identified by id.
func (h *Handler) Line(c echo.Context) error {
	id := c.Param("id")
	if !signing.Verify(c.Param("token"), signing.ResourceToken(id, h.lineSecret)) {
		return c.NoContent(http.StatusForbidden)
	}

	resp, err := h.line.Content(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("line content fetch failed", slog.Any("error", err))
		return c.NoContent(http.StatusBadGateway)
	}
	return h.relay(c, resp)
}

// Slack serves a private Slack file. The reference travels URL-encoded; the
// token was minted over the decoded form.
func (h *Handler) Slack(c echo.Context) error {
	target, err := url.QueryUnescape(c.Param("url"))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if !signing.Verify(c.Param("token"), signing.ResourceToken(target, h.slackSecret)) {
		return c.NoContent(http.StatusForbidden)
	}

	resp, err := h.slack.FetchFile(c.Request().Context(), target)
	if err != nil {
		h.logger.Error("slack file fetch failed", slog.Any("error", err))
		return c.NoContent(http.StatusBadGateway)
	}
	return h.relay(c, resp)
}

// relay streams the upstream body and content type back on success, and
// passes the upstream status through unchanged otherwise.
func (h *Handler) relay(c echo.Context, resp *http.Response) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.NoContent(resp.StatusCode)
	}
	return c.Stream(http.StatusOK, resp.Header.Get("Content-Type"), resp.Body)
}
