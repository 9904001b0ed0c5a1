// Package slackapi provides the outbound Slack capabilities: sender profile
// lookup, incoming-webhook delivery, and authenticated private file fetches.
package slackapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"
)

// Profile is the subset of a Slack user profile the bridge relays.
type Profile struct {
	DisplayName string
	Image512    string
}

// Client wraps the Slack Web API with the bridge's bot credential. The
// underlying HTTP client is injected so callers own transport policy.
type Client struct {
	api    *slack.Client
	http   *http.Client
	token  string
	logger *slog.Logger
}

// NewClient builds a client around the bot token. httpClient may be nil.
func NewClient(log *slog.Logger, botToken string, httpClient *http.Client) *Client {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		api:    slack.New(botToken, slack.OptionHTTPClient(httpClient)),
		http:   httpClient,
		token:  botToken,
		logger: log.With(slog.String("client", "slack")),
	}
}

// UserProfile looks up the sender's display name and avatar. Callers degrade
// the display name on error instead of aborting the relay.
func (c *Client) UserProfile(ctx context.Context, userID string) (Profile, error) {
	profile, err := c.api.GetUserProfileContext(ctx, &slack.GetUserProfileParameters{UserID: userID})
	if err != nil {
		return Profile{}, fmt.Errorf("slack profile lookup: %w", err)
	}
	return Profile{
		DisplayName: profile.DisplayName,
		Image512:    profile.Image512,
	}, nil
}

// PostWebhook delivers one message through a channel's incoming webhook.
func (c *Client) PostWebhook(ctx context.Context, webhookURL string, msg *slack.WebhookMessage) error {
	if err := slack.PostWebhookCustomHTTPContext(ctx, webhookURL, c.http, msg); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	return nil
}

// FetchFile issues an authenticated GET against a private Slack file URL.
// The caller owns the response body.
func (c *Client) FetchFile(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build slack file request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch slack file: %w", err)
	}
	return resp, nil
}
