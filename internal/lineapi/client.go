// Package lineapi is a typed client for the LINE Messaging API surfaces the
// bridge needs: push delivery, profile lookup, and message content retrieval.
package lineapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	// DefaultAPIBase serves the JSON API (push, profile).
	DefaultAPIBase = "https://api.line.me/v2/bot"
	// DefaultDataBase serves binary message content.
	DefaultDataBase = "https://api-data.line.me/v2/bot"
)

// Sender is the display identity attached to outbound LINE messages.
type Sender struct {
	Name    string `json:"name,omitempty"`
	IconURL string `json:"iconUrl,omitempty"`
}

// Message is one entry in a push payload. Type is "text" or "image".
type Message struct {
	Type               string  `json:"type"`
	Text               string  `json:"text,omitempty"`
	AltText            string  `json:"altText,omitempty"`
	OriginalContentURL string  `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string  `json:"previewImageUrl,omitempty"`
	Sender             *Sender `json:"sender,omitempty"`
}

// Profile is the subset of a LINE user profile the bridge relays.
type Profile struct {
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl"`
}

// Client issues bearer-authenticated calls against the LINE Messaging API.
type Client struct {
	http     *http.Client
	apiBase  string
	dataBase string
	token    string
	logger   *slog.Logger
}

// Option adjusts client construction.
type Option func(*Client)

// WithAPIBase overrides the JSON API base URL (used by tests).
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithDataBase overrides the content API base URL (used by tests).
func WithDataBase(base string) Option {
	return func(c *Client) { c.dataBase = strings.TrimRight(base, "/") }
}

// NewClient builds a client around the channel access token. httpClient may
// be nil.
func NewClient(log *slog.Logger, accessToken string, httpClient *http.Client, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		http:     httpClient,
		apiBase:  DefaultAPIBase,
		dataBase: DefaultDataBase,
		token:    accessToken,
		logger:   log.With(slog.String("client", "line")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

// Push delivers the messages to one chat in a single call. The response body
// is logged on non-success and the call reported as an error; there is no
// retry.
func (c *Client) Push(ctx context.Context, to string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	payload, err := json.Marshal(pushRequest{To: to, Messages: messages})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/message/push", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push to line: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	c.logger.Info("line push result",
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(body)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push to line: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Profile fetches a LINE user's display profile.
func (c *Client) Profile(ctx context.Context, userID string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/profile/"+userID, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("line profile lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("line profile lookup: status %d", resp.StatusCode)
	}
	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("decode line profile: %w", err)
	}
	return profile, nil
}

// Content fetches the binary content of a media message. The caller owns the
// response body.
func (c *Client) Content(ctx context.Context, messageID string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataBase+"/message/"+messageID+"/content", nil)
	if err != nil {
		return nil, fmt.Errorf("build content request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch line content: %w", err)
	}
	return resp, nil
}
