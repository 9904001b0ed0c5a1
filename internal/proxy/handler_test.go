package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/bridgelabs/slackline/internal/signing"
)

const (
	slackSecret = "slack-signing-secret"
	lineSecret  = "line-channel-secret"
)

type fakeSlackFetcher struct {
	calls int
	urls  []string
	resp  *http.Response
	err   error
}

func (f *fakeSlackFetcher) FetchFile(_ context.Context, url string) (*http.Response, error) {
	f.calls++
	f.urls = append(f.urls, url)
	return f.resp, f.err
}

type fakeLineFetcher struct {
	calls int
	ids   []string
	resp  *http.Response
	err   error
}

func (f *fakeLineFetcher) Content(_ context.Context, id string) (*http.Response, error) {
	f.calls++
	f.ids = append(f.ids, id)
	return f.resp, f.err
}

func upstreamResponse(status int, contentType, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// serveProxy routes the request through the registered echo routes so path
// parameter binding behaves as in production.
func serveProxy(h *Handler, target string) *httptest.ResponseRecorder {
	e := echo.New()
	h.Register(e)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLineProxyStreamsContent(t *testing.T) {
	line := &fakeLineFetcher{resp: upstreamResponse(http.StatusOK, "image/jpeg", "jpeg-bytes")}
	h := NewHandler(nil, &fakeSlackFetcher{}, line, slackSecret, lineSecret)

	token := signing.ResourceToken("mid-1", lineSecret)
	rec := serveProxy(h, "/proxy/line/"+token+"/mid-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("content type must pass through, got %q", got)
	}
	if rec.Body.String() != "jpeg-bytes" {
		t.Fatalf("body must pass through, got %q", rec.Body.String())
	}
	if line.calls != 1 || line.ids[0] != "mid-1" {
		t.Fatalf("unexpected upstream calls: %+v", line)
	}
}

func TestLineProxyRejectsForgedToken(t *testing.T) {
	line := &fakeLineFetcher{resp: upstreamResponse(http.StatusOK, "image/jpeg", "x")}
	h := NewHandler(nil, &fakeSlackFetcher{}, line, slackSecret, lineSecret)

	// Token minted for a different message id.
	token := signing.ResourceToken("mid-other", lineSecret)
	rec := serveProxy(h, "/proxy/line/"+token+"/mid-1")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("forged token must be forbidden, got %d", rec.Code)
	}
	if line.calls != 0 {
		t.Fatal("forged token must not trigger an upstream fetch")
	}
}

func TestSlackProxyStreamsDecodedURL(t *testing.T) {
	private := "https://files.slack.test/private/pic one.png"
	slack := &fakeSlackFetcher{resp: upstreamResponse(http.StatusOK, "image/png", "png-bytes")}
	h := NewHandler(nil, slack, &fakeLineFetcher{}, slackSecret, lineSecret)

	token := signing.ResourceToken(private, slackSecret)
	rec := serveProxy(h, "/proxy/slack/"+token+"/"+url.QueryEscape(private))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Body.String() != "png-bytes" {
		t.Fatalf("body must pass through, got %q", rec.Body.String())
	}
	if slack.calls != 1 || slack.urls[0] != private {
		t.Fatalf("upstream must receive the decoded URL: %+v", slack.urls)
	}
}

func TestSlackProxyRejectsForgedToken(t *testing.T) {
	slack := &fakeSlackFetcher{resp: upstreamResponse(http.StatusOK, "image/png", "x")}
	h := NewHandler(nil, slack, &fakeLineFetcher{}, slackSecret, lineSecret)

	token := signing.ResourceToken("https://evil.test/other", slackSecret)
	target := "/proxy/slack/" + token + "/" + url.QueryEscape("https://files.slack.test/a.png")
	rec := serveProxy(h, target)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("forged token must be forbidden, got %d", rec.Code)
	}
	if slack.calls != 0 {
		t.Fatal("forged token must not trigger an upstream fetch")
	}
}

func TestProxyPassesUpstreamStatusThrough(t *testing.T) {
	line := &fakeLineFetcher{resp: upstreamResponse(http.StatusNotFound, "text/plain", "gone")}
	h := NewHandler(nil, &fakeSlackFetcher{}, line, slackSecret, lineSecret)

	token := signing.ResourceToken("mid-gone", lineSecret)
	rec := serveProxy(h, "/proxy/line/"+token+"/mid-gone")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("upstream status must pass through, got %d", rec.Code)
	}
}

func TestProxyUpstreamFailureIsBadGateway(t *testing.T) {
	line := &fakeLineFetcher{err: io.ErrUnexpectedEOF}
	h := NewHandler(nil, &fakeSlackFetcher{}, line, slackSecret, lineSecret)

	token := signing.ResourceToken("mid-1", lineSecret)
	rec := serveProxy(h, "/proxy/line/"+token+"/mid-1")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("transport failure must map to 502, got %d", rec.Code)
	}
}
