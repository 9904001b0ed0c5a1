package line

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/bridgelabs/slackline/internal/queue"
)

func TestWebhookRejectsMissingSignature(t *testing.T) {
	q := queue.New(4)
	h := NewHandler(nil, q)
	e := echo.New()
	h.Register(e)

	req := httptest.NewRequest(http.MethodPost, "/line", strings.NewReader(`{"events":[]}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing signature must be rejected, got %d", rec.Code)
	}
	if q.Len() != 0 {
		t.Fatal("rejected delivery must not be enqueued")
	}
}

// lenSamplingWriter records the queue depth at the moment the response body
// is written, which is strictly before completion hooks run.
type lenSamplingWriter struct {
	*httptest.ResponseRecorder
	q          *queue.Queue
	lenAtWrite int
	wrote      bool
}

func (w *lenSamplingWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.lenAtWrite = w.q.Len()
		w.wrote = true
	}
	return w.ResponseRecorder.Write(b)
}

func TestWebhookAcknowledgesBeforeEnqueue(t *testing.T) {
	q := queue.New(4)
	h := NewHandler(nil, q)
	e := echo.New()
	h.Register(e)

	body := `{"events":[{"type":"message"}]}`
	req := httptest.NewRequest(http.MethodPost, "https://bridge.test/line", strings.NewReader(body))
	req.Header.Set(headerSignature, "c2lnbmF0dXJl")
	rec := &lenSamplingWriter{ResponseRecorder: httptest.NewRecorder(), q: q}
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("delivery must be acknowledged, got %d", rec.Code)
	}
	if !rec.wrote {
		t.Fatal("response body was never written")
	}
	if rec.lenAtWrite != 0 {
		t.Fatal("item must not be visible before the response is written")
	}
	if q.Len() != 1 {
		t.Fatalf("item must be enqueued after acknowledgment, queue len %d", q.Len())
	}

	item, ok := q.Dequeue(context.Background())
	if !ok {
		t.Fatal("dequeue failed")
	}
	if item.Signature != "c2lnbmF0dXJl" || string(item.Body) != body || item.Host != "bridge.test" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.ID == "" {
		t.Fatal("item must carry a generated id")
	}
}

func TestWebhookEnqueueOrderMatchesArrival(t *testing.T) {
	q := queue.New(8)
	h := NewHandler(nil, q)
	e := echo.New()
	h.Register(e)

	bodies := []string{`{"events":[1]}`, `{"events":[2]}`, `{"events":[3]}`}
	for _, b := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/line", strings.NewReader(b))
		req.Header.Set(headerSignature, "sig")
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	for i, want := range bodies {
		item, ok := q.Dequeue(context.Background())
		if !ok {
			t.Fatalf("dequeue %d failed", i)
		}
		if string(item.Body) != want {
			t.Fatalf("item %d out of order: got %q want %q", i, item.Body, want)
		}
	}
}
