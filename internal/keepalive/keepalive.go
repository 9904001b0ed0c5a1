// Package keepalive periodically self-pings the public endpoint so
// idle-scaling hosts keep the process warm.
package keepalive

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
)

// Pinger issues a POST against the configured URL once a minute. Responses
// are discarded; only transport failures are logged.
type Pinger struct {
	cron   *cron.Cron
	http   *http.Client
	url    string
	logger *slog.Logger
}

func New(log *slog.Logger, httpClient *http.Client, url string) *Pinger {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Pinger{
		cron:   cron.New(),
		http:   httpClient,
		url:    url,
		logger: log.With(slog.String("component", "keepalive")),
	}
}

func (p *Pinger) Start() error {
	if _, err := p.cron.AddFunc("@every 1m", p.ping); err != nil {
		return err
	}
	p.cron.Start()
	return nil
}

// Stop halts the schedule and waits for an in-flight ping to finish.
func (p *Pinger) Stop(ctx context.Context) error {
	select {
	case <-p.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pinger) ping() {
	resp, err := p.http.Post(p.url, "application/json", nil)
	if err != nil {
		p.logger.Warn("keepalive ping failed", slog.Any("error", err))
		return
	}
	resp.Body.Close()
	p.logger.Debug("keepalive ping", slog.Int("status", resp.StatusCode))
}
