package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/bridgelabs/slackline/internal/bridge"
	"github.com/bridgelabs/slackline/internal/config"
	"github.com/bridgelabs/slackline/internal/handlers"
	"github.com/bridgelabs/slackline/internal/keepalive"
	linehook "github.com/bridgelabs/slackline/internal/line"
	"github.com/bridgelabs/slackline/internal/lineapi"
	"github.com/bridgelabs/slackline/internal/logger"
	"github.com/bridgelabs/slackline/internal/proxy"
	"github.com/bridgelabs/slackline/internal/queue"
	"github.com/bridgelabs/slackline/internal/relay"
	"github.com/bridgelabs/slackline/internal/server"
	"github.com/bridgelabs/slackline/internal/signing"
	slackhook "github.com/bridgelabs/slackline/internal/slack"
	"github.com/bridgelabs/slackline/internal/slackapi"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDirectory,
			provideQueue,
			provideHTTPClient,
			provideSlackClient,
			provideLineClient,
			provideEngine,
			provideWorker,
			provideServerHandler(provideSlackHandler),
			provideServerHandler(provideLineHandler),
			provideServerHandler(provideProxyHandler),
			provideServerHandler(handlers.NewHealthHandler),
			provideServer,
		),
		fx.Invoke(
			startWorker,
			startReloader,
			startKeepalive,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDirectory(cfg config.Config) *bridge.Directory {
	return bridge.NewDirectory(cfg.Snapshot())
}

func provideQueue(cfg config.Config) *queue.Queue {
	return queue.New(cfg.Queue.Capacity)
}

func provideHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func provideSlackClient(log *slog.Logger, cfg config.Config, httpClient *http.Client) *slackapi.Client {
	return slackapi.NewClient(log, cfg.Slack.BotToken, httpClient)
}

func provideLineClient(log *slog.Logger, cfg config.Config, httpClient *http.Client) *lineapi.Client {
	var opts []lineapi.Option
	if cfg.Line.APIBase != "" {
		opts = append(opts, lineapi.WithAPIBase(cfg.Line.APIBase))
	}
	if cfg.Line.DataBase != "" {
		opts = append(opts, lineapi.WithDataBase(cfg.Line.DataBase))
	}
	return lineapi.NewClient(log, cfg.Line.AccessToken, httpClient, opts...)
}

func provideEngine(log *slog.Logger, cfg config.Config, directory *bridge.Directory, slackClient *slackapi.Client, lineClient *lineapi.Client) *relay.Engine {
	return relay.NewEngine(log, directory, slackClient, lineClient, cfg.Slack.SigningSecret, cfg.Line.ChannelSecret)
}

func provideWorker(log *slog.Logger, cfg config.Config, q *queue.Queue, directory *bridge.Directory, engine *relay.Engine, lineClient *lineapi.Client) (*linehook.Worker, error) {
	secret, err := signing.DecodeSecret(cfg.Line.ChannelSecret)
	if err != nil {
		return nil, fmt.Errorf("line channel secret: %w", err)
	}
	return linehook.NewWorker(log, q, directory, engine, lineClient, secret), nil
}

func provideSlackHandler(log *slog.Logger, cfg config.Config, directory *bridge.Directory, engine *relay.Engine, slackClient *slackapi.Client) *slackhook.Handler {
	return slackhook.NewHandler(log, directory, engine, slackClient, cfg.Slack.SigningSecret)
}

func provideLineHandler(log *slog.Logger, q *queue.Queue) *linehook.Handler {
	return linehook.NewHandler(log, q)
}

func provideProxyHandler(log *slog.Logger, cfg config.Config, slackClient *slackapi.Client, lineClient *lineapi.Client) *proxy.Handler {
	return proxy.NewHandler(log, slackClient, lineClient, cfg.Slack.SigningSecret, cfg.Line.ChannelSecret)
}

type serverParams struct {
	fx.In
	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Handlers)
}

func startWorker(lc fx.Lifecycle, q *queue.Queue, worker *linehook.Worker) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				worker.Run(ctx)
				close(done)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			q.Close()
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// startReloader re-reads the config on SIGHUP and swaps the channel
// directory. Invalid files are logged and the previous snapshot kept.
func startReloader(lc fx.Lifecycle, log *slog.Logger, directory *bridge.Directory) {
	reloadLog := log.With(slog.String("component", "reloader"))
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			signal.Notify(sigs, syscall.SIGHUP)
			go func() {
				for {
					select {
					case <-sigs:
						cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
						if err == nil {
							err = cfg.Validate()
						}
						if err != nil {
							reloadLog.Error("config reload failed", slog.Any("error", err))
							continue
						}
						directory.Reload(cfg.Snapshot())
						reloadLog.Info("channel directory reloaded",
							slog.Int("bridges", len(cfg.Bridges)),
						)
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			signal.Stop(sigs)
			close(done)
			return nil
		},
	})
}

func startKeepalive(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, httpClient *http.Client) {
	if !cfg.Keepalive.Enabled || cfg.Keepalive.URL == "" {
		return
	}
	pinger := keepalive.New(log, httpClient, cfg.Keepalive.URL)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return pinger.Start() },
		OnStop:  func(ctx context.Context) error { return pinger.Stop(ctx) },
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
