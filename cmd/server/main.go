package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"syscall"

	"github.com/bassista/posdit/internal/api/middleware"
	route "github.com/bassista/posdit/internal/api/route"
	appctx "github.com/bassista/posdit/internal/app"
	"github.com/bassista/posdit/internal/collector"
	"github.com/bassista/posdit/internal/config"
	"github.com/bassista/posdit/internal/dedup"
	"github.com/bassista/posdit/internal/events"
	"github.com/bassista/posdit/internal/logger"
	"github.com/bassista/posdit/internal/notifier"
	"github.com/bassista/posdit/internal/registry"
	"github.com/bassista/posdit/internal/repository"
	"github.com/bassista/posdit/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/enrichman/httpgrace"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.WithComponent("main").Debugf("no .env file loaded: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	if err := logger.SetLevel(cfg.Misc.LogLevel); err != nil {
		logger.WithComponent("main").Warnf("invalid log level '%s', using 'info': %v", cfg.Misc.LogLevel, err)
		_ = logger.SetLevel("info")
	}
	logger.WithComponent("main").Debugf("log level set to: %s", logger.Logger.GetLevel().String())
	logger.WithComponent("main").Infof("App will run on port: %d", cfg.Server.Port)

	repo, err := repository.NewJSONRepository(cfg.Data.FilePath)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init repository: %v", err)
	}

	doc, err := repo.Load(context.Background())
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot load data file: %v", err)
	}

	reg, err := registry.NewFromDocument(*doc)
	if err != nil {
		logger.WithComponent("main").Fatalf("invalid watch list in data file: %v", err)
	}
	logger.WithComponent("main").Infof("loaded %d watch specs", reg.Len())

	fetcher, err := collector.NewCollector(collector.Options{
		Mode:         cfg.Reddit.Mode,
		UserAgent:    cfg.Reddit.UserAgent,
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
		Limit:        cfg.Reddit.Limit,
		Timeout:      cfg.Reddit.FetchTimeout,
		RateInterval: cfg.Reddit.RateInterval,
	})
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init collector: %v", err)
	}

	sender, err := notifier.NewSender(cfg.Mail.Mode, notifier.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init mail sender: %v", err)
	}

	seen, err := dedup.New(cfg.Monitor.DedupPolicy, cfg.Monitor.DedupCapacity, cfg.Monitor.DedupWindow)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init dedup store: %v", err)
	}

	bus := events.NewBus()
	history := events.NewHistory(cfg.Monitor.EventHistory)
	reportErrors := middleware.ConfigureHoneybadger()

	sinks := []events.Sink{
		events.LogSink{Entry: logger.WithComponent("monitor")},
		history,
		bus,
	}
	if reportErrors {
		sinks = append(sinks, events.NewHoneybadgerSink())
	}

	sched, err := scheduler.NewPollScheduler(reg, fetcher, notifier.NewMailNotifier(sender), seen, events.Tee(sinks...), scheduler.Options{
		OnMissingSubreddit: cfg.Monitor.OnMissingSubreddit,
		StartPaused:        cfg.Monitor.StartPaused,
	})
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init poll scheduler: %v", err)
	}

	app, err := appctx.New(cfg, repo, reg, sched, bus, history)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init app: %v", err)
	}
	defer app.Shutdown()

	if err := app.StartWatchers(); err != nil {
		logger.WithComponent("main").Fatalf("cannot start background tasks: %v", err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := route.SetupRoutes(app, logger.Logger, reportErrors)
	srv := createGraceHttpServer(app.BaseCtx, "main-server", app.Config.Server, r)

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Error(err)
	}
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			// the event stream is long-lived, so no write timeout applies to it
			httpgrace.WithWriteTimeout(0),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}
