package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/Jyok1m/ipseis-backend/internal/cache"
	"github.com/Jyok1m/ipseis-backend/internal/config"
	"github.com/Jyok1m/ipseis-backend/internal/database"
	"github.com/Jyok1m/ipseis-backend/internal/middleware"
	"github.com/Jyok1m/ipseis-backend/internal/modules/checklist"
	"github.com/Jyok1m/ipseis-backend/internal/modules/contract"
	"github.com/Jyok1m/ipseis-backend/internal/modules/messaging"
	"github.com/Jyok1m/ipseis-backend/internal/modules/prospect"
	"github.com/Jyok1m/ipseis-backend/internal/modules/resource"
	"github.com/Jyok1m/ipseis-backend/internal/modules/training"
	"github.com/Jyok1m/ipseis-backend/internal/modules/user"
	"github.com/Jyok1m/ipseis-backend/internal/notification"
	"github.com/Jyok1m/ipseis-backend/internal/notification/templates"
	"github.com/Jyok1m/ipseis-backend/internal/realtime"
	"github.com/Jyok1m/ipseis-backend/internal/server"
	"github.com/Jyok1m/ipseis-backend/internal/session"
	"github.com/Jyok1m/ipseis-backend/internal/storage"
	"github.com/Jyok1m/ipseis-backend/internal/worker"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/hibiken/asynq"
)

// Options for the CLI.
type Options struct {
	Port int `help:"Port to listen on (defaults to SERVER_PORT)" short:"p"`
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func newSender(cfg *config.Config, logger *slog.Logger) (notification.Sender, error) {
	switch cfg.Mail.Provider {
	case "resend":
		return notification.NewResendEmailSender(cfg.Resend.APIKey, cfg.Mail.From, logger)
	case "smtp":
		return notification.NewSMTPEmailSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.Mail.From, logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Mail.Provider)
	}
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		cfg := config.Load()
		if cfg == nil {
			logger.Error("failed to load configuration")
			os.Exit(1)
		}
		logger.Info("configuration loaded successfully", "env", cfg.Server.Env)

		ctx, cancel := context.WithCancel(context.Background())
		hooks.OnStop(cancel)

		// --- Database & Cache ---
		dbPool, err := database.NewPostgresPool(ctx, cfg.Database.URL, database.Options{QueryTimeout: cfg.Database.QueryTimeout})
		if err != nil {
			fatal(logger, "failed to connect to postgres", err)
		}
		hooks.OnStop(dbPool.Close)
		logger.Info("successfully connected to postgres database")

		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			fatal(logger, "failed to connect to redis", err)
		}
		hooks.OnStop(func() { _ = redisClient.Close() })
		logger.Info("successfully connected to redis")

		redisOpt, err := asynq.ParseRedisURI(cfg.Redis.URL)
		if err != nil {
			fatal(logger, "failed to parse redis url for the task queue", err)
		}

		// --- Notification port ---
		sender, err := newSender(cfg, logger)
		if err != nil {
			fatal(logger, "failed to configure email sender", err)
		}
		queue := asynq.NewClient(redisOpt)
		hooks.OnStop(func() { _ = queue.Close() })

		hub := realtime.NewHub(logger)
		notifier := notification.NewService(notification.Config{
			Logger:    logger,
			Sender:    sender,
			Publisher: realtime.NewPublisher(redisClient),
			Queue:     queue,
		})
		tmpl := templates.NewEngine(templates.Config{}, logger)
		if err := tmpl.Preload(); err != nil {
			fatal(logger, "failed to parse email templates", err)
		}

		files, err := storage.NewLocalStore(cfg.Storage.UploadDir)
		if err != nil {
			fatal(logger, "failed to prepare upload directory", err)
		}

		// --- Module Initialization (Bottom-Up) ---
		sessions := session.NewPostgresProvider(dbPool, session.Config{})
		guards := middleware.NewGuards(cfg.JWT.Secret, sessions, logger)

		userService := user.NewService(&user.Config{
			Repo:      user.NewRepository(dbPool),
			Sessions:  sessions,
			Notifier:  notifier,
			Templates: tmpl,
			Logger:    logger,
			Config:    cfg,
		})
		trainingService := training.NewService(&training.Config{
			Repo:   training.NewRepository(dbPool),
			Logger: logger,
		})
		prospectService := prospect.NewService(&prospect.Config{
			Repo:      prospect.NewRepository(dbPool),
			Accounts:  userService,
			Mailer:    notifier,
			Templates: tmpl,
			Logger:    logger,
			Config:    cfg,
		})
		messagingService := messaging.NewService(&messaging.Config{
			Repo:      messaging.NewRepository(dbPool),
			Users:     userService,
			Notifier:  notifier,
			Templates: tmpl,
			Logger:    logger,
			Config:    cfg,
		})
		contractService := contract.NewService(&contract.Config{
			Repo:      contract.NewRepository(dbPool),
			Users:     userService,
			Trainings: trainingService,
			Files:     files,
			Notifier:  notifier,
			Templates: tmpl,
			Logger:    logger,
			Config:    cfg,
		})
		resourceService := resource.NewService(&resource.Config{
			Repo:       resource.NewRepository(dbPool),
			Trainings:  trainingService,
			Enrolments: contractService,
			Files:      files,
			Logger:     logger,
		})
		checklistService := checklist.NewService(&checklist.Config{
			Repo:   checklist.NewRepository(dbPool),
			Logger: logger,
		})

		router := server.New(cfg, logger, server.Deps{
			Sessions: sessions,
			Hub:      hub,
			Checks:   []server.Check{server.PostgresCheck(dbPool), server.RedisCheck(redisClient)},
			Modules: []server.Module{
				user.NewHandler(userService, logger, guards, user.HandlerConfig{
					SecureCookies: cfg.IsProduction(),
					TokenTTL:      cfg.JWT.TTL,
				}),
				training.NewHandler(trainingService, logger, guards),
				prospect.NewHandler(prospectService, logger, guards),
				messaging.NewHandler(messagingService, logger, guards),
				contract.NewHandler(contractService, logger, guards),
				resource.NewHandler(resourceService, logger, guards),
				checklist.NewHandler(checklistService, logger, guards),
			},
		})

		port := cfg.Server.Port
		if options.Port != 0 {
			port = fmt.Sprint(options.Port)
		}
		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			go hub.Run(ctx)
			go func() {
				if err := hub.Listen(ctx, redisClient); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("realtime listener stopped", "error", err)
				}
			}()

			stopWorker, err := worker.Start(worker.Config{
				Redis:       redisOpt,
				Concurrency: cfg.Worker.Concurrency,
				Logger:      logger,
				Email:       notifier,
				Purger:      userService,
			})
			if err != nil {
				fatal(logger, "failed to start worker", err)
			}
			defer stopWorker()

			stopScheduler, err := worker.StartScheduler(redisOpt, logger)
			if err != nil {
				fatal(logger, "failed to start scheduler", err)
			}
			defer stopScheduler()

			logger.Info("starting server", "port", port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal(logger, "server failed to start", err)
			}
		})

		hooks.OnStop(func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown failed", "error", err)
			}
		})
	})
	cli.Run()
}
