package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"genstudio/config"
	"genstudio/constant"
	jobHandler "genstudio/handler"
	"genstudio/pkg/rabbitmq"
	"genstudio/prompt"
	"genstudio/repository"
	"genstudio/runner"
	"genstudio/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, err := repository.NewRepo(cfg.DB)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to initialize repository")
	}

	if err := os.MkdirAll(cfg.Worker.UploadDir, os.ModePerm); err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to create upload directory")
	}

	invoker := runner.ProcessInvoker{Timeout: cfg.Worker.Timeout}
	generationService := service.NewService(repo, cfg, invoker)

	var pool *service.Pool
	if cfg.Queue.Enabled {
		conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
		if err != nil {
			zerolog.Ctx(ctx).Fatal().Err(err).Msg("NewRabbitMQConn")
		}

		publisher, err := rabbitmq.NewPublisher(conn, cfg.Queue)
		if err != nil {
			zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to create publisher")
		}
		generationService.UseDispatcher(publisher)

		serviceDeps := jobHandler.ServiceDependencies{Generation: generationService}
		generationConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, jobHandler.JobHandler)
		go func() {
			if err := generationConsumer.Consume(ctx, serviceDeps); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("Generation consumer error")
			}
		}()
	} else {
		pool = service.NewPool(ctx, cfg.Server.Workers, generationService.Process)
		generationService.UseDispatcher(pool)
	}

	enhancer := newEnhancer(ctx, cfg)

	r := gin.Default()
	r.Use(jobHandler.RequestLogger(*zerolog.Ctx(ctx)))
	addHealth(r)
	jobHandler.NewHTTP(generationService, enhancer, cfg.Worker.UploadDir).Register(r)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")

	// The signal context is already canceled; give in-flight requests their
	// own deadline to drain before the dispatch pool goes away.
	shutdownCtx, shutdownCancel := context.WithTimeout(zerolog.Ctx(ctx).WithContext(context.Background()), 15*time.Second)
	defer shutdownCancel()
	if err := handler.Shutdown(shutdownCtx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}
	if pool != nil {
		pool.Close()
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func newEnhancer(ctx context.Context, cfg *config.Config) prompt.Enhancer {
	if cfg.Gemini.APIKey == "" {
		zerolog.Ctx(ctx).Info().Msg("no gemini api key configured, prompt enhancement disabled")
		return prompt.DisabledEnhancer{}
	}
	enhancer, err := prompt.NewGeminiEnhancer(prompt.GeminiOptions{
		APIKey: cfg.Gemini.APIKey,
		Model:  cfg.Gemini.Model,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to create gemini enhancer")
		return prompt.DisabledEnhancer{}
	}
	return enhancer
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
