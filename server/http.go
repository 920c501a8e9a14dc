package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"net"
	"net/http"
	"os/signal"
	"praxis-recording/config"
	"praxis-recording/constant"
	"praxis-recording/handler"
	"praxis-recording/pkg/rabbitmq"
	"praxis-recording/pkg/sqs"
	"praxis-recording/pkg/storage"
	"praxis-recording/repository"
	"praxis-recording/service"
	"syscall"
	"time"
)

const shutdownTimeout = 15 * time.Second

func RunHttp(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(config.SetupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.NewGorm(cfg)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewGorm")
		return err
	}

	store := storage.NewMinIO(cfg.Storage, cfg.MinIOBucket)
	if err := store.EnsureBucket(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("EnsureBucket")
		return err
	}

	publisher, closePublisher, err := newPublisher(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("newPublisher")
		return err
	}
	defer closePublisher()

	repo := repository.NewRepo(db)
	recordingService := service.NewRecordingService(repo, store, service.NewTranscriptionService(publisher, nil), service.Options{
		DefaultLocale: cfg.Recording.DefaultLocale,
	})

	r := NewRouter(cfg, handler.NewRecordingHandler(recordingService, cfg.Recording.MaxChunkBytes))

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zerolog.Ctx(ctx).Info().Str("addr", srv.Addr).Msg("start http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zerolog.Ctx(ctx).Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("server stopped with error")
		return err
	}

	zerolog.Ctx(ctx).Info().Msg("server shutdown")
	return nil
}

// newPublisher builds the transcription publisher for the configured driver
// and returns a close function for it.
func newPublisher(ctx context.Context, cfg *config.Queue) (service.Publisher, func(), error) {
	switch cfg.Driver {
	case constant.QueueDriverRabbitMQ:
		conn, err := config.NewRabbitMQConn(ctx, cfg.RabbitMQ)
		if err != nil {
			return nil, nil, err
		}
		p, err := rabbitmq.NewPublisher(ctx, conn, cfg.RabbitMQ)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	case constant.QueueDriverSQS:
		p, err := sqs.NewPublisher(cfg.SQS)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	case constant.QueueDriverNoop:
		return service.LogPublisher{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}
