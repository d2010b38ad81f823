//	@title			Attachments API
//	@version		1.0
//	@description	Task attachment storage: delegated uploads, proxied uploads, listing, streamed downloads and deletion.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token, required only when AUTH_JWT_SECRET is set. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/radif/attachments/internal/attachment"
	"github.com/radif/attachments/internal/config"
	"github.com/radif/attachments/internal/logging"
	"github.com/radif/attachments/internal/metrics"
	appMiddleware "github.com/radif/attachments/internal/middleware"
	"github.com/radif/attachments/internal/storage"
	"github.com/radif/attachments/internal/tracing"

	_ "github.com/radif/attachments/docs/swagger"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Options{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.TracingEndpoint,
		SampleRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("tracing init failed")
	}

	// One store handle for the process lifetime; drivers are safe for concurrent use.
	driver, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("object storage init failed")
	}
	defer closeStore()

	m := metrics.New()
	svc := attachment.NewService(storage.Traced(driver, cfg.StorageDriver), attachment.Options{
		MaxUploadBytes: cfg.UploadMaxBytes,
		SlotTTL:        cfg.UploadSlotTTL,
		MaxSlotTTL:     config.MaxSlotTTL,
	}, metrics.NewAttachments(m.Registry()))

	if err := svc.Issuer().Verify(ctx); err != nil {
		logger.Fatal().Err(err).Msg("upload signing check failed")
	}
	attachmentHandler := attachment.NewHandler(svc, cfg.UploadMaxRequestBytes)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Range", "X-Request-ID"},
		ExposedHeaders: []string{"Accept-Ranges", "Content-Disposition", "Content-Length", "Content-Range"},
		MaxAge:         300,
	}))
	r.Use(m.Middleware)
	r.Use(tracing.Middleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Swagger UI, served at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/attachments", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
		}
		attachmentHandler.Register(r)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Str("driver", cfg.StorageDriver).Msg("server listening")
		logger.Info().Msgf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("tracing shutdown")
	}

	logger.Info().Msg("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Driver, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverMinio:
		s, err := storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			Region:    cfg.StorageRegion,
			UseSSL:    cfg.StorageUseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case config.DriverGCS:
		s, err := storage.NewGCSStorage(ctx, storage.GCSConfig{
			Bucket:            cfg.StorageBucket,
			CredentialsFile:   cfg.GCSCredentialsFile,
			SigningEmail:      cfg.GCSSigningEmail,
			SigningPrivateKey: cfg.GCSSigningPrivateKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Error().Err(err).Msg("close gcs client")
			}
		}, nil
	case config.DriverMemory:
		log.Warn().Msg("using in-memory object store; attachments are lost on restart")
		return storage.NewMemoryStorage(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
