package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/justmusic/justmusic-api/api/swagger"
	"github.com/justmusic/justmusic-api/internal/handler"
	"github.com/justmusic/justmusic-api/internal/router"
	"github.com/justmusic/justmusic-api/internal/service"
	"github.com/justmusic/justmusic-api/pkg/export"
	"github.com/justmusic/justmusic-api/pkg/payment"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default command)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if err := a.mongo.EnsureIndexes(ctx); err != nil {
		return err
	}

	engine := a.router()
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", a.cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// router wires services and handlers into the HTTP engine.
func (a *app) router() http.Handler {
	validate := validator.New()

	auth := service.NewAuthService(validate, a.log, service.AuthConfig{
		AccessTokenSecret: a.cfg.JWT.Secret,
		AccessTokenExpiry: a.cfg.JWT.Expiration,
		Issuer:            a.cfg.JWT.Issuer,
	})
	users := service.NewUserService(a.users, a.cache, validate, a.log)
	classes := service.NewClassService(a.classes, a.cache, validate, a.log)
	enrollment := service.NewEnrollmentService(a.classes, a.selections, validate, a.log)
	payments := service.NewPaymentService(
		payment.NewStripe(a.cfg.Payment.SecretKey),
		a.classes,
		a.selections,
		a.mongo,
		a.cache,
		a.metrics,
		validate,
		a.log,
		service.PaymentConfig{Currency: a.cfg.Payment.Currency},
	)
	stats := service.NewStatsService(a.classes, a.users, a.cache, a.cfg.Stats.CacheTTL, a.log)
	exports := service.NewExportService(enrollment, export.NewCSVExporter(), export.NewPDFExporter(), a.log)

	handlers := router.Handlers{
		Auth:       handler.NewAuthHandler(auth),
		User:       handler.NewUserHandler(users),
		Class:      handler.NewClassHandler(classes),
		Enrollment: handler.NewEnrollmentHandler(enrollment, exports),
		Payment:    handler.NewPaymentHandler(payments),
		Stats:      handler.NewStatsHandler(stats),
		Health:     handler.NewHealthHandler(a.mongo, a.metrics),
	}

	return router.New(router.Options{
		Env:            a.cfg.Env,
		APIPrefix:      a.cfg.APIPrefix,
		AllowedOrigins: a.cfg.CORS.AllowedOrigins,
		RequestTimeout: a.cfg.RequestTimeout,
		Logger:         a.log,
		Metrics:        a.metrics,
	}, router.Routes(handlers), auth, users)
}
