// Package main menjalankan server HTTP dan pengirim notifikasi SISURAT.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kelurahan-digital/sisurat/internal/config"
	"github.com/kelurahan-digital/sisurat/internal/export"
	"github.com/kelurahan-digital/sisurat/internal/handler"
	"github.com/kelurahan-digital/sisurat/internal/middleware"
	"github.com/kelurahan-digital/sisurat/internal/model"
	"github.com/kelurahan-digital/sisurat/internal/notify"
	"github.com/kelurahan-digital/sisurat/internal/repository"
	"github.com/kelurahan-digital/sisurat/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	head := export.LetterHead{
		Nama:      cfg.Kelurahan.Nama,
		Kecamatan: cfg.Kelurahan.Kecamatan,
		Kota:      cfg.Kelurahan.Kota,
		Alamat:    cfg.Kelurahan.Alamat,
		NamaLurah: cfg.Kelurahan.NamaLurah,
	}

	svc := service.NewService(repo, head, logger)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.EnsureSuperadmin(ctx, cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.Email); err != nil {
		sugar.Fatalw("superadmin bootstrap error", "error", err.Error())
	}

	senders := make(map[model.NotificationChannel]notify.Sender)
	if cfg.SMTP.Enabled() {
		senders[model.ChannelEmail] = notify.NewMailer(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		sugar.Warn("SMTP is not configured, email notifications will be marked failed")
	}

	if cfg.WhatsApp.Enabled() {
		wa := notify.NewWhatsAppClient(cfg.WhatsApp.GatewayURL, cfg.WhatsApp.Token, logger)
		if err := wa.Connect(ctx); err != nil {
			sugar.Warnw("whatsapp gateway unavailable, will reconnect on send", "error", err.Error())
		}
		defer wa.Close()
		senders[model.ChannelWhatsApp] = wa
	}

	dispatcher := notify.NewDispatcher(repo, senders, cfg.NotifyInterval, logger)

	auth := middleware.NewAuth(cfg.JWTSecret, cfg.JWTTTL, cfg.CookieSecure)
	h := handler.NewHandler(svc, logger, auth)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting notification dispatcher", "interval", cfg.NotifyInterval.String())
		return dispatcher.Run(ctx)
	})

	g.Go(func() error {
		sugar.Infow("starting sisurat server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
