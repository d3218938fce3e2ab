package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hotelworks/backoffice/internal/config"
	"github.com/hotelworks/backoffice/internal/events"
	"github.com/hotelworks/backoffice/internal/httpserver"
	"github.com/hotelworks/backoffice/internal/logging"
	"github.com/hotelworks/backoffice/internal/middleware"
	"github.com/hotelworks/backoffice/internal/repo"
	"github.com/hotelworks/backoffice/internal/service"
	"github.com/hotelworks/backoffice/internal/tokens"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	issuer := &tokens.Issuer{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}

	authHTTP := &httpserver.AuthHTTP{
		Svc: &service.AuthService{
			Repo:   &repo.GormRepo{DB: db},
			Issuer: issuer,
			Events: producer,
		},
	}

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: authHTTP,
		Auth:        middleware.NewBearerAuth(issuer, service.AllowAll{}),
		Logger:      logger,
	})

	go func() {
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
