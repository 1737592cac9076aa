package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dimiro1/banner"
	"github.com/joho/godotenv"
	"github.com/mattn/go-colorable"
	"github.com/roomops/herald/internal/announce"
	"github.com/roomops/herald/internal/api"
	"github.com/roomops/herald/internal/blacklist"
	"github.com/roomops/herald/internal/config"
	"github.com/roomops/herald/internal/gitter"
	"github.com/roomops/herald/internal/schedule"
	"github.com/sirupsen/logrus"
)

const bannerText = `
{{ .Title "Herald" "" 0 }}
{{ .AnsiBackground.BrightBlue }}{{ .AnsiColor.White }}
{{ .AnsiReset }}
`

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Printf("No .env or .env.local file found. Using environment variables.\n")
		}
	}

	banner.Init(colorable.NewColorableStdout(), true, true, strings.NewReader(bannerText))

	configPath := flag.String("config", "config/herald.yaml", "path to config file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05-07:00",
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	token, err := cfg.ResolveToken()
	if err != nil {
		logger.Fatalf("Failed to resolve API token: %v", err)
	}

	client := gitter.NewClient(logger, cfg.Room.APIURL, cfg.Room.StreamURL, token)

	store := blacklist.NewStore(cfg.BlacklistFile, logger)
	if err := store.Load(); err != nil {
		logger.Fatalf("Failed to load blacklist: %v", err)
	}

	registry := schedule.NewRegistry()

	service := announce.NewService(client, store, logger, cfg.Room.ID)
	if err := service.RegisterJobs(registry, cfg.Announcements); err != nil {
		logger.Fatalf("Failed to register announcements: %v", err)
	}

	runner := schedule.NewRunner(registry, logger, cfg.TickDuration())
	if err := runner.Start(); err != nil {
		logger.Fatalf("Failed to start runner: %v", err)
	}

	listener := gitter.NewStreamListener(client, logger, cfg.Room.ID, cfg.Auth.BotName, cfg.ApprovedUsers, store)
	listener.Start()

	notifier := announce.NewStartupNotifier(registry, logger)
	go notifier.NotifyStartup()

	handler := api.NewHandler(registry, runner, store, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      api.NewRouter(handler, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	logger.Infof("Herald started on port %s - Press Ctrl+C to stop.", cfg.Server.Port)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runner.Stop()
	listener.Stop()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}

	logger.Info("Herald stopped")
}
