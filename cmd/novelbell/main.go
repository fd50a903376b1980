package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/nhle/novelbell/internal/api"
	"github.com/nhle/novelbell/internal/app"
	"github.com/nhle/novelbell/internal/credential"
	"github.com/nhle/novelbell/internal/feed"
	"github.com/nhle/novelbell/internal/logging"
	"github.com/nhle/novelbell/internal/model"
	"github.com/nhle/novelbell/internal/session"
	appsync "github.com/nhle/novelbell/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "novelbell:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config.yaml")
	flag.Parse()

	// A missing .env is normal; real environment variables still apply.
	_ = godotenv.Load()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	log, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	secrets, err := credential.Open()
	if err != nil {
		return fmt.Errorf("opening keyring: %w", err)
	}
	sess := session.New(secrets)

	client := api.NewClient(
		cfg.API.BaseURL,
		sess,
		time.Duration(cfg.API.TimeoutSec)*time.Second,
	)
	router := app.NewRouter(cfg.API.BaseURL, cfg.Display.OpenLinks, log)
	f := feed.New(client, router,
		feed.WithPageSize(cfg.Feed.PageSize),
		feed.WithLogger(log),
	)
	poller := appsync.New(f, time.Duration(cfg.Feed.PollIntervalSec)*time.Second, log)
	defer poller.Stop()

	log.WithField("api", cfg.API.BaseURL).Info("starting novelbell")

	root := app.New(app.Deps{
		Feed:      f,
		Poller:    poller,
		Session:   sess,
		Announcer: client,
		Router:    router,
		Log:       log,
	})

	p := tea.NewProgram(root, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
