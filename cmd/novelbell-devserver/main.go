package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/nhle/novelbell/internal/devserver"
	"github.com/nhle/novelbell/internal/logging"
	"github.com/nhle/novelbell/internal/model"
	"github.com/nhle/novelbell/internal/store"
)

const defaultSecret = "novelbell-dev-secret"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "novelbell-devserver:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr     = flag.String("addr", ":8080", "listen address")
		dbPath   = flag.String("db", "novelbell-dev.db", "sqlite database path")
		seed     = flag.Bool("seed", true, "insert sample notifications for reader-1")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using system environment variables")
	}

	log, closer, err := logging.New(model.LogConfig{Level: *logLevel, Format: "text"}, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	secret := []byte(os.Getenv("NOVELBELL_DEV_SECRET"))
	if len(secret) == 0 {
		secret = []byte(defaultSecret)
	}

	st, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *seed {
		if err := seedReader(ctx, st, "reader-1", log); err != nil {
			return err
		}
	}
	if err := printTokens(secret); err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Mount("/api", devserver.New(st, secret, log).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", *addr).Info("dev backend listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// printTokens writes ready-to-paste bearer tokens for a reader and an admin.
func printTokens(secret []byte) error {
	for _, who := range []struct{ sub, role string }{
		{"reader-1", "reader"},
		{"editor-1", "admin"},
	} {
		tok, err := devserver.IssueToken(secret, who.sub, who.role, 30*24*time.Hour)
		if err != nil {
			return fmt.Errorf("issuing token for %s: %w", who.sub, err)
		}
		fmt.Printf("%s (%s):\n  %s\n\n", who.sub, who.role, tok)
	}
	return nil
}

// seedReader gives userID a small mixed feed when it has none yet.
func seedReader(ctx context.Context, st store.Store, userID string, log logrus.FieldLogger) error {
	if err := st.EnsureUser(ctx, userID, "reader"); err != nil {
		return err
	}
	existing, err := st.ListNotifications(ctx, userID, 1, 0)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now()
	samples := []model.Notification{
		{
			Type:      model.NotificationAnnouncement,
			Title:     "Welcome to the reading room",
			Message:   "Follow a novel to hear about new chapters.",
			Link:      "/help/following",
			IsRead:    true,
			CreatedAt: now.Add(-9 * 24 * time.Hour),
		},
		{
			Type:      model.NotificationCommentReply,
			Title:     "Someone replied to your comment",
			Message:   "\"That twist in chapter 11 was earned.\"",
			Link:      "/novels/the-long-road/11#comment-c42",
			CreatedAt: now.Add(-3 * time.Hour),
			Metadata:  &model.NotificationMetadata{NovelID: "the-long-road", ChapterID: "11", CommentID: "c42"},
		},
		{
			Type:      model.NotificationNewChapter,
			Title:     "The Long Road: Chapter 12",
			Message:   "A new chapter is up.",
			Link:      "/novels/the-long-road/12",
			CreatedAt: now.Add(-5 * time.Minute),
			Metadata:  &model.NotificationMetadata{NovelID: "the-long-road", ChapterID: "12"},
		},
	}
	for _, n := range samples {
		if _, err := st.CreateNotification(ctx, userID, n); err != nil {
			return err
		}
	}
	log.WithField("user", userID).Infof("seeded %d notifications", len(samples))
	return nil
}
