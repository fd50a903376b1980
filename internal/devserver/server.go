// Package devserver is an in-process stand-in for the platform's
// notification API. It backs the client's tests and lets the terminal app
// run locally without the real backend.
package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/nhle/novelbell/internal/model"
	"github.com/nhle/novelbell/internal/store"
)

// maxPageSize caps the limit query parameter of the list endpoint.
const maxPageSize = 100

// Server serves the notification endpoints on top of a Store.
type Server struct {
	store  store.Store
	secret []byte
	log    logrus.FieldLogger
}

// New creates a Server. Tokens must be HS256-signed with secret.
func New(s store.Store, secret []byte, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{store: s, secret: secret, log: log}
}

// Handler returns the router. Routes are relative, so callers typically
// mount it under the API prefix (e.g., /api).
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/notifications", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Get("/unread-count", s.unreadCount)
		r.Put("/read-all", s.markAllRead)
		r.Put("/{id}/read", s.markRead)
		r.Delete("/{id}", s.delete)

		r.With(adminOnly).Post("/announcement", s.announce)
	})

	return r
}

// requestLogger logs each request through logrus.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("request")
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 10)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	skip := intQuery(r, "skip", 0)

	list, err := s.store.ListNotifications(r.Context(), readerFrom(r).ID, limit, skip)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateNotification(r.Context(), readerFrom(r).ID, req.toModel())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.UnreadCount(r.Context(), readerFrom(r).ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.UnreadCount{Count: count})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.MarkNotificationRead(r.Context(), readerFrom(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	changed, err := s.store.MarkAllRead(r.Context(), readerFrom(r).ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "All notifications marked as read", "updated": changed})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteNotification(r.Context(), readerFrom(r).ID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

func (s *Server) announce(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a := model.Announcement{Title: req.Title, Message: req.Message, Link: req.Link}
	n, err := s.store.Broadcast(r.Context(), a)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Announcement sent", "recipients": n})
}

// fail maps store errors onto HTTP responses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.WithError(err).Error("store operation failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
