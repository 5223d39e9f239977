// Package server exposes the JSON HTTP API. Identity is a bare
// X-User-ID header; there is no session layer in front of this
// service.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tazhate/fintrack/internal/scheduler"
	"github.com/tazhate/fintrack/internal/service"
	"github.com/tazhate/fintrack/internal/storage"
)

type Server struct {
	log     zerolog.Logger
	storage *storage.Storage
	sched   *scheduler.Scheduler

	reminders     *service.ReminderService
	transactions  *service.TransactionService
	categories    *service.CategoryService
	notifications *service.NotificationService

	httpServer *http.Server
}

func New(
	log zerolog.Logger,
	addr string,
	st *storage.Storage,
	sched *scheduler.Scheduler,
	reminders *service.ReminderService,
	transactions *service.TransactionService,
	categories *service.CategoryService,
	notifications *service.NotificationService,
) *Server {
	s := &Server{
		log:           log,
		storage:       st,
		sched:         sched,
		reminders:     reminders,
		transactions:  transactions,
		categories:    categories,
		notifications: notifications,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/users/me", s.handleGetMe)

	mux.HandleFunc("POST /api/reminders", s.handleCreateReminder)
	mux.HandleFunc("GET /api/reminders", s.handleListReminders)
	mux.HandleFunc("GET /api/reminders/{id}", s.handleGetReminder)
	mux.HandleFunc("PUT /api/reminders/{id}", s.handleUpdateReminder)
	mux.HandleFunc("POST /api/reminders/{id}/active", s.handleSetReminderActive)
	mux.HandleFunc("DELETE /api/reminders/{id}", s.handleDeleteReminder)
	mux.HandleFunc("POST /api/reminders/{id}/send", s.handleSendReminder)
	mux.HandleFunc("GET /api/reminders/{id}/occurrences", s.handleOccurrences)

	mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	mux.HandleFunc("POST /api/templates/{id}/instantiate", s.handleInstantiateTemplate)

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{year}/{month}", s.handleListTransactions)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/notifications", s.handleListNotifications)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkNotificationRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", s.handleDeleteNotification)

	mux.HandleFunc("POST /api/summary/{year}/{month}", s.handleSendSummary)
	mux.HandleFunc("GET /api/export/reminders.ics", s.handleExportICS)

	return mux
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// userID pulls the caller identity from the request; empty means the
// handler must reject with 401.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
