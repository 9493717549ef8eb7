package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Guizzs26/attendance_poll_bot/internal/gateway"
	"github.com/Guizzs26/attendance_poll_bot/internal/metrics"
	"github.com/Guizzs26/attendance_poll_bot/internal/model"
	"github.com/Guizzs26/attendance_poll_bot/internal/store"
	"github.com/Guizzs26/attendance_poll_bot/internal/tally"
)

const (
	defaultReportLimit = 10
	maxReportLimit     = 100
)

// CycleController is the part of the poll cycle the admin surface can trigger.
// Neither call guards against repetition.
type CycleController interface {
	StartCycle(ctx context.Context)
	EndCycle(ctx context.Context) model.Report
}

type Snapshotter interface {
	Snapshot() tally.Snapshot
}

type Deps struct {
	Cycle    CycleController
	Tally    Snapshotter
	Gateway  gateway.Gateway
	Archive  store.ReportArchive
	Live     http.Handler
	Metrics  http.Handler
	Counters *metrics.BotMetrics
	Logger   *zap.Logger
	Channel  string
}

type Server struct {
	d Deps
}

func New(d Deps) *Server {
	if d.Archive == nil {
		d.Archive = store.NopArchive{}
	}
	return &Server{d: d}
}

// Handler builds the admin router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.withLogging)

	r.HandleFunc("/", s.home).Methods(http.MethodGet)
	r.HandleFunc("/send_poll_message", s.sendPoll).Methods(http.MethodPost)
	r.HandleFunc("/end_poll_message", s.endPoll).Methods(http.MethodPost)
	r.HandleFunc("/send_message", s.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/tally", s.tally).Methods(http.MethodGet)
	r.HandleFunc("/reports", s.reports).Methods(http.MethodGet)
	if s.d.Metrics != nil {
		r.Handle("/metrics", s.d.Metrics).Methods(http.MethodGet)
	}
	if s.d.Live != nil {
		r.Handle("/ws/tally", s.d.Live)
	}
	return r
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Poll bot is running."))
}

func (s *Server) sendPoll(w http.ResponseWriter, r *http.Request) {
	s.d.Cycle.StartCycle(r.Context())
	w.Write([]byte("Poll message sent"))
}

func (s *Server) endPoll(w http.ResponseWriter, r *http.Request) {
	report := s.d.Cycle.EndCycle(r.Context())
	s.d.Logger.Info("poll ended from admin trigger", zap.String("report_id", report.ID))
	w.Write([]byte("Poll ended"))
}

type sendMessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "Invalid input"})
		return
	}

	text := fmt.Sprintf("Hello <@%s>, you said: %s", req.UserID, req.Text)
	if err := s.d.Gateway.PostMessage(r.Context(), s.d.Channel, gateway.Message{Text: text}); err != nil {
		if s.d.Counters != nil {
			s.d.Counters.GatewayFailures.WithLabelValues("admin_message").Inc()
		}
		s.d.Logger.Error("failed to send admin message", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, statusResponse{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: text})
}

type tallyResponse struct {
	Counts tally.Snapshot `json:"counts"`
	Total  int            `json:"total"`
}

func (s *Server) tally(w http.ResponseWriter, r *http.Request) {
	snap := s.d.Tally.Snapshot()
	writeJSON(w, http.StatusOK, tallyResponse{Counts: snap, Total: snap.Total()})
}

func (s *Server) reports(w http.ResponseWriter, r *http.Request) {
	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxReportLimit)
	}

	reports, err := s.d.Archive.RecentReports(r.Context(), limit)
	if err != nil {
		s.d.Logger.Error("failed to list reports", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Message: "failed to list reports"})
		return
	}
	if reports == nil {
		reports = []model.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.d.Logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
