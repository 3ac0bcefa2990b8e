// Package webhook receives statement deliveries from the bank and queues
// them for ingestion. It holds no engine state: a delivery is parsed,
// published and forgotten.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kasa/internal/amqp"
)

// Publisher queues a parsed statement for the ingestion side.
type Publisher interface {
	PublishStatement(ctx context.Context, msg *amqp.StatementMessage) error
}

type statementPayload struct {
	Type string `json:"type"`
	Data struct {
		Account       string          `json:"account"`
		StatementItem json.RawMessage `json:"statementItem"`
	} `json:"data"`
}

type statementItem struct {
	ID           string `json:"id"`
	Time         int64  `json:"time"`
	Description  string `json:"description"`
	Amount       int64  `json:"amount"`
	CurrencyCode int    `json:"currencyCode"`
}

type Server struct {
	srv       *http.Server
	publisher Publisher
}

func NewServer(addr string, publisher Publisher) *Server {
	s := &Server{publisher: publisher}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleCheck)
	mux.HandleFunc("POST /{user}", s.handleStatement)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:           addr,
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// The bank probes the webhook URL with a GET before accepting it.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	slog.DebugContext(r.Context(), "Webhook check")
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("{}"))
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		rejectedTotal.Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var payload statementPayload
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Data.StatementItem) == 0 {
		rejectedTotal.Inc()
		slog.WarnContext(r.Context(), "Unparseable webhook delivery",
			"user_id", userID, "error", err)
		// Redelivery of a malformed payload cannot succeed either.
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var item statementItem
	if err := json.Unmarshal(payload.Data.StatementItem, &item); err != nil {
		rejectedTotal.Inc()
		slog.WarnContext(r.Context(), "Unparseable statement item",
			"user_id", userID, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	msg := &amqp.StatementMessage{
		UserID:       userID,
		StatementID:  item.ID,
		Account:      payload.Data.Account,
		Amount:       item.Amount,
		CurrencyCode: item.CurrencyCode,
		Time:         item.Time,
		Description:  item.Description,
		RawData:      string(payload.Data.StatementItem),
		ReceivedAt:   time.Now(),
	}

	if err := s.publisher.PublishStatement(r.Context(), msg); err != nil {
		publishFailuresTotal.Inc()
		slog.ErrorContext(r.Context(), "Failed to queue statement",
			"user_id", userID, "statement_id", item.ID, "error", err)
		// Non-200 makes the bank redeliver later.
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	deliveriesTotal.Inc()
	slog.InfoContext(r.Context(), "Statement queued",
		"user_id", userID,
		"statement_id", item.ID,
		"amount", item.Amount,
		"currency_code", item.CurrencyCode)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("{}"))
}
