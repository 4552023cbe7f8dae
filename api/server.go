package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"loyaltyd/report"
	"loyaltyd/tiers"
)

// Dispatcher is the slice of the orchestrator the HTTP surface needs. Batches
// run in the background; the handlers only validate and translate.
type Dispatcher interface {
	Run(ctx context.Context, snapshots []report.Snapshot)
	RunLoyaltyRefresh(ctx context.Context, wallets []string)
}

// Server is the ingest API. Report files are referenced by filesystem path in
// request headers rather than uploaded; the daemon and the report exporter
// share a volume.
type Server struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	router     http.Handler

	// background is the context batch dispatch runs under after the HTTP
	// response is written.
	background context.Context
}

// NewServer builds the router.
func NewServer(dispatcher Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		dispatcher: dispatcher,
		logger:     logger,
		background: context.Background(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Route("/issue", func(r chi.Router) {
		r.Post("/pda", s.handleMonthly)
		// Legacy alias kept for callers still on the original path.
		r.Post("/pda/v1", s.handleMonthly)
		r.Post("/pda/linea", s.handleLinea)
		r.Post("/pda/campaign", s.handleCampaign)
		r.Post("/loyalty-pass", s.handleLoyaltyPass)
	})
	r.Post("/stats/wallet", s.handleWalletStats)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// readReportFile loads and decodes the JSON file a header points at.
func readReportFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read report file: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode report file: %w", err)
	}
	return nil
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	path := r.Header.Get("pda")
	if path == "" {
		writeError(w, http.StatusBadRequest, "Missing pda file as header")
		return
	}
	var rows []report.WalletReport
	if err := readReportFile(path, &rows); err != nil {
		s.logger.Warn("rejecting monthly batch", "path", path, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid PDA file")
		return
	}

	snapshots := make([]report.Snapshot, 0, len(rows))
	for _, row := range rows {
		snapshot, err := report.ParseWalletReport(row)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		snapshots = append(snapshots, snapshot)
	}

	batch := uuid.NewString()
	s.logger.Info("monthly batch accepted", "batch", batch, "wallets", len(snapshots))
	go s.dispatcher.Run(s.background, snapshots)
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleLinea(w http.ResponseWriter, r *http.Request) {
	path := r.Header.Get("pda")
	if path == "" {
		writeError(w, http.StatusBadRequest, "Missing pda file as header")
		return
	}
	var rows []report.LineaReport
	if err := readReportFile(path, &rows); err != nil {
		s.logger.Warn("rejecting linea batch", "path", path, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid PDA file")
		return
	}

	snapshots := make([]report.Snapshot, 0, len(rows))
	for _, row := range rows {
		snapshot, err := report.ParseLineaReport(row)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		snapshots = append(snapshots, snapshot)
	}

	batch := uuid.NewString()
	s.logger.Info("linea batch accepted", "batch", batch, "wallets", len(snapshots))
	go s.dispatcher.Run(s.background, snapshots)
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCampaign(w http.ResponseWriter, r *http.Request) {
	path := r.Header.Get("pda")
	if path == "" {
		writeError(w, http.StatusBadRequest, "Missing pda file as header")
		return
	}
	campaign, err := tiers.ParseCampaign(r.Header.Get("campaign"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var rows []report.CampaignReport
	if err := readReportFile(path, &rows); err != nil {
		s.logger.Warn("rejecting campaign batch", "path", path, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid PDA file")
		return
	}

	snapshots := make([]report.Snapshot, 0, len(rows))
	for _, row := range rows {
		snapshot, err := report.ParseCampaignReport(row, campaign)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		snapshots = append(snapshots, snapshot)
	}

	batch := uuid.NewString()
	s.logger.Info("campaign batch accepted",
		"batch", batch, "campaign", campaign, "wallets", len(snapshots))
	go s.dispatcher.Run(s.background, snapshots)
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleLoyaltyPass(w http.ResponseWriter, r *http.Request) {
	path := r.Header.Get("loyaltypass")
	if path == "" {
		writeError(w, http.StatusBadRequest, "Missing LoyaltyPass file as header")
		return
	}
	var rows []report.LoyaltyPassRow
	if err := readReportFile(path, &rows); err != nil {
		s.logger.Warn("rejecting loyalty pass batch", "path", path, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid LoyaltyPass file")
		return
	}

	wallets := make([]string, 0, len(rows))
	for _, row := range rows {
		wallet, err := report.ChecksumAddress(row.FromAddress)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		wallets = append(wallets, wallet)
	}

	batch := uuid.NewString()
	s.logger.Info("loyalty pass batch accepted", "batch", batch, "wallets", len(wallets))
	go s.dispatcher.RunLoyaltyRefresh(s.background, wallets)
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleWalletStats(w http.ResponseWriter, r *http.Request) {
	month, err := report.ParseMonth(r.Header.Get("month"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "MISSING_MONTH_HEADER",
			"message": "Missing or invalid `month` header",
		})
		return
	}
	inputPath := r.Header.Get("input")
	outputPath := r.Header.Get("output")
	if inputPath == "" || outputPath == "" {
		writeError(w, http.StatusBadRequest, "Missing input/output file headers")
		return
	}

	var analytics []report.WalletAnalytics
	if err := readReportFile(inputPath, &analytics); err != nil {
		s.logger.Warn("rejecting analytics input", "path", inputPath, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid analytics file")
		return
	}

	rows := make([]report.MonthlyMetrics, 0, len(analytics))
	for _, wallet := range analytics {
		rows = append(rows, report.ComputeWalletMetrics(wallet, month))
	}

	encoded, err := json.Marshal(rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode metrics")
		return
	}
	if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
		s.logger.Error("writing metrics output", "path", outputPath, "error", err)
		writeError(w, http.StatusInternalServerError, "write metrics output")
		return
	}

	s.logger.Info("wallet stats computed", "wallets", len(rows), "output", outputPath)
	writeJSON(w, http.StatusOK, rows)
}
