// Command coachcore runs the chat orchestration core's HTTP entry point: a
// single streaming turn endpoint backed by the internal/turn pipeline.
//
// # Configuration
//
// See internal/config.Load's doc comment for the full environment
// variable list.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jmouallem/claude-longevity-sub000/internal/analysis"
	"github.com/jmouallem/claude-longevity-sub000/internal/config"
	"github.com/jmouallem/claude-longevity-sub000/internal/contextbuilder"
	"github.com/jmouallem/claude-longevity-sub000/internal/crypto"
	"github.com/jmouallem/claude-longevity-sub000/internal/store"
	"github.com/jmouallem/claude-longevity-sub000/internal/telemetry"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry"
	"github.com/jmouallem/claude-longevity-sub000/internal/toolregistry/websearch"
	"github.com/jmouallem/claude-longevity-sub000/internal/turn"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	enc, err := loadEncryptor(cfg)
	if err != nil {
		return err
	}

	logger := telemetry.NewClueLogger()
	metrics := telemetry.NewClueMetrics()
	tracer := telemetry.NewClueTracer()

	reg := toolregistry.New()
	toolregistry.RegisterReadTools(reg, db)
	toolregistry.RegisterWriteTools(reg, db)
	toolregistry.RegisterMealAndNotificationReadTools(reg, db)
	toolregistry.RegisterMealAndNotificationWriteTools(reg, db)
	toolregistry.RegisterTimeTool(reg, db)

	searchClient := websearch.NewClient(db, cfg.WebSearchCacheTTL)
	toolregistry.RegisterWebSearchTool(reg, searchClient)

	ctxBuilder := contextbuilder.NewBuilder(db)

	engine := analysis.New(db, enc, logger, metrics)
	engine.AutoApplyProposals = cfg.AnalysisAutoApplyProposals

	var dispatch *analysis.Dispatcher
	if cfg.EnableLongitudinalAnalysis {
		dispatch = analysis.NewDispatcher(engine, logger, cfg.Analysis)
		if err := dispatch.Start(ctx, cfg.AnalysisSweepCron); err != nil {
			return err
		}
		defer dispatch.Stop()
	}

	orch := turn.New(turn.Deps{
		Store:          db,
		Tools:          reg,
		ContextBuilder: ctxBuilder,
		Encryptor:      enc,
		Engine:         engine,
		Dispatcher:     dispatch,
		WebSearch:      searchClient,
		Logger:         logger,
		Metrics:        metrics,
		Tracer:         tracer,
		Config:         cfg.Turn,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/turns", handleTurn(orch))
	mux.HandleFunc("DELETE /v1/users/{id}", handleResetUser(db))
	mux.HandleFunc("GET /healthz", handleHealthz)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           otelhttp.NewHandler(mux, "coachcore"),
		ReadHeaderTimeout: 10 * 1e9,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "coachcore listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func loadEncryptor(cfg config.Config) (crypto.Encryptor, error) {
	if cfg.EncryptionKeyHex == "" {
		// Local/test mode: derive a fixed key so the process is at least
		// internally consistent across restarts of the same binary.
		return crypto.NewAESGCMEncryptor(make([]byte, 32))
	}
	key, err := decodeHexKey(cfg.EncryptionKeyHex)
	if err != nil {
		return nil, err
	}
	return crypto.NewAESGCMEncryptor(key)
}

func decodeHexKey(hexKey string) ([]byte, error) {
	key := make([]byte, len(hexKey)/2)
	_, err := hexDecode(key, hexKey)
	return key, err
}

type turnRequest struct {
	UserID             int64  `json:"user_id"`
	Message            string `json:"message"`
	SpecialistOverride string `json:"specialist_override,omitempty"`
}

// handleTurn streams one chat turn's output as newline-delimited JSON
// chunks, flushing after every write so the client sees tokens as they
// arrive rather than buffered until the handler returns.
func handleTurn(orch *turn.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req turnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.UserID == 0 || req.Message == "" {
			http.Error(w, "user_id and message are required", http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)

		chunks := orch.RunTurn(r.Context(), turn.Input{
			UserID:             req.UserID,
			Message:            req.Message,
			SpecialistOverride: req.SpecialistOverride,
		})
		enc := json.NewEncoder(w)
		for c := range chunks {
			if err := enc.Encode(c); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleResetUser deletes a user and every row they own, the concrete
// entry point for the ownership-cascade invariant: nothing in the chat
// turn pipeline itself ever deletes a user, so this route is the sole
// caller of store.DB.ResetUser. The handler performs no authentication or
// role check of its own.
func handleResetUser(db *store.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}
		if err := db.ResetUser(r.Context(), userID); err != nil {
			http.Error(w, "reset failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func hexDecode(dst []byte, src string) (int, error) {
	n := 0
	for i := 0; i+1 < len(src); i += 2 {
		v, err := strconv.ParseUint(src[i:i+2], 16, 8)
		if err != nil {
			return n, err
		}
		dst[n] = byte(v)
		n++
	}
	return n, nil
}
