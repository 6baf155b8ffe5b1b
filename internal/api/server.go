// Package api exposes the HTTP surface of the service.
package api

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/yonathanavila/verified-chain-bk/internal/core/domain"
	"github.com/yonathanavila/verified-chain-bk/internal/core/ports"
	"github.com/yonathanavila/verified-chain-bk/internal/health"
	"github.com/yonathanavila/verified-chain-bk/internal/log"
)

// Server handles the HTTP endpoints.
type Server struct {
	pipeline ports.Pipeline
	health   *health.Status
}

// NewServer creates the HTTP server over the given pipeline.
func NewServer(pipeline ports.Pipeline, h *health.Status) *Server {
	return &Server{pipeline: pipeline, health: h}
}

// Routes wires the router. ctx carries the process logger; per-request
// contexts are derived from it so handlers log through the same sink.
func (s *Server) Routes(ctx context.Context) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(log.ChiMiddleware(ctx))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	mux.Get("/verified-chain", s.verifiedChain(ctx))
	mux.Get("/status", s.status(ctx))

	return mux
}

func (s *Server) verifiedChain(serverCtx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := log.CopyFromContext(serverCtx, r.Context())

		q := r.URL.Query()
		hello := q.Get("hello")
		if hello == "" {
			writeError(w, http.StatusBadRequest, "", "missing hello parameter")
			return
		}
		setter := q.Get("helloSetter")
		if !common.IsHexAddress(setter) {
			writeError(w, http.StatusBadRequest, "", "helloSetter must be a valid chain address")
			return
		}

		req := domain.ProofRequest{
			ID:        uuid.NewString(),
			Requester: common.HexToAddress(setter).Hex(),
			Payload:   hello,
			Signature: q.Get("signature"),
		}

		res, err := s.pipeline.Run(ctx, req)
		if err != nil {
			status, stage, msg := mapPipelineError(err)
			log.Error(ctx, "request failed", err, "stage", stage)
			writeError(w, status, stage, msg)
			return
		}

		writeJSON(w, http.StatusOK, verifiedChainResponse{
			Message:    "commitment submitted and verified on chain",
			Commitment: res.Commitment,
			TxHash:     res.TxHash,
			Index:      res.Index.String(),
			Verified:   res.Verified,
		})
	}
}

func (s *Server) status(serverCtx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := log.CopyFromContext(serverCtx, r.Context())
		statuses := s.health.Status(ctx)
		code := http.StatusOK
		for _, up := range statuses {
			if !up {
				code = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, statuses)
	}
}
