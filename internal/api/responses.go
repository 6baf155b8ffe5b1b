package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yonathanavila/verified-chain-bk/internal/core/services"
	"github.com/yonathanavila/verified-chain-bk/internal/prover"
	"github.com/yonathanavila/verified-chain-bk/pkg/blockchain/eth"
)

type verifiedChainResponse struct {
	Message    string `json:"message"`
	Commitment string `json:"commitment"`
	TxHash     string `json:"txHash"`
	Index      string `json:"index"`
	Verified   bool   `json:"verified"`
}

type errorResponse struct {
	Stage string `json:"stage,omitempty"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, stage, msg string) {
	writeJSON(w, status, errorResponse{Stage: stage, Error: msg})
}

// mapPipelineError maps a pipeline failure to an HTTP status, the failed
// stage and a summarized cause. Raw prover stderr and node error text stay in
// the logs, never in the response body.
func mapPipelineError(err error) (status int, stage string, msg string) {
	if errors.Is(err, services.ErrRequestInFlight) {
		return http.StatusConflict, "", "an equivalent request is already being processed"
	}

	var stageErr *services.StageError
	if errors.As(err, &stageErr) {
		stage = string(stageErr.Stage)
	}

	switch {
	case errors.Is(err, prover.ErrProofTimeout):
		return http.StatusGatewayTimeout, stage, "proof generation timed out"
	case errors.Is(err, prover.ErrProcessFailed):
		return http.StatusInternalServerError, stage, "proof generation failed"
	case errors.Is(err, prover.ErrArtifactMissing):
		return http.StatusInternalServerError, stage, "proof artifact was not produced"
	case errors.Is(err, eth.ErrEstimation):
		return http.StatusBadGateway, stage, "the node rejected the transaction estimation"
	case errors.Is(err, eth.ErrSubmission):
		return http.StatusBadGateway, stage, "the node rejected the transaction"
	case errors.Is(err, eth.ErrReceiptNotReceived):
		return http.StatusBadGateway, stage, "no transaction receipt within the confirmation window"
	case errors.Is(err, eth.ErrReceiptStatusFailed):
		return http.StatusBadGateway, stage, "the submission transaction reverted"
	case errors.Is(err, eth.ErrCall):
		return http.StatusBadGateway, stage, "the verification call failed"
	}

	return http.StatusInternalServerError, stage, "internal error"
}
