package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Machine-readable failure codes returned in the error envelope.
const (
	// ErrCodeInvalidBody marks a malformed or incomplete request body (400).
	ErrCodeInvalidBody = "INVALID_BODY"
	// ErrCodeNotConfigured marks a missing provider credential (500).
	// Configuration failures are never retried.
	ErrCodeNotConfigured = "NOT_CONFIGURED"
	// ErrCodeCallFailed marks a transport-level failure reaching upstream:
	// no HTTP response existed at all (502).
	ErrCodeCallFailed = "UPSTREAM_CALL_FAILED"
	// ErrCodeUpstreamError marks an upstream error document (502, with the
	// upstream status recorded in the envelope).
	ErrCodeUpstreamError = "UPSTREAM_ERROR"
	// ErrCodePlanUnavailable is the definitive structured-plan failure
	// after the bounded retry ladder is exhausted (502).
	ErrCodePlanUnavailable = "PLAN_UNAVAILABLE"
	// ErrCodeFetchFailed marks a listing page that could not be fetched (502).
	ErrCodeFetchFailed = "FETCH_FAILED"
)

// failureEnvelope is the uniform error response body.
type failureEnvelope struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Status  int    `json:"status,omitempty"`
	Details string `json:"details,omitempty"`
}

// writeJSON serializes body as the response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode response", "error", err.Error())
	}
}

// writeFailure writes the uniform failure envelope.
func writeFailure(w http.ResponseWriter, httpStatus int, code string, details string) {
	writeJSON(w, httpStatus, failureEnvelope{Error: code, Details: details})
}

// writeUpstreamFailure writes a failure envelope that records the upstream
// status alongside the gateway's own 502.
func writeUpstreamFailure(w http.ResponseWriter, code string, upstreamStatus int) {
	writeJSON(w, http.StatusBadGateway, failureEnvelope{Error: code, Status: upstreamStatus})
}

// passthrough returns the upstream error body and status unmodified, as
// plain text. Used when the gateway has nothing better to offer than what
// upstream said.
func passthrough(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Warn("failed to write passthrough body", "error", err.Error())
	}
}
