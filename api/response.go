package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
)

// errorResponse is the error envelope every failing endpoint returns.
type errorResponse struct {
	Error      string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	StatusCode int    `json:"status_code"`
}

// writeJSON writes a JSON response. The body is encoded into a buffer first
// so headers are only sent after encoding succeeded.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("write response body", "error", err)
	}
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, detail string, logger log.Logger) {
	writeJSON(w, status, errorResponse{
		Error:      code,
		Detail:     detail,
		StatusCode: status,
	}, logger)
}
