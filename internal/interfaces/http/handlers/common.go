package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// encodeJSON renders data as a JSON document.
func encodeJSON(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode response")
	}
	return buf.Bytes(), nil
}

func writeBody(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// writeJSON writes a JSON response with the given status code.  The body is
// encoded before the status is sent; when encoding fails the client gets the
// serialization error status instead and the error is returned.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	if data == nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(statusCode)
		return nil
	}
	body, err := encodeJSON(data)
	if err != nil {
		code := errors.GetCode(err)
		fallback, _ := encodeJSON(ErrorResponse{Error: errors.DefaultMessageForCode(code)})
		writeBody(w, errors.HTTPStatusForCode(code), fallback)
		return err
	}
	writeBody(w, statusCode, body)
	return nil
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes {"error": message}.  Messages are generic; causes are
// logged, never sent.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	_ = writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// logFailure logs err at error level when its code maps to a server error and
// at warn level otherwise.
func logFailure(log logging.Logger, msg string, err error) {
	if errors.IsServerError(errors.GetCode(err)) {
		log.Error(msg, logging.Err(err))
		return
	}
	log.Warn(msg, logging.Err(err))
}
