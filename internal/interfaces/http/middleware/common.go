// Package middleware holds the HTTP middleware chain of the service: request
// IDs, CORS, security headers, body limits, rate limiting, logging and
// metrics.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/turtacn/community-intelligence/pkg/errors"
)

// errorBody is the JSON shape of every response produced by a middleware.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

// writeAppError answers with the status of err's code and its message.
func writeAppError(w http.ResponseWriter, err *errors.AppError) {
	writeJSONError(w, errors.HTTPStatus(err), err.Message)
}
