package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/turtacn/community-intelligence/internal/application/intelligence"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/community-intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// ErrChatFailed is the error text of a failed chat request.
const ErrChatFailed = "Failed to process chat message"

// ChatErrorResponse pairs the error with the apology shown to the user.
type ChatErrorResponse struct {
	Error    string `json:"error"`
	Response string `json:"response"`
}

// ChatHandler answers chat messages.
type ChatHandler struct {
	service intelligence.ChatService
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

// NewChatHandler creates a ChatHandler backed by service.
func NewChatHandler(service intelligence.ChatService, metrics *prometheus.AppMetrics, logger logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ChatHandler{service: service, metrics: metrics, logger: logger}
}

// Post handles POST /api/chat with body {"message": "..."}.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With(logging.String("request_id", middleware.GetRequestID(r.Context())))

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if middleware.IsBodyTooLarge(err) {
			prometheus.RecordRejection(h.metrics, "body_too_large")
			writeError(w, http.StatusRequestEntityTooLarge, middleware.ErrBodyTooLarge)
			return
		}
		log.Warn("malformed chat request body", logging.Err(err))
		h.fail(w, http.StatusInternalServerError)
		return
	}

	message, ok := body["message"].(string)
	if !ok {
		log.Warn("chat request without a string message")
		h.fail(w, http.StatusInternalServerError)
		return
	}

	reply, err := h.service.Respond(r.Context(), message)
	if err != nil {
		logFailure(log, "chat responder failed", err)
		h.fail(w, errors.HTTPStatus(err))
		return
	}

	out, err := encodeJSON(reply)
	if err != nil {
		log.Error("failed to encode chat reply", logging.Err(err))
		h.fail(w, errors.HTTPStatus(err))
		return
	}
	writeBody(w, http.StatusOK, out)
}

func (h *ChatHandler) fail(w http.ResponseWriter, status int) {
	prometheus.RecordError(h.metrics, "chat_handler", "request_failed")
	_ = writeJSON(w, status, ChatErrorResponse{
		Error:    ErrChatFailed,
		Response: intelligence.ApologyResponse,
	})
}
