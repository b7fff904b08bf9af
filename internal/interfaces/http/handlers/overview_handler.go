package handlers

import (
	"net/http"

	"github.com/turtacn/community-intelligence/internal/application/intelligence"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// ErrOverviewFailed is the body of the 500 sent when the overview cannot be
// built.
const ErrOverviewFailed = "Failed to load community intelligence overview"

// OverviewHandler serves the community intelligence overview.
type OverviewHandler struct {
	service intelligence.OverviewService
	logger  logging.Logger
}

// NewOverviewHandler creates an OverviewHandler backed by service.
func NewOverviewHandler(service intelligence.OverviewService, logger logging.Logger) *OverviewHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &OverviewHandler{service: service, logger: logger}
}

// Get handles GET /api/analytics/overview.  Data-source failures never reach
// this handler; the trend service already substituted fallback data.
func (h *OverviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With(logging.String("request_id", middleware.GetRequestID(r.Context())))

	payload, err := h.service.Build(r.Context())
	if err != nil {
		logFailure(log, "failed to build overview", err)
		writeError(w, errors.HTTPStatus(err), ErrOverviewFailed)
		return
	}
	if err := writeJSON(w, http.StatusOK, payload); err != nil {
		log.Error("failed to encode overview", logging.Err(err))
	}
}
