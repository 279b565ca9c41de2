package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aescanero/graph-builder/internal/application/state"
	metrics "github.com/aescanero/graph-builder/pkg/adapters/metrics/prometheus"
)

const tracerName = "github.com/aescanero/graph-builder/pkg/api/http"

// ContentTypeGraphV1 is the versioned media type of the graph document
const ContentTypeGraphV1 = "application/vnd.redhat.cincinnati.v1+json"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// StatusResponse is the body of the liveness and readiness endpoints
type StatusResponse struct {
	Status string `json:"status"`
}

type handlers struct {
	state   *state.State
	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

// handleLiveness reports whether the refresher is running
func (h *handlers) handleLiveness(c *gin.Context) {
	respondFlag(c, h.state.IsLive(), "live", "not live")
}

// handleReadiness reports whether a graph has been published. It does not
// consider liveness.
func (h *handlers) handleReadiness(c *gin.Context) {
	respondFlag(c, h.state.IsReady(), "ready", "not ready")
}

func respondFlag(c *gin.Context, ok bool, up, down string) {
	if ok {
		c.JSON(http.StatusOK, StatusResponse{Status: up})
		return
	}
	c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: down})
}

// handleGraph serves the graph document
func (h *handlers) handleGraph(c *gin.Context) {
	if h.metrics != nil {
		h.metrics.IncIncomingRequests()
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "graph.index")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	if !acceptsGraph(c) {
		h.respondError(c, span, http.StatusNotAcceptable, "NOT_ACCEPTABLE",
			"only application/json is supported", []string{"application/json", ContentTypeGraphV1})
		return
	}

	if missing := h.missingParameters(c); len(missing) > 0 {
		h.respondError(c, span, http.StatusBadRequest, "MISSING_PARAMETERS",
			"mandatory client parameters missing: "+strings.Join(missing, ", "), missing)
		return
	}

	graph := h.state.Graph()
	span.SetAttributes(attribute.Int("graph.bytes", len(graph)))

	c.Data(http.StatusOK, "application/json", []byte(graph))
}

// handleGraphData serves the secondary metadata document
func (h *handlers) handleGraphData(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", []byte(h.state.Metadata()))
}

// missingParameters returns the sorted mandatory parameters absent from the
// query string. An empty value counts as absent.
func (h *handlers) missingParameters(c *gin.Context) []string {
	var missing []string
	for _, p := range h.state.MandatoryParameters() {
		if c.Query(p) == "" {
			missing = append(missing, p)
		}
	}
	return missing
}

func (h *handlers) respondError(c *gin.Context, span trace.Span, status int, code, message string, details interface{}) {
	if h.metrics != nil {
		h.metrics.IncResponseErrors()
	}
	span.SetAttributes(attribute.String("error.code", code))

	h.logger.Debug("rejecting graph request",
		zap.String("code", code),
		zap.String("message", message))

	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// acceptsGraph reports whether the request's Accept header admits a JSON
// graph. An absent header accepts anything.
func acceptsGraph(c *gin.Context) bool {
	if strings.TrimSpace(c.GetHeader("Accept")) == "" {
		return true
	}
	return c.NegotiateFormat(gin.MIMEJSON, ContentTypeGraphV1) != ""
}
