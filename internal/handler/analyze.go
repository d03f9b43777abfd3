package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/fitadvice/internal/markdown"
	"github.com/jun/fitadvice/internal/model"
	"github.com/jun/fitadvice/internal/session"
)

// Collector is implemented by *pipeline.Aggregator.
type Collector interface {
	Collect(ctx context.Context, cred model.Credential, refDate time.Time) (model.HealthRecord, error)
}

// Diagnoser is implemented by *advice.Generator.
type Diagnoser interface {
	Diagnose(ctx context.Context, record model.HealthRecord) (model.AdviceResult, error)
}

// AnalyzeHandler runs the collection pipeline and advice generation for
// the session's user.
type AnalyzeHandler struct {
	sessions  *session.Manager
	collector Collector
	diagnoser Diagnoser
	renderer  *markdown.Renderer
	logger    *slog.Logger
	now       func() time.Time
}

// NewAnalyzeHandler creates a new AnalyzeHandler. renderer may be nil to
// disable HTML output.
func NewAnalyzeHandler(sessions *session.Manager, c Collector, d Diagnoser, renderer *markdown.Renderer, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		sessions:  sessions,
		collector: c,
		diagnoser: d,
		renderer:  renderer,
		logger:    logger,
		now:       time.Now,
	}
}

// Analyze handles POST /analyze.
func (h *AnalyzeHandler) Analyze(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := BearerToken(req)
	if err != nil {
		return ErrorResponse(http.StatusUnauthorized, "Missing or invalid Authorization header"), nil
	}

	cred, err := h.sessions.Validate(token)
	if err != nil {
		h.logger.InfoContext(ctx, "session rejected", "error", err)
		return ErrorResponse(http.StatusUnauthorized, "Invalid or expired token"), nil
	}

	record, err := h.collector.Collect(ctx, cred, h.now())
	if err != nil {
		h.logger.ErrorContext(ctx, "health data collection failed", "user_id", cred.UserID, "error", err)
		if model.IsTimeout(err) {
			return ErrorResponse(http.StatusInternalServerError, "Timed out collecting health data"), nil
		}
		return ErrorResponse(http.StatusInternalServerError, "Failed to collect health data"), nil
	}

	result, err := h.diagnoser.Diagnose(ctx, record)
	if err != nil {
		h.logger.ErrorContext(ctx, "advice generation failed", "user_id", cred.UserID, "error", err)
		if model.IsTimeout(err) {
			return ErrorResponse(http.StatusInternalServerError, "Timed out generating advice"), nil
		}
		return ErrorResponse(http.StatusInternalServerError, "Failed to generate advice"), nil
	}

	if h.renderer != nil && accepts(req, "text/html") {
		html, err := h.renderer.RenderString(result.Text)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to render advice", "error", err)
			return ErrorResponse(http.StatusInternalServerError, "Failed to render advice"), nil
		}
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    map[string]string{"Content-Type": "text/html; charset=utf-8"},
			Body:       html,
		}, nil
	}

	return jsonResponse(http.StatusOK, result), nil
}
