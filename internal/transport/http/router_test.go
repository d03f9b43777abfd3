package httptransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"

	"github.com/jun/fitadvice/internal/logging"
	"github.com/jun/fitadvice/internal/middleware"
)

func TestNewRouter(t *testing.T) {
	var gotRequestID string
	fn := func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		gotRequestID = req.RequestContext.RequestID
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Body: req.Path}, nil
	}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metrics"))
	})
	h := NewRouter(fn, metrics, logging.Discard())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "metrics", w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/api/analyze", w.Body.String())
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, gotRequestID, w.Header().Get(middleware.RequestIDHeader))
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	fn := func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		panic("boom")
	}
	h := NewRouter(fn, nil, logging.Discard())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
