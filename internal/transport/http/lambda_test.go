package httptransport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLambdaAdapter_TranslatesRequestAndResponse(t *testing.T) {
	var got events.APIGatewayProxyRequest
	h := LambdaAdapter(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		got = req
		return events.APIGatewayProxyResponse{
			StatusCode:        http.StatusFound,
			Headers:           map[string]string{"Location": "http://localhost:8501/?token=x"},
			MultiValueHeaders: map[string][]string{"Set-Cookie": {"a=1", "b=2"}},
			Body:              "moved",
		}, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/api/callback?code=abc123&state=s1", strings.NewReader(`{"x":1}`))
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "/api/callback", got.Path)
	assert.Equal(t, http.MethodPost, got.HTTPMethod)
	assert.Equal(t, "abc123", got.QueryStringParameters["code"])
	assert.Equal(t, "Bearer tok", got.Headers["Authorization"])
	assert.Equal(t, `{"x":1}`, got.Body)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://localhost:8501/?token=x", w.Header().Get("Location"))
	assert.Equal(t, []string{"a=1", "b=2"}, w.Header().Values("Set-Cookie"))
	assert.Equal(t, "moved", w.Body.String())
}

func TestLambdaAdapter_HandlerError(t *testing.T) {
	h := LambdaAdapter(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return events.APIGatewayProxyResponse{}, errors.New("boom")
	})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestLambdaAdapter_Base64Body(t *testing.T) {
	h := LambdaAdapter(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return events.APIGatewayProxyResponse{StatusCode: 200, Body: "aGVsbG8=", IsBase64Encoded: true}, nil
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "hello", string(body))
}

func TestNewServer(t *testing.T) {
	cfg := DefaultServerConfig(":9999")
	srv := NewServer(cfg, http.NotFoundHandler())
	assert.Equal(t, ":9999", srv.Addr)
	assert.Equal(t, 120*time.Second, srv.WriteTimeout)
}
