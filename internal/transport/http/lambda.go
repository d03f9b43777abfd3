// Package httptransport serves the Lambda-shaped app over net/http.
package httptransport

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// LambdaFunc is the API Gateway proxy handler signature.
type LambdaFunc func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

const maxRequestBody = 1 << 20

// LambdaAdapter converts each HTTP request into an API Gateway proxy event
// and writes the returned response.
func LambdaAdapter(fn LambdaFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		headers := make(map[string]string, len(r.Header))
		for k, v := range r.Header {
			headers[k] = v[0]
		}
		if r.Host != "" {
			headers["Host"] = r.Host
		}

		query := r.URL.Query()
		queryParams := make(map[string]string, len(query))
		for k, v := range query {
			queryParams[k] = v[0]
		}

		req := events.APIGatewayProxyRequest{
			Path:                            r.URL.Path,
			HTTPMethod:                      r.Method,
			Headers:                         headers,
			MultiValueHeaders:               r.Header,
			QueryStringParameters:           queryParams,
			MultiValueQueryStringParameters: query,
			Body:                            string(body),
			RequestContext: events.APIGatewayProxyRequestContext{
				RequestID: chimw.GetReqID(r.Context()),
			},
		}

		resp, err := fn(r.Context(), req)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		for k, vs := range resp.MultiValueHeaders {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}

		out := []byte(resp.Body)
		if resp.IsBase64Encoded {
			if out, err = base64.StdEncoding.DecodeString(resp.Body); err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}
		w.WriteHeader(resp.StatusCode)
		w.Write(out)
	})
}
