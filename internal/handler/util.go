package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

var errNoBearer = errors.New("missing or malformed bearer token")

// getHeader performs a case-insensitive header lookup.
func getHeader(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, v := range req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(req events.APIGatewayProxyRequest) (string, error) {
	authHeader := getHeader(req, "Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errNoBearer
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", errNoBearer
	}
	return token, nil
}

// getCookie returns the value of the named cookie, or "".
func getCookie(req events.APIGatewayProxyRequest, name string) string {
	cookies := getHeader(req, "Cookie")
	if cookies == "" {
		return ""
	}
	// Cookie format: name=value; other=value
	for _, part := range strings.Split(cookies, ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, name+"="); ok {
			return v
		}
	}
	return ""
}

func accepts(req events.APIGatewayProxyRequest, mediaType string) bool {
	return strings.Contains(getHeader(req, "Accept"), mediaType)
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: `{"detail":"Internal Server Error"}`}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

// ErrorResponse renders {"detail": msg}.
func ErrorResponse(status int, detail string) events.APIGatewayProxyResponse {
	return jsonResponse(status, map[string]string{"detail": detail})
}
