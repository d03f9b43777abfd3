package handler

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
		wantErr bool
	}{
		{"valid", map[string]string{"Authorization": "Bearer abc"}, "abc", false},
		{"lowercase header name", map[string]string{"authorization": "Bearer abc"}, "abc", false},
		{"missing", map[string]string{}, "", true},
		{"wrong scheme", map[string]string{"Authorization": "Basic abc"}, "", true},
		{"empty token", map[string]string{"Authorization": "Bearer "}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(events.APIGatewayProxyRequest{Headers: tt.headers})
			if (err != nil) != tt.wantErr {
				t.Fatalf("BearerToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBearerToken_MultiValueHeaders(t *testing.T) {
	req := events.APIGatewayProxyRequest{
		MultiValueHeaders: map[string][]string{"Authorization": {"Bearer abc"}},
	}
	got, err := BearerToken(req)
	if err != nil || got != "abc" {
		t.Errorf("BearerToken() = %q, %v", got, err)
	}
}

func TestGetCookie(t *testing.T) {
	req := events.APIGatewayProxyRequest{
		Headers: map[string]string{"Cookie": "theme=dark; oauth_state=s1; other=x"},
	}
	if got := getCookie(req, "oauth_state"); got != "s1" {
		t.Errorf("getCookie() = %q, want s1", got)
	}
	if got := getCookie(req, "missing"); got != "" {
		t.Errorf("getCookie() = %q, want empty", got)
	}
}

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse(401, "Invalid or expired token")
	if resp.Body != `{"detail":"Invalid or expired token"}` {
		t.Errorf("unexpected body %s", resp.Body)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("unexpected content type %q", resp.Headers["Content-Type"])
	}
}
