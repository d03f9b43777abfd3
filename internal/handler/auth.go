package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/jun/fitadvice/internal/model"
	"github.com/jun/fitadvice/internal/session"
)

const stateCookie = "oauth_state"

// Authenticator is implemented by *auth.Service.
type Authenticator interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (model.Credential, error)
	SaveToken(ctx context.Context, cred model.Credential) error
}

// AuthHandler handles the Fitbit login flow.
type AuthHandler struct {
	auth         Authenticator
	sessions     *session.Manager
	dashboardURL string
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(a Authenticator, sessions *session.Manager, dashboardURL string, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         a,
		sessions:     sessions,
		dashboardURL: strings.TrimRight(dashboardURL, "/"),
		secureCookie: secureCookie,
		logger:       logger,
	}
}

func (h *AuthHandler) stateSetCookie(value string, maxAge int) string {
	cookie := fmt.Sprintf("%s=%s; HttpOnly; Path=/; Max-Age=%d; SameSite=Lax", stateCookie, value, maxAge)
	if h.secureCookie {
		cookie += "; Secure"
	}
	return cookie
}

// Login redirects to the Fitbit consent page.
func (h *AuthHandler) Login(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	state := uuid.NewString()

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": h.auth.AuthURL(state),
		},
		MultiValueHeaders: map[string][]string{
			"Set-Cookie": {h.stateSetCookie(state, 600)},
		},
	}, nil
}

// Callback exchanges the authorization code and hands a session token to the dashboard.
func (h *AuthHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	code := req.QueryStringParameters["code"]
	if code == "" {
		return ErrorResponse(http.StatusBadRequest, "Missing code"), nil
	}

	// Clients that never went through Login carry no cookie and skip the check.
	if want := getCookie(req, stateCookie); want != "" && req.QueryStringParameters["state"] != want {
		h.logger.WarnContext(ctx, "oauth state mismatch")
		return ErrorResponse(http.StatusBadRequest, "Invalid state"), nil
	}

	cred, err := h.auth.ExchangeCode(ctx, code)
	if err != nil {
		h.logger.ErrorContext(ctx, "code exchange failed", "error", err)
		return ErrorResponse(http.StatusInternalServerError, "Authentication failed"), nil
	}

	// Login proceeds even if the token could not be persisted.
	if err := h.auth.SaveToken(ctx, cred); err != nil {
		h.logger.WarnContext(ctx, "failed to save token", "user_id", cred.UserID, "error", err)
	}

	token, err := h.sessions.Issue(cred)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session token", "error", err)
		return ErrorResponse(http.StatusInternalServerError, "Failed to issue session token"), nil
	}

	h.logger.InfoContext(ctx, "login complete", "user_id", cred.UserID)
	clearState := map[string][]string{"Set-Cookie": {h.stateSetCookie("", 0)}}

	if accepts(req, "application/json") {
		resp := jsonResponse(http.StatusOK, map[string]any{
			"token":      token,
			"token_type": "Bearer",
			"expires_in": int(h.sessions.TTL().Seconds()),
		})
		resp.MultiValueHeaders = clearState
		return resp, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": h.dashboardURL + "/?token=" + url.QueryEscape(token),
		},
		MultiValueHeaders: clearState,
	}, nil
}
