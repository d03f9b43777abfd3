package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/jun/fitadvice/internal/advice"
	"github.com/jun/fitadvice/internal/auth"
	"github.com/jun/fitadvice/internal/config"
	"github.com/jun/fitadvice/internal/handler"
	"github.com/jun/fitadvice/internal/markdown"
	"github.com/jun/fitadvice/internal/metrics"
	"github.com/jun/fitadvice/internal/secret"
	"github.com/jun/fitadvice/internal/session"
	"github.com/jun/fitadvice/internal/tokenstore"
)

// Option overrides a dependency NewApp would otherwise build.
type Option func(*options)

type options struct {
	metrics    metrics.Recorder
	resolver   secret.Resolver
	store      tokenstore.Store
	text       advice.TextGenerator
	httpClient *http.Client
}

func WithMetrics(m metrics.Recorder) Option {
	return func(o *options) { o.metrics = m }
}

func WithResolver(r secret.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

func WithTokenStore(s tokenstore.Store) Option {
	return func(o *options) { o.store = s }
}

func WithTextGenerator(t advice.TextGenerator) Option {
	return func(o *options) { o.text = t }
}

// WithHTTPClient sets the client used for Fitbit API and token calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// App holds the dependencies for the Lambda function and local server.
type App struct {
	authHandler    *handler.AuthHandler
	analyzeHandler *handler.AnalyzeHandler
	dashboardURL   string
	originSecret   string
	logger         *slog.Logger
	closers        []func() error
}

// NewApp validates cfg, resolves secrets and wires every component once.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{metrics: metrics.Nop{}, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}

	loadAWS := awsLoader(sync.OnceValues(func() (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	}))

	resolver := o.resolver
	if resolver == nil {
		var err error
		if resolver, err = NewResolver(cfg, loadAWS); err != nil {
			return nil, err
		}
	}
	if err := cfg.ResolveSecrets(ctx, resolver); err != nil {
		return nil, err
	}

	app := &App{
		dashboardURL: strings.TrimRight(cfg.DashboardURL, "/"),
		originSecret: cfg.OriginVerifySecret,
		logger:       logger,
	}

	store := o.store
	if store == nil {
		s, closer, err := NewTokenStore(ctx, cfg, loadAWS, logger)
		if err != nil {
			return nil, err
		}
		store = s
		app.closers = append(app.closers, closer)
	}

	agg, err := NewAggregator(cfg, o.httpClient, logger, o.metrics)
	if err != nil {
		return nil, err
	}
	gen, err := NewGenerator(ctx, cfg, o.text, logger, o.metrics)
	if err != nil {
		return nil, err
	}

	oauthConfig := auth.NewOAuthConfig(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI, cfg.FitbitAuthURL, cfg.FitbitTokenURL)
	authService := auth.NewService(oauthConfig, o.httpClient, cfg.UpstreamTimeout, store)
	sessions := session.NewManager(cfg.JWTSecret, cfg.SessionTTL)

	app.authHandler = handler.NewAuthHandler(authService, sessions, cfg.DashboardURL, !cfg.DevMode, logger)
	app.analyzeHandler = handler.NewAnalyzeHandler(sessions, agg, gen, markdown.NewRenderer(), logger)

	logger.Info("app initialized",
		"token_store", cfg.TokenStore,
		"secret_source", cfg.SecretSource,
		"categories", len(agg.Categories()),
		"origin_verify", app.originSecret != "",
	)
	return app, nil
}

// Close releases store connections.
func (app *App) Close() error {
	var firstErr error
	for _, c := range app.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	method := req.HTTPMethod
	// Strip /api prefix if present (for CloudFront proxying)
	path := strings.TrimPrefix(req.Path, "/api")
	if path == "" {
		path = "/"
	}

	app.logger.DebugContext(ctx, "request", "method", method, "path", path)

	if method == http.MethodOptions {
		return app.corsResponse(events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}), nil
	}

	// Only enforced when the origin secret resolved at start-up.
	if app.originSecret != "" && headerValue(req, "X-Origin-Verify") != app.originSecret {
		app.logger.WarnContext(ctx, "missing or invalid X-Origin-Verify header", "path", path)
		return app.corsResponse(handler.ErrorResponse(http.StatusForbidden, "Forbidden")), nil
	}

	type route struct {
		method string
		fn     func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
	}
	routes := map[string]route{
		"/":         {http.MethodGet, app.root},
		"/login":    {http.MethodGet, app.authHandler.Login},
		"/callback": {http.MethodGet, app.authHandler.Callback},
		"/analyze":  {http.MethodPost, app.analyzeHandler.Analyze},
	}

	r, ok := routes[path]
	if !ok {
		return app.corsResponse(handler.ErrorResponse(http.StatusNotFound, fmt.Sprintf("Not Found: %s %s", method, path))), nil
	}
	if r.method != method {
		return app.corsResponse(handler.ErrorResponse(http.StatusMethodNotAllowed, "Method Not Allowed")), nil
	}
	return app.corsResponse(app.must(r.fn(ctx, req))), nil
}

func (app *App) root(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       `{"message":"fitadvice is running."}`,
	}, nil
}

// corsResponse adds CORS headers for the dashboard origin.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.dashboardURL
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization,Accept"
	return resp
}

// must unwraps a handler response, logging and masking the error.
func (app *App) must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		app.logger.Error("handler error", "error", err)
		return handler.ErrorResponse(http.StatusInternalServerError, "Internal Server Error")
	}
	return resp
}

func headerValue(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
