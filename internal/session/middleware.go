package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/pillminder/internal/instrumentation"
	"github.com/teemow/pillminder/internal/logging"
)

const (
	// RefreshTokenHeader optionally carries a refresh token alongside the
	// bearer token, for callers that let the server refresh on their behalf.
	RefreshTokenHeader = "X-Google-Refresh-Token"

	// TokenExpiryHeader optionally carries the access token expiry (RFC3339).
	TokenExpiryHeader = "X-Google-Token-Expiry"

	defaultAccessTokenExpiry = time.Hour
	tokenStoreTimeout        = 5 * time.Second
)

// ErrorResponse is the JSON body of every error written by the HTTP surface.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Middleware attaches the caller's session to each request.
type Middleware struct {
	validate    bool
	userInfoURL string
	httpClient  *http.Client
	cache       *TokenCache
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithValidation turns userinfo validation on or off (default on).
func WithValidation(validate bool) Option {
	return func(m *Middleware) { m.validate = validate }
}

// WithUserInfoURL overrides the userinfo endpoint.
func WithUserInfoURL(url string) Option {
	return func(m *Middleware) { m.userInfoURL = url }
}

// WithHTTPClient sets the client used for validation calls.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Middleware) { m.httpClient = client }
}

// WithTokenCache stores validated tokens in cache, keyed by email.
func WithTokenCache(cache *TokenCache) Option {
	return func(m *Middleware) { m.cache = cache }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) { m.logger = logger }
}

func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(m *Middleware) { m.metrics = metrics }
}

// NewMiddleware creates a session middleware.
func NewMiddleware(opts ...Option) *Middleware {
	m := &Middleware{
		validate:    true,
		userInfoURL: DefaultUserInfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler wraps next. Requests without an Authorization header pass through
// without a session; a malformed header or a token that fails validation is
// rejected with 401.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, accessToken, ok := strings.Cut(authHeader, " ")
		accessToken = strings.TrimSpace(accessToken)
		if !ok || !strings.EqualFold(scheme, "bearer") || accessToken == "" {
			writeUnauthorized(w, "Invalid Authorization header format")
			return
		}

		token := &oauth2.Token{
			AccessToken:  accessToken,
			TokenType:    "Bearer",
			RefreshToken: r.Header.Get(RefreshTokenHeader),
			Expiry:       parseTokenExpiry(r.Header.Get(TokenExpiryHeader)),
		}

		ctx := WithToken(r.Context(), token)

		if !m.validate {
			m.metrics.RecordTokenValidation(ctx, instrumentation.ValidationResultSkipped)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		user, err := fetchUserInfo(ctx, m.httpClient, m.userInfoURL, token)
		if err != nil {
			m.metrics.RecordTokenValidation(ctx, instrumentation.ValidationResultFailure)
			m.logger.Warn("bearer token validation failed",
				slog.String("token", logging.SanitizeToken(accessToken)),
				logging.Err(err))
			writeUnauthorized(w, actionableMessage(err))
			return
		}
		m.metrics.RecordTokenValidation(ctx, instrumentation.ValidationResultSuccess)

		ctx = WithUser(ctx, user)
		m.cacheToken(ctx, user.Email, token)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cacheToken stores the token; a failure only costs background jobs access.
func (m *Middleware) cacheToken(ctx context.Context, email string, token *oauth2.Token) {
	if m.cache == nil {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenStoreTimeout)
	defer cancel()

	if err := m.cache.Save(storeCtx, email, token); err != nil {
		m.logger.Error("failed to cache session token",
			logging.UserHash(email),
			logging.Err(err))
		return
	}
	m.logger.Debug("cached session token",
		logging.UserHash(email),
		slog.Bool("has_refresh_token", token.RefreshToken != ""))
}

func parseTokenExpiry(value string) time.Time {
	if expiry, err := time.Parse(time.RFC3339, value); err == nil {
		return expiry
	}
	return time.Now().Add(defaultAccessTokenExpiry)
}

// WriteError writes an ErrorResponse with the given status.
func WriteError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate",
		fmt.Sprintf(`Bearer error="invalid_token", error_description=%q`, description))
	WriteError(w, http.StatusUnauthorized, "invalid_token", description)
}
