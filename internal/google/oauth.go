package google

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuthConfig returns the OAuth2 configuration used to refresh session tokens.
// It returns nil when no client credentials are configured.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       DefaultOAuthScopes,
	}
}

// TokenSource returns a token source for token. With a config and a refresh
// token the source refreshes automatically; otherwise it is static.
func TokenSource(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) oauth2.TokenSource {
	if conf != nil && token.RefreshToken != "" {
		return conf.TokenSource(ctx, token)
	}
	return oauth2.StaticTokenSource(token)
}

// NewHTTPClient creates an HTTP client that authorises requests from ts.
func NewHTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client
}
