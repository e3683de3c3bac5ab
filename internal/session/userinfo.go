package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultUserInfoURL is Google's OpenID userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// UserInfo is the identity returned by the userinfo endpoint.
type UserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
}

// fetchUserInfo validates token by calling the userinfo endpoint with it.
func fetchUserInfo(ctx context.Context, client *http.Client, url string, token *oauth2.Token) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("userinfo response has no email; the token lacks the userinfo.email scope")
	}
	return &info, nil
}

// actionableMessage turns a validation failure into guidance for the caller.
func actionableMessage(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "status 401"):
		return "Google token is invalid or expired. Please sign in again."
	case strings.Contains(msg, "status 403"), strings.Contains(msg, "scope"):
		return "Access denied by Google. Please sign in again and grant calendar and tasks access."
	case strings.Contains(msg, "status 429"):
		return "Google API rate limit exceeded. Please wait a moment and try again."
	case strings.Contains(msg, "status 5"):
		return "Google authentication service is temporarily unavailable. Please try again in a few minutes."
	case strings.Contains(msg, "failed to get user info"):
		return "Unable to verify token with Google due to network issues. Please try again in a moment."
	}
	return fmt.Sprintf("Token validation failed: %v. Please sign in again.", err)
}
