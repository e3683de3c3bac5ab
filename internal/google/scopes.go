package google

// DefaultOAuthScopes are the Google OAuth scopes a session token must carry.
//
// The scopes provide access to:
//   - OpenID Connect user info (email, profile)
//   - Google Calendar: full access
//   - Google Tasks: full access
var DefaultOAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/tasks",
}
