package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestTokenFromContext(t *testing.T) {
	_, ok := TokenFromContext(context.Background())
	assert.False(t, ok)

	_, ok = TokenFromContext(WithToken(context.Background(), &oauth2.Token{}))
	assert.False(t, ok, "empty access token is no session")

	_, ok = TokenFromContext(WithToken(context.Background(), nil))
	assert.False(t, ok)

	tok, ok := TokenFromContext(WithToken(context.Background(), &oauth2.Token{AccessToken: "abc"}))
	assert.True(t, ok)
	assert.Equal(t, "abc", tok.AccessToken)
}

func TestAccount(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", Account(ctx))

	ctx = WithToken(ctx, &oauth2.Token{AccessToken: "abc"})
	assert.Equal(t, DefaultAccount, Account(ctx))

	ctx = WithUser(ctx, &UserInfo{Email: "jane@example.com"})
	assert.Equal(t, "jane@example.com", Account(ctx))

	user, ok := UserFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "jane@example.com", user.Email)

	_, ok = UserFromContext(WithUser(context.Background(), &UserInfo{}))
	assert.False(t, ok)
}

func TestOwner(t *testing.T) {
	token := &oauth2.Token{AccessToken: "abc"}

	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{name: "no session", ctx: context.Background(), want: ""},
		{name: "unvalidated remote token", ctx: WithToken(context.Background(), token), want: ""},
		{name: "local session without token", ctx: WithLocalSession(context.Background()), want: ""},
		{name: "unvalidated local token", ctx: WithLocalSession(WithToken(context.Background(), token)), want: DefaultAccount},
		{
			name: "validated user",
			ctx:  WithUser(WithToken(context.Background(), token), &UserInfo{Email: "jane@example.com"}),
			want: "jane@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Owner(tt.ctx))
		})
	}
}
