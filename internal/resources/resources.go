package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/pillminder/internal/gateway"
	"github.com/teemow/pillminder/internal/server"
	"github.com/teemow/pillminder/internal/session"
	"github.com/teemow/pillminder/internal/store"
)

// Resource URIs.
const (
	SessionURI       = "session://account"
	PrescriptionsURI = "prescriptions://saved"
)

const mimeJSON = "application/json"

// RegisterResources registers the session resources. The saved
// prescriptions resource needs a store and is skipped without one.
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	sessionResource := mcp.NewResource(
		SessionURI,
		"Current Session",
		mcp.WithResourceDescription("The Google account the current session acts as"),
		mcp.WithMIMEType(mimeJSON),
	)
	s.AddResource(sessionResource, handleSession)

	if sc.Prescriptions() == nil {
		return nil
	}

	prescriptionsResource := mcp.NewResource(
		PrescriptionsURI,
		"Saved Prescriptions",
		mcp.WithResourceDescription("Prescriptions saved for the current account"),
		mcp.WithMIMEType(mimeJSON),
	)
	s.AddResource(prescriptionsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSavedPrescriptions(ctx, request, sc)
	})

	return nil
}

// sessionInfo describes the session of a request.
type sessionInfo struct {
	Account       string `json:"account,omitempty"`
	Authenticated bool   `json:"authenticated"`
	Validated     bool   `json:"validated"`
	Name          string `json:"name,omitempty"`
}

func handleSession(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	info := sessionInfo{Account: session.Account(ctx)}
	_, info.Authenticated = session.TokenFromContext(ctx)
	if user, ok := session.UserFromContext(ctx); ok {
		info.Validated = true
		info.Name = user.Name
	}
	return jsonContents(request.Params.URI, info)
}

func handleSavedPrescriptions(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	account, err := gateway.SessionAccount(ctx)
	if err != nil {
		return nil, err
	}

	records, err := sc.Prescriptions().List(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	if records == nil {
		records = []store.Record{}
	}

	return jsonContents(request.Params.URI, map[string]any{
		"account":       account,
		"prescriptions": records,
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(jsonData),
		},
	}, nil
}
