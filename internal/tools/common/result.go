package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/pillminder/internal/gateway"
)

// JSONResult renders v as an indented JSON text result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ErrorResult turns err into a tool error result. Provider failures use
// their user-presentable message; action names what was attempted.
func ErrorResult(action string, err error) (*mcp.CallToolResult, error) {
	var upstream *gateway.UpstreamError
	if errors.As(err, &upstream) {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %s", action, upstream.Message())), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err)), nil
}
