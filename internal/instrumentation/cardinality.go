package instrumentation

import "strings"

// ExtractUserDomain returns the domain part of an email address, or
// "unknown". Use it instead of the full address in metric labels and
// general logs.
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
func ExtractUserDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "unknown"
	}
	return domain
}

// Operation names for Google API metrics and spans.
const (
	OperationList     = "list"
	OperationCreate   = "create"
	OperationComplete = "complete"
)
