package engine

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mockstack/mockstack/pkg/mockapi"
)

// AuthError reports a failed authentication check. It carries the header
// name and token format the caller must use, never the expected token.
type AuthError struct {
	RequiredHeader string
	TokenFormat    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication required via %s header", e.RequiredHeader)
}

// CheckAuth validates the request against the endpoint's effective auth
// requirement. Returns nil when auth is not required or the supplied token
// matches the project's configured token.
func CheckAuth(r *http.Request, project *mockapi.Project, endpoint *mockapi.Endpoint) error {
	if !endpoint.EffectiveAuth(project) {
		return nil
	}

	auth := project.Authentication
	header := auth.Header()
	prefix := auth.Prefix()

	failure := &AuthError{
		RequiredHeader: header,
		TokenFormat:    prefix + " <token>",
	}

	raw := r.Header.Get(header)
	if raw == "" {
		return failure
	}

	token := stripPrefix(raw, prefix)
	if token == "" || token != auth.Token {
		return failure
	}
	return nil
}

// stripPrefix removes the token prefix case-insensitively and tolerates
// extra whitespace between prefix and token. A value without the prefix is
// returned as-is so bare tokens still compare.
func stripPrefix(value, prefix string) string {
	value = strings.TrimSpace(value)
	if prefix == "" {
		return value
	}
	if len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		rest := value[len(prefix):]
		if trimmed := strings.TrimLeft(rest, " \t"); trimmed != rest {
			return strings.TrimSpace(trimmed)
		}
	}
	return value
}
