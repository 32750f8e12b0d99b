package client

import (
	"fmt"
	"net/http"
	"strings"
)

// ParseHeader accepts "KEY=VALUE" or "Key: Value"
func ParseHeader(s string) (string, string, error) {
	eq := strings.Index(s, "=")
	colon := strings.Index(s, ":")

	sep := -1
	switch {
	case eq >= 0 && (colon < 0 || eq < colon):
		sep = eq
	case colon >= 0:
		sep = colon
	}
	if sep <= 0 {
		return "", "", fmt.Errorf("invalid header %q: expected KEY=VALUE or \"Key: Value\"", s)
	}

	key := strings.TrimSpace(s[:sep])
	value := strings.TrimSpace(s[sep+1:])
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", "", fmt.Errorf("invalid header name in %q", s)
	}
	return key, value, nil
}

// ParseHeaders parses a list of header flags into a map. Later values win.
func ParseHeaders(values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		key, value, err := ParseHeader(v)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

// ResolveAuthHeader turns a token into an Authorization value.
// Tokens that already carry a Bearer or Basic scheme are used as-is.
func ResolveAuthHeader(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	lower := strings.ToLower(token)
	if strings.HasPrefix(lower, "bearer ") || strings.HasPrefix(lower, "basic ") {
		return token
	}
	return "Bearer " + token
}

// BuildHeaders merges custom headers with the auth token.
// An explicit Authorization header takes priority over the token.
func BuildHeaders(custom map[string]string, authToken string) http.Header {
	h := make(http.Header, len(custom)+1)
	for k, v := range custom {
		h.Set(k, v)
	}
	if h.Get("Authorization") == "" {
		if auth := ResolveAuthHeader(authToken); auth != "" {
			h.Set("Authorization", auth)
		}
	}
	return h
}
