package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		in, key, value string
		wantErr        bool
	}{
		{in: "X-Api-Key=secret", key: "X-Api-Key", value: "secret"},
		{in: "Authorization: Bearer abc", key: "Authorization", value: "Bearer abc"},
		{in: "X-Trace=a:b", key: "X-Trace", value: "a:b"},
		{in: "X-Empty=", key: "X-Empty", value: ""},
		{in: "novalue", wantErr: true},
		{in: "=value", wantErr: true},
		{in: "Bad Name=1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			key, value, err := ParseHeader(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestParseHeaders(t *testing.T) {
	h, err := ParseHeaders([]string{"A=1", "B: 2", "A=3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "3", "B": "2"}, h)

	_, err = ParseHeaders([]string{"A=1", "broken"})
	assert.Error(t, err)
}

func TestResolveAuthHeader(t *testing.T) {
	assert.Equal(t, "", ResolveAuthHeader("  "))
	assert.Equal(t, "Bearer tok", ResolveAuthHeader("tok"))
	assert.Equal(t, "Bearer tok", ResolveAuthHeader("Bearer tok"))
	assert.Equal(t, "Basic dXNlcjpwYXNz", ResolveAuthHeader("Basic dXNlcjpwYXNz"))
}

func TestBuildHeadersExplicitAuthorizationWins(t *testing.T) {
	h := BuildHeaders(map[string]string{"authorization": "Custom x"}, "tok")
	assert.Equal(t, "Custom x", h.Get("Authorization"))

	h = BuildHeaders(map[string]string{"X-Tenant": "t1"}, "tok")
	assert.Equal(t, "Bearer tok", h.Get("Authorization"))
	assert.Equal(t, "t1", h.Get("X-Tenant"))

	h = BuildHeaders(nil, "")
	assert.Empty(t, h)
}
