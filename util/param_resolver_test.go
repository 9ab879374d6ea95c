package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveParams(t *testing.T) {
	scope := map[string]any{
		"event": "push",
		"ref":   "refs/heads/master",
		"secrets": map[string]any{
			"PAGES_TOKEN": "tok-123",
		},
	}
	params := map[string]string{
		"token":  "{$.secrets.PAGES_TOKEN}",
		"branch": "gh-pages",
		"header": "Bearer {$.secrets.PAGES_TOKEN}",
	}

	resolved := ResolveParams(scope, params)

	require.Equal(t, "tok-123", resolved["token"])
	require.Equal(t, "gh-pages", resolved["branch"], "values without tokens pass through unchanged")
	require.Equal(t, "Bearer tok-123", resolved["header"])
}

func TestResolveStringUnresolvableTokenLeftIntact(t *testing.T) {
	scope := map[string]any{"secrets": map[string]any{}}
	require.Equal(t, "{$.secrets.MISSING}", ResolveString(scope, "{$.secrets.MISSING}"))
}

func TestResolveStringNonJsonPathBraces(t *testing.T) {
	require.Equal(t, "echo {not a path}", ResolveString(map[string]any{}, "echo {not a path}"))
}
