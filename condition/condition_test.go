package condition

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	scope := map[string]any{
		"event":         "push",
		"branch":        "master",
		"defaultBranch": "master",
	}

	ok, err := Evaluate("branch == defaultBranch", scope)
	require.NoError(t, err)
	require.True(t, ok)

	scope["branch"] = "feature/docs"
	ok, err = Evaluate("branch == defaultBranch", scope)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = Evaluate("event == 'push' && branch == 'feature/docs'", scope)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateEmptyExpressionIsTrue(t *testing.T) {
	ok, err := Evaluate("", nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateBadExpression(t *testing.T) {
	_, err := Evaluate("branch ===== nope", map[string]any{"branch": "master"})
	require.Error(t, err)
}
