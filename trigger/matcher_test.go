package trigger

import (
	"testing"

	"github.com/gantryci/gantry/model"
	"github.com/stretchr/testify/require"
)

func docsWorkflow() *model.Workflow {
	return &model.Workflow{
		Name: "docs-book",
		On: []model.Trigger{
			{
				Event: model.StringList{model.EVENT_PUSH, model.EVENT_PULL_REQUEST},
				Paths: model.StringList{"docs/book/**"},
			},
		},
	}
}

func TestMatch(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"changed path inside watched dir matches":     testMatchInsideWatchedDir,
		"changed path outside watched dir no match":   testNoMatchOutsideWatchedDir,
		"unwatched event kind no match":               testNoMatchWrongEvent,
		"one matching path among unrelated suffices":  testMatchMixedPaths,
		"trigger without paths matches every change":  testMatchNoPathConstraint,
		"trigger without events matches every event":  testMatchNoEventConstraint,
		"glob crosses directory separators":           testMatchNestedPath,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testMatchInsideWatchedDir(t *testing.T) {
	require.True(t, Match(docsWorkflow(), model.EVENT_PUSH, []string{"docs/book/chapter1.md"}))
}

func testNoMatchOutsideWatchedDir(t *testing.T) {
	require.False(t, Match(docsWorkflow(), model.EVENT_PUSH, []string{"README.md"}))
}

func testNoMatchWrongEvent(t *testing.T) {
	require.False(t, Match(docsWorkflow(), "release", []string{"docs/book/chapter1.md"}))
}

func testMatchMixedPaths(t *testing.T) {
	require.True(t, Match(docsWorkflow(), model.EVENT_PULL_REQUEST, []string{"README.md", "docs/book/SUMMARY.md"}))
}

func testMatchNoPathConstraint(t *testing.T) {
	wf := &model.Workflow{
		On: []model.Trigger{{Event: model.StringList{model.EVENT_PUSH}}},
	}
	require.True(t, Match(wf, model.EVENT_PUSH, []string{"anything.txt"}))
}

func testMatchNoEventConstraint(t *testing.T) {
	wf := &model.Workflow{
		On: []model.Trigger{{Paths: model.StringList{"docs/book/**"}}},
	}
	require.True(t, Match(wf, model.EVENT_PULL_REQUEST, []string{"docs/book/ch.md"}))
}

func testMatchNestedPath(t *testing.T) {
	require.True(t, Match(docsWorkflow(), model.EVENT_PUSH, []string{"docs/book/src/types/scalars.md"}))
}
