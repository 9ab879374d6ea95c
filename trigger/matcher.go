package trigger

import (
	"github.com/bmatcuk/doublestar/v4"
	"github.com/gantryci/gantry/model"
)

// Match reports whether any trigger of the workflow fires for the event.
// A trigger fires when the event kind matches and at least one changed path
// matches at least one watched glob. A non-match is not an error, the run
// simply does not start.
func Match(wf *model.Workflow, event string, changedPaths []string) bool {
	for i := range wf.On {
		if matchTrigger(&wf.On[i], event, changedPaths) {
			return true
		}
	}
	return false
}

func matchTrigger(t *model.Trigger, event string, changedPaths []string) bool {
	if !matchEvent(t.Event, event) {
		return false
	}
	return matchPaths(t.Paths, changedPaths)
}

func matchEvent(events model.StringList, event string) bool {
	if len(events) == 0 {
		return true
	}
	for _, e := range events {
		if e == event {
			return true
		}
	}
	return false
}

func matchPaths(globs model.StringList, changedPaths []string) bool {
	if len(globs) == 0 {
		return true
	}
	for _, g := range globs {
		for _, p := range changedPaths {
			ok, err := doublestar.Match(g, p)
			if err != nil {
				continue
			}
			if ok {
				return true
			}
		}
	}
	return false
}
