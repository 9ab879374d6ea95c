package condition

import (
	"fmt"

	"github.com/dop251/goja"
)

// Evaluate runs a job's if expression with the run metadata bound as
// globals and returns its boolean value. Expressions are javascript, so
// branch equality gates read naturally: branch == defaultBranch.
func Evaluate(expression string, scope map[string]any) (bool, error) {
	if len(expression) == 0 {
		return true, nil
	}
	vm := goja.New()
	for k, v := range scope {
		if err := vm.Set(k, v); err != nil {
			return false, err
		}
	}
	value, err := vm.RunString(expression)
	if err != nil {
		return false, fmt.Errorf("error evaluating condition %q: %w", expression, err)
	}
	return value.ToBoolean(), nil
}
