package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenPattern = regexp.MustCompile("{(.*?)}")

// ResolveParams substitutes {$.path} tokens in every param value with the
// value found at that jsonpath in the scope tree.
func ResolveParams(scope map[string]any, params map[string]string) map[string]string {
	output := make(map[string]string, len(params))
	for k, v := range params {
		output[k] = ResolveString(scope, v)
	}
	return output
}

func ResolveString(scope map[string]any, value string) string {
	tokens := tokenPattern.FindAllString(value, -1)
	if len(tokens) == 0 {
		return value
	}
	newStr := value
	for i := range tokens {
		token := tokens[i]
		tmatch := strings.ReplaceAll(token, "{", "")
		tmatch = strings.ReplaceAll(tmatch, "}", "")
		if !strings.HasPrefix(tmatch, "$") {
			continue
		}
		resolved, err := jsonpath.JsonPathLookup(scope, tmatch)
		if err != nil {
			continue
		}
		newStr = strings.ReplaceAll(newStr, token, fmt.Sprintf("%v", resolved))
	}
	return newStr
}
