package engine

import (
	"encoding/json"
	"strings"

	"github.com/apicize/engine/pkg/workbook"
)

// Substitute replaces every literal "{{name}}" occurrence in text with the
// string form of vars[name]: string values substitute as-is, any other JSON
// value substitutes as its compact JSON representation. Names absent from
// vars are left untouched, which falls out naturally from doing one
// strings.Replace per known name rather than a single regexp pass (mirrors
// the teacher's VariableStore.Substitute loop-of-ReplaceAll approach).
func Substitute(text string, vars map[string]interface{}) string {
	if text == "" || !strings.Contains(text, "{{") {
		return text
	}
	result := text
	for name, value := range vars {
		placeholder := "{{" + name + "}}"
		if !strings.Contains(result, placeholder) {
			continue
		}
		result = strings.ReplaceAll(result, placeholder, stringifyVar(value))
	}
	return result
}

func stringifyVar(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(data)
}

// SubstitutePairs substitutes both name and value of every enabled pair,
// returning a new slice (headers and query params per 4.A; NOT used for
// Form body pairs, which are left untouched per Open Question #2).
func SubstitutePairs(pairs []workbook.NameValuePair, vars map[string]interface{}) []workbook.NameValuePair {
	out := make([]workbook.NameValuePair, len(pairs))
	for i, p := range pairs {
		out[i] = workbook.NameValuePair{
			Name:  Substitute(p.Name, vars),
			Value: Substitute(p.Value, vars),
		}
	}
	return out
}
