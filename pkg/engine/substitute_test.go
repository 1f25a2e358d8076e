package engine

import (
	"testing"

	"github.com/apicize/engine/pkg/workbook"
)

func TestSubstituteReplacesKnownNames(t *testing.T) {
	vars := map[string]interface{}{"host": "example.com", "port": 8080}
	got := Substitute("http://{{host}}:{{port}}/ping", vars)
	want := "http://example.com:8080/ping"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSubstituteLeavesUnknownNamesLiteral(t *testing.T) {
	got := Substitute("{{foo}}-{{bar}}", map[string]interface{}{"bar": "known"})
	want := "{{foo}}-known"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSubstituteNonStringValueUsesJSON(t *testing.T) {
	vars := map[string]interface{}{"flags": []interface{}{"a", "b"}}
	got := Substitute("{{flags}}", vars)
	want := `["a","b"]`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// TestSubstituteIdempotent checks property 7: re-substituting an already
// substituted string is a no-op when the values themselves contain no
// braces.
func TestSubstituteIdempotent(t *testing.T) {
	vars := map[string]interface{}{"name": "value", "count": 3}
	text := "{{name}}-{{count}}-{{missing}}"
	once := Substitute(text, vars)
	twice := Substitute(once, vars)
	if once != twice {
		t.Fatalf("substitution not idempotent: once=%q twice=%q", once, twice)
	}
}

func TestSubstitutePairsSubstitutesNameAndValue(t *testing.T) {
	// Headers and query params are substituted via this path; form body
	// pairs deliberately bypass it (Open Question #2, dispatch.go).
	pairs := []workbook.NameValuePair{{Name: "{{k}}", Value: "{{v}}"}}
	out := SubstitutePairs(pairs, map[string]interface{}{"k": "key", "v": "value"})
	if out[0].Name != "key" || out[0].Value != "value" {
		t.Fatalf("unexpected substitution result: %+v", out[0])
	}
}
