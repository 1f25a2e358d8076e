package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// newExpectBuiltin builds the minimal expect(...).to.equal(...) /
// .to.deep.equal(...) / .to.contain(...) / .to.be.a(...) chain the sandbox
// exposes to assertion scripts (4.D). Mismatches call failf, which panics
// with a goja value so it propagates as a JS exception caught by it()'s
// invocation in sandbox.go - matching "assertion failures throw".
func newExpectBuiltin(vm *goja.Runtime, failf func(format string, a ...interface{})) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		actual := call.Argument(0)

		equal := func(negate bool) func(goja.FunctionCall) goja.Value {
			return func(c goja.FunctionCall) goja.Value {
				expected := c.Argument(0)
				eq := deepEqualValues(actual.Export(), expected.Export())
				if eq == negate {
					if negate {
						failf("expected %s to not equal %s", describeValue(actual), describeValue(expected))
					} else {
						failf("expected %s to equal %s", describeValue(actual), describeValue(expected))
					}
				}
				return goja.Undefined()
			}
		}

		contain := func(negate bool) func(goja.FunctionCall) goja.Value {
			return func(c goja.FunctionCall) goja.Value {
				needle := c.Argument(0).Export()
				found := containsValue(actual.Export(), needle)
				if found == negate {
					if negate {
						failf("expected %s to not contain %s", describeValue(actual), describeValue(c.Argument(0)))
					} else {
						failf("expected %s to contain %s", describeValue(actual), describeValue(c.Argument(0)))
					}
				}
				return goja.Undefined()
			}
		}

		beA := func(c goja.FunctionCall) goja.Value {
			want := c.Argument(0).String()
			got := typeNameOf(actual.Export())
			if got != want {
				failf("expected %s to be a %s but got %s", describeValue(actual), want, got)
			}
			return goja.Undefined()
		}

		mk := func() *goja.Object {
			o := vm.NewObject()
			o.Set("equal", equal(false))
			o.Set("eql", equal(false))
			o.Set("contain", contain(false))
			o.Set("include", contain(false))
			o.Set("a", beA)
			o.Set("an", beA)
			be := vm.NewObject()
			be.Set("a", beA)
			be.Set("an", beA)
			o.Set("be", be)
			deep := vm.NewObject()
			deep.Set("equal", equal(false))
			o.Set("deep", deep)
			return o
		}

		notMk := func() *goja.Object {
			o := vm.NewObject()
			o.Set("equal", equal(true))
			o.Set("contain", contain(true))
			o.Set("include", contain(true))
			return o
		}

		to := mk()
		to.Set("not", notMk())

		result := vm.NewObject()
		result.Set("to", to)
		return result
	}
}

func deepEqualValues(a, b interface{}) bool {
	aj, aerr := json.Marshal(a)
	bj, berr := json.Marshal(b)
	if aerr != nil || berr != nil {
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
	return string(aj) == string(bj)
}

func containsValue(haystack, needle interface{}) bool {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		return ok && strings.Contains(h, n)
	case []interface{}:
		for _, item := range h {
			if deepEqualValues(item, needle) {
				return true
			}
		}
		return false
	case map[string]interface{}:
		key, ok := needle.(string)
		if !ok {
			return false
		}
		_, present := h[key]
		return present
	default:
		return false
	}
}

func typeNameOf(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}

func describeValue(v goja.Value) string {
	data, err := json.Marshal(v.Export())
	if err != nil {
		return v.String()
	}
	return string(data)
}
