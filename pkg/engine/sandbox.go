package engine

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
	"github.com/xeipuuv/gojsonschema"
)

// sandboxResult is what runTestSuite hands back to the host (4.D).
type sandboxResult struct {
	Results   []TestAssertion        `json:"results"`
	Variables map[string]interface{} `json:"variables"`
}

// runTestScript evaluates a request's test script against one dispatch
// exchange in a fresh, single-use goja.Runtime (4.D). The runtime is
// discarded afterward; nothing is retained between invocations.
func runTestScript(script string, req *ApicizeRequest, resp *ApicizeHttpResponse, vars map[string]interface{}, startEpochMs int64) (*sandboxResult, *ExecutionError) {
	if script == "" {
		return nil, nil
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	logs := []string{}
	type assertion struct {
		path    []string
		success bool
		errMsg  string
		logs    []string
	}
	var assertions []assertion
	var describeStack []string

	failf := func(format string, a ...interface{}) {
		panic(vm.ToValue(fmt.Sprintf(format, a...)))
	}

	console := vm.NewObject()
	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		logs = append(logs, joinLogArgs(parts))
		return goja.Undefined()
	}
	console.Set("log", logFn)
	console.Set("info", logFn)
	console.Set("warn", logFn)
	console.Set("error", logFn)
	vm.Set("console", console)

	describe := func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			failf("describe: second argument must be a function")
		}
		describeStack = append(describeStack, name)
		defer func() { describeStack = describeStack[:len(describeStack)-1] }()
		if _, err := fn(goja.Undefined()); err != nil {
			panic(err)
		}
		return goja.Undefined()
	}
	vm.Set("describe", describe)

	it := func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			failf("it: second argument must be a function")
		}
		path := append(append([]string{}, describeStack...), name)
		startLen := len(logs)
		_, err := fn(goja.Undefined())
		a := assertion{path: path, logs: append([]string{}, logs[startLen:]...)}
		if err != nil {
			a.success = false
			a.errMsg = formatAssertionError(err)
		} else {
			a.success = true
		}
		assertions = append(assertions, a)
		return goja.Undefined()
	}
	vm.Set("it", it)

	vm.Set("expect", newExpectBuiltin(vm, failf))
	vm.Set("schemaMatches", newSchemaMatchesBuiltin(vm))

	reqVal := vm.ToValue(requestToJS(req))
	respVal := vm.ToValue(responseToJS(resp))
	varsCopy := copyVars(vars)
	varsVal := vm.ToValue(varsCopy)

	vm.Set("request", reqVal)
	vm.Set("response", respVal)
	vm.Set("variables", varsVal)
	vm.Set("scenario", varsVal)
	vm.Set("startEpochMs", startEpochMs)

	userFn, err := vm.RunString("(function(){" + script + "\n})")
	if err != nil {
		return nil, newExecError(ErrFailedTest, "compiling test script: %v", err)
	}
	callable, ok := goja.AssertFunction(userFn)
	if !ok {
		return nil, newExecError(ErrFailedTest, "test script did not produce a callable")
	}
	if _, err := callable(goja.Undefined()); err != nil {
		return nil, newExecError(ErrFailedTest, "%v", err)
	}

	out := make([]TestAssertion, 0, len(assertions))
	for _, a := range assertions {
		out = append(out, TestAssertion{TestName: a.path, Success: a.success, Error: a.errMsg, Logs: a.logs})
	}

	finalVars := jsValueToMap(varsVal)
	return &sandboxResult{Results: out, Variables: finalVars}, nil
}

func joinLogArgs(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

func formatAssertionError(err error) string {
	if ex, ok := err.(*goja.Exception); ok {
		return ex.Value().String()
	}
	return err.Error()
}

func requestToJS(r *ApicizeRequest) map[string]interface{} {
	if r == nil {
		return map[string]interface{}{}
	}
	m := map[string]interface{}{
		"url":     r.URL,
		"method":  r.Method,
		"headers": r.Headers,
	}
	if r.BodyText != nil {
		m["body"] = map[string]interface{}{"text": *r.BodyText}
	}
	return m
}

func responseToJS(r *ApicizeHttpResponse) map[string]interface{} {
	if r == nil {
		return map[string]interface{}{}
	}
	m := map[string]interface{}{
		"status":     r.Status,
		"statusText": r.StatusText,
		"headers":    r.Headers,
	}
	if r.BodyText != nil {
		body := map[string]interface{}{"text": *r.BodyText}
		var parsed interface{}
		if json.Unmarshal([]byte(*r.BodyText), &parsed) == nil {
			body["data"] = parsed
		}
		m["body"] = body
	}
	return m
}

func copyVars(vars map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

// jsValueToMap reads back a JS object (possibly mutated by the script) into
// a plain Go map by round-tripping through JSON, which also strips any
// functions the script may have attached.
func jsValueToMap(v goja.Value) map[string]interface{} {
	if v == nil {
		return nil
	}
	exported := v.Export()
	data, err := json.Marshal(exported)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// newSchemaMatchesBuiltin exposes gojsonschema to assertion scripts, directly
// grounded on the teacher's SchemaValidationTool wiring of this library.
func newSchemaMatchesBuiltin(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		schema := call.Argument(0).Export()
		data := call.Argument(1).Export()

		schemaJSON, err := json.Marshal(schema)
		if err != nil {
			return vm.ToValue(false)
		}
		dataJSON, err := json.Marshal(data)
		if err != nil {
			return vm.ToValue(false)
		}

		result, err := gojsonschema.Validate(
			gojsonschema.NewBytesLoader(schemaJSON),
			gojsonschema.NewBytesLoader(dataJSON),
		)
		if err != nil {
			return vm.ToValue(false)
		}
		return vm.ToValue(result.Valid())
	}
}
