package importer

import (
	"fmt"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/apicize/engine/pkg/workbook"
)

// FromOpenAPI reads an OpenAPI 3.x document and returns one top-level entry
// per path: a Group holding one Request per operation when the path has two
// or more operations, or the bare Request when it has exactly one; paths
// with no operations are skipped. Operation parameters become query params
// or headers; {param} path segments become {{param}} so workbook variable
// substitution fills them from a scenario.
func FromOpenAPI(content []byte, baseURL string) (*workbook.Workbook, error) {
	document, err := libopenapi.NewDocument(content)
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}
	model, err := document.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("building OpenAPI v3 model: %w", err)
	}

	wb := &workbook.Workbook{Version: 1}
	for pair := model.Model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path := pair.Key()
		item := pair.Value()

		ops := []struct {
			method string
			op     *v3.Operation
		}{
			{"GET", item.Get},
			{"POST", item.Post},
			{"PUT", item.Put},
			{"DELETE", item.Delete},
			{"PATCH", item.Patch},
			{"HEAD", item.Head},
			{"OPTIONS", item.Options},
		}

		var children []workbook.RequestEntry
		for _, o := range ops {
			if o.op == nil {
				continue
			}
			children = append(children, operationToEntry(o.method, path, baseURL, o.op))
		}
		if len(children) == 0 {
			continue
		}
		if len(children) == 1 {
			wb.Requests = append(wb.Requests, children[0])
			continue
		}
		wb.Requests = append(wb.Requests, workbook.RequestEntry{
			Kind: workbook.KindGroup,
			Grp: &workbook.Group{
				ID:        newImportID(),
				Name:      path,
				Execution: workbook.ExecutionSequential,
				Children:  children,
			},
		})
	}
	return wb, nil
}

func operationToEntry(method, path, baseURL string, op *v3.Operation) workbook.RequestEntry {
	name := op.OperationId
	if name == "" {
		name = method + " " + path
	}
	req := &workbook.Request{
		ID:     newImportID(),
		Name:   name,
		Method: workbook.Method(method),
		URL:    baseURL + pathToTemplate(path),
	}

	for _, param := range op.Parameters {
		if param == nil {
			continue
		}
		switch param.In {
		case "query":
			req.QueryParams = append(req.QueryParams, workbook.NameValuePair{
				Name: param.Name, Value: "{{" + param.Name + "}}",
			})
		case "header":
			req.Headers = append(req.Headers, workbook.NameValuePair{
				Name: param.Name, Value: "{{" + param.Name + "}}",
			})
		}
	}

	if op.RequestBody != nil {
		req.Body = &workbook.Body{Type: workbook.BodyJSON, JSON: map[string]interface{}{}}
	}

	return workbook.RequestEntry{Kind: workbook.KindRequest, Req: req}
}

// pathToTemplate converts OpenAPI's {param} path placeholders to the
// workbook's {{param}} substitution syntax.
func pathToTemplate(path string) string {
	out := make([]byte, 0, len(path)+4)
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '{':
			out = append(out, '{', '{')
		case '}':
			out = append(out, '}', '}')
		default:
			out = append(out, path[i])
		}
	}
	return string(out)
}
