package importer

import (
	"testing"

	"github.com/apicize/engine/pkg/workbook"
)

const sampleOpenAPIDoc = `
openapi: 3.0.3
info:
  title: Sample API
  version: "1.0"
paths:
  /widgets/{id}:
    get:
      operationId: getWidget
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
        - name: verbose
          in: query
          schema:
            type: boolean
      responses:
        "200":
          description: ok
    put:
      operationId: updateWidget
      requestBody:
        content:
          application/json:
            schema:
              type: object
      responses:
        "200":
          description: ok
`

func TestFromOpenAPIGroupsOperationsByPath(t *testing.T) {
	wb, err := FromOpenAPI([]byte(sampleOpenAPIDoc), "https://api.example.com")
	if err != nil {
		t.Fatalf("FromOpenAPI: %v", err)
	}
	if len(wb.Requests) != 1 {
		t.Fatalf("expected one path entry, got %d", len(wb.Requests))
	}
	entry := wb.Requests[0]
	if entry.Kind != workbook.KindGroup {
		t.Fatalf("expected a path with two operations to become a Group, got %v", entry.Kind)
	}
	if len(entry.Grp.Children) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(entry.Grp.Children))
	}

	var get *workbook.Request
	for _, c := range entry.Grp.Children {
		if c.Req.Method == workbook.MethodGet {
			get = c.Req
		}
	}
	if get == nil {
		t.Fatalf("expected a GET operation among children")
	}
	if get.URL != "https://api.example.com/widgets/{{id}}" {
		t.Fatalf("unexpected URL: %q", get.URL)
	}
	found := false
	for _, q := range get.QueryParams {
		if q.Name == "verbose" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected verbose query parameter, got %+v", get.QueryParams)
	}
}
