package importer

import (
	"strings"
	"testing"

	"github.com/apicize/engine/pkg/workbook"
)

const samplePostmanCollection = `{
  "info": {
    "name": "Sample",
    "schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
  },
  "item": [
    {
      "name": "Users",
      "item": [
        {
          "name": "List users",
          "request": {
            "method": "GET",
            "header": [{"key": "Accept", "value": "application/json"}],
            "url": {
              "raw": "https://api.example.com/users?page=1",
              "query": [{"key": "page", "value": "1"}]
            }
          }
        }
      ]
    }
  ]
}`

func TestFromPostmanCollectionBuildsGroupPerFolder(t *testing.T) {
	wb, err := FromPostmanCollection(strings.NewReader(samplePostmanCollection))
	if err != nil {
		t.Fatalf("FromPostmanCollection: %v", err)
	}
	if len(wb.Requests) != 1 {
		t.Fatalf("expected one top-level entry, got %d", len(wb.Requests))
	}
	entry := wb.Requests[0]
	if entry.Kind != workbook.KindGroup {
		t.Fatalf("expected top-level folder to become a Group, got %v", entry.Kind)
	}
	if entry.Grp.Name != "Users" {
		t.Fatalf("expected group name Users, got %q", entry.Grp.Name)
	}
	if len(entry.Grp.Children) != 1 {
		t.Fatalf("expected one child request, got %d", len(entry.Grp.Children))
	}
	child := entry.Grp.Children[0]
	if child.Kind != workbook.KindRequest {
		t.Fatalf("expected child to be a Request, got %v", child.Kind)
	}
	if child.Req.Method != workbook.MethodGet {
		t.Fatalf("expected GET, got %v", child.Req.Method)
	}
	if child.Req.URL != "https://api.example.com/users?page=1" {
		t.Fatalf("unexpected URL: %q", child.Req.URL)
	}
}
