package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apicize/engine/pkg/workbook"
)

func sampleWorkbook() *workbook.Workbook {
	req := &workbook.Request{ID: "r1", Name: "Ping", URL: "http://example.com"}
	return &workbook.Workbook{
		Version: CurrentVersion,
		Requests: []workbook.RequestEntry{
			{Kind: workbook.KindRequest, Req: req},
		},
		Scenarios: []*workbook.Scenario{
			{ID: "sc1", Name: "shared", Persistence: workbook.PersistenceWorkbook},
			{ID: "sc2", Name: "secret", Persistence: workbook.PersistencePrivate},
		},
	}
}

func TestSaveAndLoadWorkbookSplitsPrivateTier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.apicize")
	wb := sampleWorkbook()

	if err := SaveWorkbook(path, wb); err != nil {
		t.Fatalf("SaveWorkbook: %v", err)
	}

	privPath := PrivatePath(path)
	if _, err := os.Stat(privPath); err != nil {
		t.Fatalf("expected private tier file at %s: %v", privPath, err)
	}

	loaded, err := LoadWorkbook(path)
	if err != nil {
		t.Fatalf("LoadWorkbook: %v", err)
	}
	if len(loaded.Scenarios) != 2 {
		t.Fatalf("expected both tiers merged on load, got %d scenarios", len(loaded.Scenarios))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if containsName(raw, "secret") {
		t.Fatalf("private scenario leaked into shared workbook file: %s", raw)
	}
}

func TestSaveWorkbookRemovesStalePrivateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.apicize")
	wb := sampleWorkbook()
	if err := SaveWorkbook(path, wb); err != nil {
		t.Fatalf("SaveWorkbook: %v", err)
	}

	wb.Scenarios = wb.Scenarios[:1] // drop the private one
	if err := SaveWorkbook(path, wb); err != nil {
		t.Fatalf("SaveWorkbook (second): %v", err)
	}
	if _, err := os.Stat(PrivatePath(path)); !os.IsNotExist(err) {
		t.Fatalf("expected stale private file removed, stat err = %v", err)
	}
}

func containsName(data []byte, name string) bool {
	return len(data) > 0 && string(data) != "" && indexOf(string(data), name) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
