package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apicize/engine/pkg/workbook"
)

func withTempConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestGlobalsSetFindDelete(t *testing.T) {
	withTempConfigDir(t)

	g, err := LoadGlobals()
	if err != nil {
		t.Fatalf("LoadGlobals: %v", err)
	}
	if len(g.Scenarios) != 0 {
		t.Fatalf("expected empty globals on first load, got %+v", g.Scenarios)
	}

	g.SetScenario(&workbook.Scenario{Name: "shared-env"})

	if err := SaveGlobals(g); err != nil {
		t.Fatalf("SaveGlobals: %v", err)
	}

	reloaded, err := LoadGlobals()
	if err != nil {
		t.Fatalf("LoadGlobals (reload): %v", err)
	}
	if len(reloaded.Scenarios) != 1 {
		t.Fatalf("expected 1 scenario after reload, got %d", len(reloaded.Scenarios))
	}
	if reloaded.Scenarios[0].ID == "" {
		t.Fatalf("expected generated id to persist")
	}

	if !reloaded.DeleteScenario(reloaded.Scenarios[0].Name) {
		t.Fatalf("expected DeleteScenario to report the entry existed")
	}
	if reloaded.DeleteScenario("does-not-exist") {
		t.Fatalf("expected DeleteScenario on a missing name to return false")
	}
}

func TestConfigDirUsesXDGConfigHome(t *testing.T) {
	dir := withTempConfigDir(t)
	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir: %v", err)
	}
	want := filepath.Join(dir, "apicize")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("expected ConfigDir to create the directory: %v", err)
	}
}
