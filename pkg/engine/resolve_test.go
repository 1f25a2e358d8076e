package engine

import (
	"testing"

	"github.com/apicize/engine/pkg/workbook"
)

func buildResolveWorkspace() *Workspace {
	wb := &workbook.Workbook{
		Scenarios: []*workbook.Scenario{
			{ID: "sc-parent", Name: "parent-scenario", Variables: []workbook.ScenarioVar{{Name: "env", Value: "parent"}}},
			{ID: "sc-default", Name: "default-scenario", Variables: []workbook.ScenarioVar{{Name: "env", Value: "default"}}},
		},
		Defaults: &workbook.Defaults{SelectedScenario: &workbook.Selection{ID: "sc-default", Name: "default-scenario"}},
		Requests: []workbook.RequestEntry{
			groupEntry(workbook.Group{
				ID:               "parent",
				Name:             "Parent",
				Execution:        workbook.ExecutionSequential,
				SelectedScenario: &workbook.Selection{ID: "sc-parent", Name: "parent-scenario"},
				Children: []workbook.RequestEntry{
					requestEntry(workbook.Request{ID: "inherits", Name: "Inherits", URL: "http://x"}),
					requestEntry(workbook.Request{
						ID: "off", Name: "Off", URL: "http://x",
						SelectedScenario: &workbook.Selection{ID: workbook.NoSelectionID},
					}),
					requestEntry(workbook.Request{
						ID: "own", Name: "Own", URL: "http://x",
						SelectedScenario: &workbook.Selection{ID: "sc-default", Name: "default-scenario"},
					}),
				},
			}),
			requestEntry(workbook.Request{ID: "top-level", Name: "TopLevel", URL: "http://x"}),
		},
	}
	return newWorkspace(wb)
}

func TestResolveInheritsFromParent(t *testing.T) {
	ws := buildResolveWorkspace()
	p := resolveParameters(ws, "inherits", nil)
	if p.variables["env"] != "parent" {
		t.Fatalf("expected inherited scenario var env=parent, got %+v", p.variables)
	}
}

func TestResolveOffDisablesScenario(t *testing.T) {
	ws := buildResolveWorkspace()
	p := resolveParameters(ws, "off", nil)
	if _, ok := p.variables["env"]; ok {
		t.Fatalf("expected no scenario variable once Off, got %+v", p.variables)
	}
}

func TestResolveOwnSelectionOverridesAncestor(t *testing.T) {
	ws := buildResolveWorkspace()
	p := resolveParameters(ws, "own", nil)
	if p.variables["env"] != "default" {
		t.Fatalf("expected own selection to win, got %+v", p.variables)
	}
}

func TestResolveFallsBackToWorkspaceDefault(t *testing.T) {
	ws := buildResolveWorkspace()
	p := resolveParameters(ws, "top-level", nil)
	if p.variables["env"] != "default" {
		t.Fatalf("expected workspace default scenario, got %+v", p.variables)
	}
}

func TestResolveInitialVariablesMergeUnderScenario(t *testing.T) {
	ws := buildResolveWorkspace()
	p := resolveParameters(ws, "inherits", map[string]interface{}{"env": "initial", "extra": "kept"})
	if p.variables["env"] != "parent" {
		t.Fatalf("expected scenario to override initial variable, got %+v", p.variables)
	}
	if p.variables["extra"] != "kept" {
		t.Fatalf("expected initial-only variable preserved, got %+v", p.variables)
	}
}

func TestLookupByNameCaseInsensitive(t *testing.T) {
	ws := buildResolveWorkspace()
	lr, s := ws.LookupScenario(&workbook.Selection{ID: "does-not-exist", Name: "PARENT-SCENARIO"})
	if lr != workbook.Some || s == nil || s.ID != "sc-parent" {
		t.Fatalf("expected case-insensitive name match, got lr=%v s=%+v", lr, s)
	}
}
