package persistence

import "github.com/apicize/engine/pkg/workbook"

// LoadWorkspace loads the workbook at path, merges in its private tier and
// the process-wide globals, and returns the flattened Workspace the engine
// runs against.
func LoadWorkspace(path string) (*workbook.Workspace, error) {
	wb, err := LoadWorkbook(path)
	if err != nil {
		return nil, err
	}
	g, err := LoadGlobals()
	if err != nil {
		return nil, err
	}
	g.MergeInto(wb)
	return workbook.NewWorkspace(wb), nil
}
