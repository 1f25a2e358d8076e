package persistence

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apicize/engine/pkg/workbook"
)

// configSubdir is the directory name this package creates under the user's
// config directory, mirroring the source's per-application config folder.
const configSubdir = "apicize"

// ConfigDir returns the directory globals.json and settings.json live in,
// creating it if necessary.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config directory: %w", err)
	}
	dir := filepath.Join(base, configSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// Globals holds GLOBAL-tier scenarios, authorizations, certificates and
// proxies: parameters available to every workbook on this machine,
// independent of which workbook is open.
type Globals struct {
	Scenarios      []*workbook.Scenario      `json:"scenarios,omitempty"`
	Authorizations []*workbook.Authorization `json:"authorizations,omitempty"`
	Certificates   []*workbook.Certificate   `json:"certificates,omitempty"`
	Proxies        []*workbook.Proxy         `json:"proxies,omitempty"`
}

func globalsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "globals.json"), nil
}

// LoadGlobals reads globals.json, returning an empty Globals if the file
// has never been created.
func LoadGlobals() (*Globals, error) {
	path, err := globalsPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Globals{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var g Globals
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &g, nil
}

// SaveGlobals writes g to globals.json atomically.
func SaveGlobals(g *Globals) error {
	path, err := globalsPath()
	if err != nil {
		return err
	}
	return writeJSONAtomic(path, g)
}

// MergeInto appends every global-tier parameter into wb, the way a loaded
// workbook sees GLOBAL selections as though they were declared locally
// (runtime lookup is one flat map regardless of tier).
func (g *Globals) MergeInto(wb *workbook.Workbook) {
	wb.Scenarios = append(wb.Scenarios, g.Scenarios...)
	wb.Authorizations = append(wb.Authorizations, g.Authorizations...)
	wb.Certificates = append(wb.Certificates, g.Certificates...)
	wb.Proxies = append(wb.Proxies, g.Proxies...)
}

// FindScenario returns the index of the named scenario, or -1.
func (g *Globals) FindScenario(name string) int {
	for i, s := range g.Scenarios {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// SetScenario inserts or replaces the named scenario.
func (g *Globals) SetScenario(s *workbook.Scenario) {
	s.Persistence = workbook.PersistenceGlobal
	if i := g.FindScenario(s.Name); i >= 0 {
		s.ID = g.Scenarios[i].ID
		g.Scenarios[i] = s
		return
	}
	if s.ID == "" {
		s.ID = newParameterID()
	}
	g.Scenarios = append(g.Scenarios, s)
}

// newParameterID generates a short random id for a parameter created
// outside a workbook editor, where no id has already been assigned. No
// library in the dependency set generates ids, so this falls back to
// crypto/rand directly.
func newParameterID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the platform has no entropy source;
		// fall back to a fixed value rather than panicking on a CLI path.
		return "00000000"
	}
	return hex.EncodeToString(buf[:])
}

// DeleteScenario removes the named scenario, reporting whether it existed.
func (g *Globals) DeleteScenario(name string) bool {
	i := g.FindScenario(name)
	if i < 0 {
		return false
	}
	g.Scenarios = append(g.Scenarios[:i], g.Scenarios[i+1:]...)
	return true
}
