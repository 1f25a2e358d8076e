// Package persistence reads and writes the on-disk forms of a workbook: the
// shared .apicize file, the machine-local .apicize-priv tier, and the
// process-wide globals and settings files kept under the user config
// directory. Tier separation exists so a workbook can be committed to source
// control while secrets and per-machine overrides stay out of it.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apicize/engine/pkg/workbook"
)

// CurrentVersion is the workbook format version. SaveWorkbook writes the
// Version field the caller set, and LoadWorkbook does not check it.
const CurrentVersion = 1

// LoadWorkbook reads the .apicize file at path and merges in its
// .apicize-priv sibling, if one exists, so the caller sees one flat
// parameter set regardless of which tier an entry was saved in.
func LoadWorkbook(path string) (*workbook.Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workbook %s: %w", path, err)
	}
	var wb workbook.Workbook
	if err := json.Unmarshal(data, &wb); err != nil {
		return nil, fmt.Errorf("parsing workbook %s: %w", path, err)
	}

	priv, err := loadPrivate(PrivatePath(path))
	if err != nil {
		return nil, err
	}
	if priv != nil {
		wb.Scenarios = append(wb.Scenarios, priv.Scenarios...)
		wb.Authorizations = append(wb.Authorizations, priv.Authorizations...)
		wb.Certificates = append(wb.Certificates, priv.Certificates...)
		wb.Proxies = append(wb.Proxies, priv.Proxies...)
	}
	return &wb, nil
}

// SaveWorkbook splits wb's parameters by their Persistence tier, writing
// WORKBOOK-tier entries to path and PRIVATE-tier entries to path's
// .apicize-priv sibling (GLOBAL-tier entries are omitted; they belong in
// the globals file written by SaveGlobals). The workbook file is written
// atomically: a temp file in the same directory is renamed over the
// target, so a crash mid-write never leaves a truncated .apicize behind.
func SaveWorkbook(path string, wb *workbook.Workbook) error {
	shared, private := splitByTier(wb)

	if err := writeJSONAtomic(path, shared); err != nil {
		return err
	}

	privPath := PrivatePath(path)
	if private.empty() {
		// Nothing private to keep; remove a stale .apicize-priv rather
		// than writing an empty shell.
		if err := os.Remove(privPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing stale %s: %w", privPath, err)
		}
		return nil
	}
	return writeJSONAtomic(privPath, private)
}

// PrivatePath derives the .apicize-priv path that accompanies an .apicize
// workbook at path.
func PrivatePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".apicize-priv"
}

// privateTier mirrors workbook.Workbook's parameter lists but carries only
// the entries scoped to one machine and meant to stay out of source control.
type privateTier struct {
	Scenarios      []*workbook.Scenario      `json:"scenarios,omitempty"`
	Authorizations []*workbook.Authorization `json:"authorizations,omitempty"`
	Certificates   []*workbook.Certificate   `json:"certificates,omitempty"`
	Proxies        []*workbook.Proxy         `json:"proxies,omitempty"`
}

func (p *privateTier) empty() bool {
	return len(p.Scenarios) == 0 && len(p.Authorizations) == 0 && len(p.Certificates) == 0 && len(p.Proxies) == 0
}

func loadPrivate(path string) (*privateTier, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading private parameters %s: %w", path, err)
	}
	var p privateTier
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing private parameters %s: %w", path, err)
	}
	return &p, nil
}

// splitByTier partitions wb's parameters into what stays in the shared
// workbook document and what moves to the private tier. GLOBAL-tier
// entries are dropped from both; they are owned by the globals file.
func splitByTier(wb *workbook.Workbook) (shared workbook.Workbook, private privateTier) {
	shared = *wb
	shared.Scenarios = nil
	shared.Authorizations = nil
	shared.Certificates = nil
	shared.Proxies = nil

	for _, s := range wb.Scenarios {
		switch s.Persistence {
		case workbook.PersistencePrivate:
			private.Scenarios = append(private.Scenarios, s)
		case workbook.PersistenceGlobal:
		default:
			shared.Scenarios = append(shared.Scenarios, s)
		}
	}
	for _, a := range wb.Authorizations {
		switch a.Persistence {
		case workbook.PersistencePrivate:
			private.Authorizations = append(private.Authorizations, a)
		case workbook.PersistenceGlobal:
		default:
			shared.Authorizations = append(shared.Authorizations, a)
		}
	}
	for _, c := range wb.Certificates {
		switch c.Persistence {
		case workbook.PersistencePrivate:
			private.Certificates = append(private.Certificates, c)
		case workbook.PersistenceGlobal:
		default:
			shared.Certificates = append(shared.Certificates, c)
		}
	}
	for _, p := range wb.Proxies {
		switch p.Persistence {
		case workbook.PersistencePrivate:
			private.Proxies = append(private.Proxies, p)
		case workbook.PersistenceGlobal:
		default:
			shared.Proxies = append(shared.Proxies, p)
		}
	}
	return shared, private
}

// writeJSONAtomic marshals v as indented JSON and writes it to path via a
// temp-file-then-rename so a reader never observes a partial file.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("save reported success but %s is missing: %w", path, err)
	}
	if info.Size() == 0 && len(data) > 0 {
		return fmt.Errorf("save reported success but %s is empty", path)
	}
	return nil
}
