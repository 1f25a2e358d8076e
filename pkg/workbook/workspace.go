package workbook

import "strings"

// Workbook is the on-disk, embedded form of a workspace: everything the user
// saved directly into the workbook file. Private and global parameter tiers
// are merged on top of this by the persistence package to produce a
// Workspace.
type Workbook struct {
	Version        int              `json:"version"`
	Requests       []RequestEntry   `json:"requests"`
	Scenarios      []*Scenario      `json:"scenarios,omitempty"`
	Authorizations []*Authorization `json:"authorizations,omitempty"`
	Certificates   []*Certificate   `json:"certificates,omitempty"`
	Proxies        []*Proxy         `json:"proxies,omitempty"`
	Defaults       *Defaults        `json:"defaults,omitempty"`
}

// Workspace is the engine's read-only input: a flat, id-indexed view of a
// workbook plus its merged private and global parameter tiers. The engine
// never mutates a Workspace.
type Workspace struct {
	Requests map[string]RequestEntry
	TopLevelIDs []string
	ChildIDs    map[string][]string

	Scenarios      map[string]*Scenario
	Authorizations map[string]*Authorization
	Certificates   map[string]*Certificate
	Proxies        map[string]*Proxy

	Defaults Defaults

	// childToParent is built once at construction time (§9's design note:
	// cache it since the snapshot is read-only) instead of linearly
	// scanning ChildIDs on every ancestor-chain walk.
	childToParent map[string]string
}

// NewWorkspace flattens a Workbook into a Workspace, indexing every entity by
// id and precomputing the parent-lookup cache the resolver needs.
func NewWorkspace(wb *Workbook) *Workspace {
	ws := &Workspace{
		Requests:       make(map[string]RequestEntry),
		ChildIDs:       make(map[string][]string),
		Scenarios:      make(map[string]*Scenario),
		Authorizations: make(map[string]*Authorization),
		Certificates:   make(map[string]*Certificate),
		Proxies:        make(map[string]*Proxy),
		childToParent:  make(map[string]string),
	}
	if wb.Defaults != nil {
		ws.Defaults = *wb.Defaults
	}
	for _, s := range wb.Scenarios {
		ws.Scenarios[s.ID] = s
	}
	for _, a := range wb.Authorizations {
		ws.Authorizations[a.ID] = a
	}
	for _, c := range wb.Certificates {
		ws.Certificates[c.ID] = c
	}
	for _, p := range wb.Proxies {
		ws.Proxies[p.ID] = p
	}

	// Flatten recursively. A Group's nested Children (the on-disk
	// representation) become ChildIDs entries in the flat model; the
	// Children field itself is not retained on the flattened copy stored in
	// ws.Requests, matching §3's "these live in child_ids[group.id]".
	var indexEntry func(e RequestEntry, parent string)
	indexEntry = func(e RequestEntry, parent string) {
		id := e.ID()
		if parent != "" {
			ws.childToParent[id] = parent
		}
		if e.Kind != KindGroup {
			ws.Requests[id] = e
			return
		}
		flatGroup := *e.Grp
		children := flatGroup.Children
		flatGroup.Children = nil
		ws.Requests[id] = RequestEntry{Kind: KindGroup, Grp: &flatGroup}

		childIDs := make([]string, 0, len(children))
		for _, child := range children {
			childIDs = append(childIDs, child.ID())
			indexEntry(child, id)
		}
		ws.ChildIDs[id] = childIDs
	}

	ws.TopLevelIDs = make([]string, 0, len(wb.Requests))
	for _, e := range wb.Requests {
		ws.TopLevelIDs = append(ws.TopLevelIDs, e.ID())
		indexEntry(e, "")
	}

	return ws
}

// LookupResult is the three-way outcome of resolving a Selection against a
// parameter index (4.E).
type LookupResult int

const (
	UseDefault LookupResult = iota
	Off
	Some
)

// LookupScenario resolves a Selection against the scenario index.
func (ws *Workspace) LookupScenario(sel *Selection) (LookupResult, *Scenario) {
	if sel == nil {
		return UseDefault, nil
	}
	if sel.ID == NoSelectionID {
		return Off, nil
	}
	if s, ok := ws.Scenarios[sel.ID]; ok {
		return Some, s
	}
	for _, s := range ws.Scenarios {
		if strings.EqualFold(s.Name, sel.Name) {
			return Some, s
		}
	}
	return UseDefault, nil
}

// LookupAuthorization resolves a Selection against the authorization index.
func (ws *Workspace) LookupAuthorization(sel *Selection) (LookupResult, *Authorization) {
	if sel == nil {
		return UseDefault, nil
	}
	if sel.ID == NoSelectionID {
		return Off, nil
	}
	if a, ok := ws.Authorizations[sel.ID]; ok {
		return Some, a
	}
	for _, a := range ws.Authorizations {
		if strings.EqualFold(a.Name, sel.Name) {
			return Some, a
		}
	}
	return UseDefault, nil
}

// LookupCertificate resolves a Selection against the certificate index.
func (ws *Workspace) LookupCertificate(sel *Selection) (LookupResult, *Certificate) {
	if sel == nil {
		return UseDefault, nil
	}
	if sel.ID == NoSelectionID {
		return Off, nil
	}
	if c, ok := ws.Certificates[sel.ID]; ok {
		return Some, c
	}
	for _, c := range ws.Certificates {
		if strings.EqualFold(c.Name, sel.Name) {
			return Some, c
		}
	}
	return UseDefault, nil
}

// LookupProxy resolves a Selection against the proxy index.
func (ws *Workspace) LookupProxy(sel *Selection) (LookupResult, *Proxy) {
	if sel == nil {
		return UseDefault, nil
	}
	if sel.ID == NoSelectionID {
		return Off, nil
	}
	if p, ok := ws.Proxies[sel.ID]; ok {
		return Some, p
	}
	for _, p := range ws.Proxies {
		if strings.EqualFold(p.Name, sel.Name) {
			return Some, p
		}
	}
	return UseDefault, nil
}

// Parent returns the parent id of id and whether one was recorded.
func (ws *Workspace) Parent(id string) (string, bool) {
	p, ok := ws.childToParent[id]
	return p, ok
}
