package engine

import "github.com/apicize/engine/pkg/workbook"

// resolvedParameters is the output of the ancestor-chain walk (4.E).
type resolvedParameters struct {
	variables     map[string]interface{}
	authorization *Authorization
	certificate   *Certificate
	proxy         *Proxy
	authCert      *Certificate
	authProxy     *Proxy
}

// kindState tracks one of the four parameter kinds during the walk: value is
// set once a Some(ref) is found; allowed flips false on an Off.
type kindState struct {
	scenarioValue *Scenario
	authValue     *Authorization
	certValue     *Certificate
	proxyValue    *Proxy

	scenarioAllowed bool
	authAllowed     bool
	certAllowed     bool
	proxyAllowed    bool
}

func newKindState() kindState {
	return kindState{scenarioAllowed: true, authAllowed: true, certAllowed: true, proxyAllowed: true}
}

func (k *kindState) resolved() bool {
	scenarioDone := k.scenarioValue != nil || !k.scenarioAllowed
	authDone := k.authValue != nil || !k.authAllowed
	certDone := k.certValue != nil || !k.certAllowed
	proxyDone := k.proxyValue != nil || !k.proxyAllowed
	return scenarioDone && authDone && certDone && proxyDone
}

// resolveParameters implements 4.E: given a workspace and the entry to start
// from, walk the ancestor chain independently resolving scenario,
// authorization, certificate, and proxy, falling back to workspace defaults,
// then merges the initial variable map with the resolved scenario's.
func resolveParameters(ws *Workspace, entryID string, initialVariables map[string]interface{}) resolvedParameters {
	state := newKindState()

	seen := make(map[string]bool)
	cursorID := entryID
	for {
		entry, ok := ws.Requests[cursorID]
		if !ok {
			break
		}
		applySelections(ws, entry, &state)

		if state.resolved() {
			break
		}
		if seen[cursorID] {
			break
		}
		seen[cursorID] = true

		parentID, ok := ws.Parent(cursorID)
		if !ok {
			break
		}
		cursorID = parentID
	}

	applyDefaults(ws, &state)

	result := resolvedParameters{
		authorization: state.authValue,
		certificate:   state.certValue,
		proxy:         state.proxyValue,
	}

	if result.authorization != nil && result.authorization.Type == workbook.AuthOAuth2Client {
		if sel := result.authorization.SelectedCertificate; sel != nil {
			if lr, c := ws.LookupCertificate(sel); lr == workbook.Some {
				result.authCert = c
			}
		}
		if sel := result.authorization.SelectedProxy; sel != nil {
			if lr, p := ws.LookupProxy(sel); lr == workbook.Some {
				result.authProxy = p
			}
		}
	}

	result.variables = mergeVariables(initialVariables, state.scenarioValue)
	return result
}

func applySelections(ws *Workspace, entry RequestEntry, state *kindState) {
	var scenarioSel, authSel, certSel, proxySel *Selection
	if entry.Kind == workbook.KindGroup {
		scenarioSel = entry.Grp.SelectedScenario
		authSel = entry.Grp.SelectedAuthorization
		certSel = entry.Grp.SelectedCertificate
		proxySel = entry.Grp.SelectedProxy
	} else {
		scenarioSel = entry.Req.SelectedScenario
		authSel = entry.Req.SelectedAuthorization
		certSel = entry.Req.SelectedCertificate
		proxySel = entry.Req.SelectedProxy
	}

	if state.scenarioValue == nil && state.scenarioAllowed {
		switch lr, v := ws.LookupScenario(scenarioSel); lr {
		case workbook.Off:
			state.scenarioAllowed = false
		case workbook.Some:
			state.scenarioValue = v
		}
	}
	if state.authValue == nil && state.authAllowed {
		switch lr, v := ws.LookupAuthorization(authSel); lr {
		case workbook.Off:
			state.authAllowed = false
		case workbook.Some:
			state.authValue = v
		}
	}
	if state.certValue == nil && state.certAllowed {
		switch lr, v := ws.LookupCertificate(certSel); lr {
		case workbook.Off:
			state.certAllowed = false
		case workbook.Some:
			state.certValue = v
		}
	}
	if state.proxyValue == nil && state.proxyAllowed {
		switch lr, v := ws.LookupProxy(proxySel); lr {
		case workbook.Off:
			state.proxyAllowed = false
		case workbook.Some:
			state.proxyValue = v
		}
	}
}

func applyDefaults(ws *Workspace, state *kindState) {
	d := ws.Defaults
	if state.scenarioValue == nil && state.scenarioAllowed {
		if lr, v := ws.LookupScenario(d.SelectedScenario); lr == workbook.Some {
			state.scenarioValue = v
		}
	}
	if state.authValue == nil && state.authAllowed {
		if lr, v := ws.LookupAuthorization(d.SelectedAuthorization); lr == workbook.Some {
			state.authValue = v
		}
	}
	if state.certValue == nil && state.certAllowed {
		if lr, v := ws.LookupCertificate(d.SelectedCertificate); lr == workbook.Some {
			state.certValue = v
		}
	}
	if state.proxyValue == nil && state.proxyAllowed {
		if lr, v := ws.LookupProxy(d.SelectedProxy); lr == workbook.Some {
			state.proxyValue = v
		}
	}
}

func mergeVariables(initial map[string]interface{}, scenario *Scenario) map[string]interface{} {
	merged := make(map[string]interface{}, len(initial))
	for k, v := range initial {
		merged[k] = v
	}
	if scenario != nil {
		for k, v := range scenario.VariableMap() {
			merged[k] = v
		}
	}
	return merged
}
