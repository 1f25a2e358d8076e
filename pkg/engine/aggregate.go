package engine

// totalsSource and totalsSink are the two small capability interfaces the
// source models as per-type trait implementations (§9 Design Notes).
// RequestResult, GroupRun and GroupResult implement both; RequestRun is only
// a source and Execution only a sink (see the assertions at the bottom).
// This lets the scheduler fold a child's snapshot into its parent without a
// visitor or reflection.
type totalsSource interface {
	// getTotals returns this node's own counters, success flag, and (if
	// any) the variable map that should be threaded to the next sequential
	// sibling.
	getTotals() (Counters, bool, map[string]interface{})
}

type totalsSink interface {
	// addTotals folds a child's counters/success into self. Callers pass
	// the result of getTotals on the child.
	addTotals(c Counters, success bool)
}

func (r *RequestRun) getTotals() (Counters, bool, map[string]interface{}) {
	return r.Counters, r.Success, r.Variables
}

func (r *RequestResult) getTotals() (Counters, bool, map[string]interface{}) {
	return r.Counters, r.Success, r.Variables
}

func (r *RequestResult) addTotals(c Counters, success bool) {
	r.Counters = r.Counters.Add(c)
	if !success {
		r.Success = false
	}
}

func (g *GroupRun) getTotals() (Counters, bool, map[string]interface{}) {
	return g.Counters, g.Success, g.Variables
}

func (g *GroupRun) addTotals(c Counters, success bool) {
	g.Counters = g.Counters.Add(c)
	if !success {
		g.Success = false
	}
}

func (g *GroupResult) getTotals() (Counters, bool, map[string]interface{}) {
	// A GroupResult's own "variables" is the last run's last item's
	// variables, per §9's back-reference rule; walk into its own children
	// rather than storing a back-pointer.
	var vars map[string]interface{}
	if len(g.Runs) > 0 {
		last := g.Runs[len(g.Runs)-1]
		if len(last.Items) > 0 {
			vars = itemVariables(last.Items[len(last.Items)-1])
		}
	}
	return g.Counters, g.Success, vars
}

func (g *GroupResult) addTotals(c Counters, success bool) {
	g.Counters = g.Counters.Add(c)
	if !success {
		g.Success = false
	}
}

func (e *Execution) addTotals(c Counters, success bool) {
	e.Counters = e.Counters.Add(c)
	if !success {
		e.Success = false
	}
}

// itemVariables returns the variables an Item yields, per its concrete kind.
func itemVariables(it Item) map[string]interface{} {
	if it.Request != nil {
		return it.Request.Variables
	}
	if it.Group != nil {
		_, _, vars := it.Group.getTotals()
		return vars
	}
	return nil
}

// itemTotals returns an Item's counters/success regardless of kind.
func itemTotals(it Item) (Counters, bool) {
	if it.Request != nil {
		return it.Request.Counters, it.Request.Success
	}
	if it.Group != nil {
		return it.Group.Counters, it.Group.Success
	}
	return Counters{}, true
}

var _ totalsSource = (*RequestRun)(nil)
var _ totalsSource = (*RequestResult)(nil)
var _ totalsSink = (*RequestResult)(nil)
var _ totalsSource = (*GroupRun)(nil)
var _ totalsSink = (*GroupRun)(nil)
var _ totalsSource = (*GroupResult)(nil)
var _ totalsSink = (*GroupResult)(nil)
var _ totalsSink = (*Execution)(nil)
