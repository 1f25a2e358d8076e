package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/apicize/engine/pkg/workbook"
)

// jsPlatformOnce mirrors the source's one-shot JS engine lifecycle (4.F step
// 1, §5): goja needs no process-wide native setup, but the latch keeps the
// init()/shutdown() invariant the spec describes intact for callers that
// port from a platform that does (§9).
var jsPlatformOnce sync.Once
var jsPlatformShutdown sync.Once

func ensureJSPlatform() error {
	jsPlatformOnce.Do(func() {})
	return nil
}

// ShutdownJSPlatform is a no-op kept for API parity (§6 External
// Interfaces): goja holds no process-wide platform, so there is nothing to
// release; it only trips the shutdown latch.
func ShutdownJSPlatform() {
	jsPlatformShutdown.Do(func() {})
}

// ClearOAuth2Token invalidates the cached token for authID on the default,
// process-wide token cache (§6).
func ClearOAuth2Token(authID string) bool {
	return defaultTokenCache.Clear(authID)
}

// ClearAllOAuth2Tokens invalidates every cached token on the default cache.
func ClearAllOAuth2Tokens() {
	defaultTokenCache.ClearAll()
}

// scheduler carries the state threaded through one Run(...) call: the
// read-only workspace snapshot, the token cache runs share, and the
// wall-clock anchor every ExecutedAtOffsetMs is measured against.
type scheduler struct {
	ws        *Workspace
	cache     *TokenCache
	startedAt time.Time
}

// Run is the engine's entry point (4.F, §6). ids defaults to the
// workspace's top-level requests; overrideRuns, when non-nil, replaces the
// runs field at every node it reaches (the CLI's "dry run" knob). Pass a ctx
// with cancellation wired up to stop the walk cooperatively (§5); already
// in-flight HTTP/JS work finishes but is discarded rather than included.
func Run(ctx context.Context, ws *Workspace, ids []string, startedAt time.Time, overrideRuns *int) (*Execution, error) {
	return RunWithCache(ctx, ws, ids, startedAt, overrideRuns, defaultTokenCache)
}

// RunWithCache is Run with an explicit TokenCache, for callers that need
// isolation between concurrent workspaces instead of sharing the package
// default (§9: prefer dependency-injected handles over module globals).
func RunWithCache(ctx context.Context, ws *Workspace, ids []string, startedAt time.Time, overrideRuns *int, cache *TokenCache) (*Execution, error) {
	if err := ensureJSPlatform(); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = ws.TopLevelIDs
	}

	s := &scheduler{ws: ws, cache: cache, startedAt: startedAt}

	items := make([]Item, len(ids))
	included := make([]bool, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			item, ok := s.runItem(ctx, id, nil, overrideRuns)
			if ok {
				items[i] = item
				included[i] = true
			}
			return nil
		})
	}
	g.Wait()

	exec := &Execution{Success: true}
	for i, ok := range included {
		if !ok {
			continue
		}
		exec.Items = append(exec.Items, items[i])
		c, succ := itemTotals(items[i])
		exec.addTotals(c, succ)
	}
	exec.DurationMs = time.Since(startedAt).Milliseconds()
	return exec, nil
}

// runItem dispatches on id's entry kind, the recursive step shared by the
// top-level id list and every group's children (4.F). The bool return is
// false when the id no longer resolves or the task observed cancellation
// before starting or by the time its work finished; a false return
// contributes no Item to the caller.
func (s *scheduler) runItem(ctx context.Context, id string, vars map[string]interface{}, overrideRuns *int) (Item, bool) {
	if ctx.Err() != nil {
		return Item{}, false
	}
	entry, ok := s.ws.Requests[id]
	if !ok {
		return Item{}, false
	}
	if entry.Kind == workbook.KindGroup {
		gr := s.runGroup(ctx, entry.Grp, id, vars, overrideRuns)
		if ctx.Err() != nil {
			return Item{}, false
		}
		return Item{Group: gr}, true
	}
	rr := s.runRequest(ctx, entry.Req, id, vars, overrideRuns)
	if ctx.Err() != nil {
		return Item{}, false
	}
	return Item{Request: rr}, true
}

// runRequest implements the "Request" case of 4.F: resolve parameters once,
// then run the request's own run-multiplication either in declaration order
// or concurrently, sorting concurrent results back into run-number order.
func (s *scheduler) runRequest(ctx context.Context, req *Request, entryID string, initialVars map[string]interface{}, overrideRuns *int) *RequestResult {
	startInstant := time.Now()
	offset := time.Since(s.startedAt).Milliseconds()

	result := &RequestResult{ID: entryID, Name: req.Name, ExecutedAtOffsetMs: offset, Success: true}

	params := resolveParameters(s.ws, entryID, initialVars)

	n := req.EffectiveRuns()
	if overrideRuns != nil {
		n = *overrideRuns
	}
	if n < 1 {
		n = 1
	}

	if req.EffectiveMultiRunMode() == workbook.ExecutionSequential || n < 2 {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				break
			}
			result.Runs = append(result.Runs, s.runOnce(ctx, req, i+1, params))
		}
	} else {
		raw := make([]RequestRun, n)
		included := make([]bool, n)
		var g errgroup.Group
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				raw[i] = s.runOnce(ctx, req, i+1, params)
				included[i] = true
				return nil
			})
		}
		g.Wait()
		for i, ok := range included {
			if ok {
				result.Runs = append(result.Runs, raw[i])
			}
		}
		sort.Slice(result.Runs, func(a, b int) bool { return result.Runs[a].RunNumber < result.Runs[b].RunNumber })
	}

	for _, run := range result.Runs {
		result.addTotals(run.Counters, run.Success)
	}
	if len(result.Runs) > 0 {
		result.Variables = result.Runs[len(result.Runs)-1].Variables
	}
	result.DurationMs = time.Since(startInstant).Milliseconds()
	return result
}

// runOnce dispatches one HTTP exchange and, if the request carries a test
// script, evaluates it, then folds the outcome into a RequestRun and its
// counters per 4.G.
func (s *scheduler) runOnce(ctx context.Context, req *Request, runNumber int, params resolvedParameters) RequestRun {
	instantStart := time.Now()
	offset := time.Since(s.startedAt).Milliseconds()
	run := RequestRun{RunNumber: runNumber, ExecutedAtOffsetMs: offset}

	dp := dispatchParams{
		auth:      params.authorization,
		cert:      params.certificate,
		proxy:     params.proxy,
		authCert:  params.authCert,
		authProxy: params.authProxy,
	}

	apReq, apResp, derr := dispatch(ctx, s.cache, req, params.variables, dp)
	if derr != nil {
		run.Error = derr
		run.Success = false
		run.Counters = Counters{RequestsWithErrors: 1}
		run.DurationMs = time.Since(instantStart).Milliseconds()
		return run
	}
	run.Request = apReq
	run.Response = apResp

	if req.TestScript == "" {
		// No script: dispatch-OK-with-no-tests counts as passed at the
		// RequestRun level (Open Question #1, resolved "yes" per §9).
		run.Success = true
		run.Variables = params.variables
		run.Counters = Counters{RequestsWithPassedTestsCount: 1}
		run.DurationMs = time.Since(instantStart).Milliseconds()
		return run
	}

	sbResult, serr := runTestScript(req.TestScript, apReq, apResp, params.variables, s.startedAt.UnixMilli())
	if serr != nil {
		run.Error = serr
		run.Success = false
		run.Counters = Counters{RequestsWithErrors: 1}
		run.DurationMs = time.Since(instantStart).Milliseconds()
		return run
	}

	run.Tests = sbResult.Results
	run.Variables = sbResult.Variables

	failed := 0
	for _, t := range sbResult.Results {
		if !t.Success {
			failed++
		}
	}
	passed := len(sbResult.Results) - failed
	run.Counters = Counters{PassedTestCount: passed, FailedTestCount: failed}
	if failed == 0 {
		run.Counters.RequestsWithPassedTestsCount = 1
		run.Success = true
	} else {
		run.Counters.RequestsWithFailedTestsCount = 1
		run.Success = false
	}
	run.DurationMs = time.Since(instantStart).Milliseconds()
	return run
}

// runGroup implements the "Group" case of 4.F: resolve the group's own
// parameters once, then run its run-multiplication either in declaration
// order or concurrently (sorted back by run number).
func (s *scheduler) runGroup(ctx context.Context, grp *Group, entryID string, initialVars map[string]interface{}, overrideRuns *int) *GroupResult {
	startInstant := time.Now()
	offset := time.Since(s.startedAt).Milliseconds()

	result := &GroupResult{ID: entryID, Name: grp.Name, ExecutedAtOffsetMs: offset, Success: true}

	n := grp.EffectiveRuns()
	if overrideRuns != nil {
		n = *overrideRuns
	}
	if n < 1 {
		n = 1
	}

	children := s.ws.ChildIDs[entryID]
	params := resolveParameters(s.ws, entryID, initialVars)

	if grp.EffectiveMultiRunMode() == workbook.ExecutionSequential || n < 2 {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				break
			}
			result.Runs = append(result.Runs, s.runGroupIteration(ctx, grp, children, i+1, params.variables, overrideRuns))
		}
	} else {
		raw := make([]GroupRun, n)
		included := make([]bool, n)
		var g errgroup.Group
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				raw[i] = s.runGroupIteration(ctx, grp, children, i+1, params.variables, overrideRuns)
				included[i] = true
				return nil
			})
		}
		g.Wait()
		for i, ok := range included {
			if ok {
				result.Runs = append(result.Runs, raw[i])
			}
		}
		sort.Slice(result.Runs, func(a, b int) bool { return result.Runs[a].RunNumber < result.Runs[b].RunNumber })
	}

	for _, gr := range result.Runs {
		result.addTotals(gr.Counters, gr.Success)
	}
	result.DurationMs = time.Since(startInstant).Milliseconds()
	return result
}

// runGroupIteration walks a group's children once: in declaration order,
// threading variables from each child forward to the next (invariant 6,
// §3), or concurrently, in which case no variables thread between siblings
// and the produced items are kept in declaration order via an
// index-addressed slice, not in completion order (§5, Open Question #4).
func (s *scheduler) runGroupIteration(ctx context.Context, grp *Group, children []string, runNumber int, vars map[string]interface{}, overrideRuns *int) GroupRun {
	instantStart := time.Now()
	offset := time.Since(s.startedAt).Milliseconds()
	gr := GroupRun{RunNumber: runNumber, ExecutedAtOffsetMs: offset, Success: true}

	if grp.EffectiveExecution() == workbook.ExecutionSequential || len(children) < 2 {
		curVars := vars
		for _, childID := range children {
			if ctx.Err() != nil {
				break
			}
			item, ok := s.runItem(ctx, childID, curVars, overrideRuns)
			if !ok {
				continue
			}
			gr.Items = append(gr.Items, item)
			c, succ := itemTotals(item)
			gr.addTotals(c, succ)
			if v := itemVariables(item); v != nil {
				curVars = v
			}
		}
		gr.Variables = curVars
	} else {
		items := make([]Item, len(children))
		included := make([]bool, len(children))
		var g errgroup.Group
		for idx, childID := range children {
			idx, childID := idx, childID
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				item, ok := s.runItem(ctx, childID, vars, overrideRuns)
				if !ok {
					return nil
				}
				items[idx] = item
				included[idx] = true
				return nil
			})
		}
		g.Wait()
		for i, ok := range included {
			if !ok {
				continue
			}
			gr.Items = append(gr.Items, items[i])
			c, succ := itemTotals(items[i])
			gr.addTotals(c, succ)
		}
	}

	gr.DurationMs = time.Since(instantStart).Milliseconds()
	return gr
}
