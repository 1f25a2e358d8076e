package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apicize/engine/pkg/workbook"
)

func newWorkspace(wb *workbook.Workbook) *Workspace {
	return workbook.NewWorkspace(wb)
}

func requestEntry(r workbook.Request) workbook.RequestEntry {
	cp := r
	return workbook.RequestEntry{Kind: workbook.KindRequest, Req: &cp}
}

func groupEntry(g workbook.Group) workbook.RequestEntry {
	cp := g
	return workbook.RequestEntry{Kind: workbook.KindGroup, Grp: &cp}
}

// S1 — single GET with a passing test.
func TestScenarioSinglePassingTest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	wb := &workbook.Workbook{
		Version: 1,
		Requests: []workbook.RequestEntry{
			requestEntry(workbook.Request{
				ID:     "r1",
				Name:   "R",
				Method: workbook.MethodGet,
				URL:    srv.URL,
				TestScript: `describe("Status", () => it("equals 200", () =>
					expect(response.status).to.equal(200)))`,
			}),
		},
	}
	ws := newWorkspace(wb)

	exec, err := Run(context.Background(), ws, nil, time.Now(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !exec.Success {
		t.Fatalf("expected overall success, got %+v", exec.Counters)
	}
	if len(exec.Items) != 1 || exec.Items[0].Request == nil {
		t.Fatalf("expected one request item, got %+v", exec.Items)
	}
	rr := exec.Items[0].Request
	if len(rr.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(rr.Runs))
	}
	run := rr.Runs[0]
	if !run.Success {
		t.Fatalf("expected run success, got error=%v tests=%+v", run.Error, run.Tests)
	}
	if len(run.Tests) != 1 || !run.Tests[0].Success {
		t.Fatalf("expected one passing test, got %+v", run.Tests)
	}
	wantPath := []string{"Status", "equals 200"}
	if len(run.Tests[0].TestName) != 2 || run.Tests[0].TestName[0] != wantPath[0] || run.Tests[0].TestName[1] != wantPath[1] {
		t.Fatalf("unexpected test name path: %v", run.Tests[0].TestName)
	}
	if exec.Counters.PassedTestCount != 1 || exec.Counters.RequestsWithPassedTestsCount != 1 {
		t.Fatalf("unexpected counters: %+v", exec.Counters)
	}
}

// S2 — same request, server responds 404: the test fails, not errors.
func TestScenarioFailingTest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	wb := &workbook.Workbook{
		Requests: []workbook.RequestEntry{
			requestEntry(workbook.Request{
				ID:     "r1",
				Name:   "R",
				Method: workbook.MethodGet,
				URL:    srv.URL,
				TestScript: `describe("Status", () => it("equals 200", () =>
					expect(response.status).to.equal(200)))`,
			}),
		},
	}
	ws := newWorkspace(wb)

	exec, err := Run(context.Background(), ws, nil, time.Now(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exec.Success {
		t.Fatalf("expected overall failure")
	}
	run := exec.Items[0].Request.Runs[0]
	if run.Success {
		t.Fatalf("expected run failure")
	}
	if len(run.Tests) != 1 || run.Tests[0].Success {
		t.Fatalf("expected one failing test, got %+v", run.Tests)
	}
	if exec.Counters.FailedTestCount != 1 || exec.Counters.RequestsWithFailedTestsCount != 1 {
		t.Fatalf("unexpected counters: %+v", exec.Counters)
	}
}

// S3 — variable substitution from a default scenario.
func TestScenarioVariableSubstitution(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	scenario := &workbook.Scenario{
		ID:   "sc1",
		Name: "base",
		Variables: []workbook.ScenarioVar{
			{Name: "url_base", Value: srv.URL},
		},
	}
	wb := &workbook.Workbook{
		Scenarios: []*workbook.Scenario{scenario},
		Defaults:  &workbook.Defaults{SelectedScenario: &workbook.Selection{ID: "sc1", Name: "base"}},
		Requests: []workbook.RequestEntry{
			requestEntry(workbook.Request{
				ID:     "r1",
				Name:   "R",
				Method: workbook.MethodGet,
				URL:    "{{url_base}}/ping",
			}),
		},
	}
	ws := newWorkspace(wb)

	exec, err := Run(context.Background(), ws, nil, time.Now(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	run := exec.Items[0].Request.Runs[0]
	if run.Error != nil {
		t.Fatalf("unexpected dispatch error: %v", run.Error)
	}
	if run.Request.URL != srv.URL+"/ping" {
		t.Fatalf("unexpected dispatched url: %s", run.Request.URL)
	}
	if gotPath != "/ping" {
		t.Fatalf("server saw unexpected path: %s", gotPath)
	}
}

// S4 — variable propagation between sequential siblings.
func TestScenarioVariablePropagationBetweenSiblings(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") != "" {
			gotQuery = r.URL.Query().Get("t")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wb := &workbook.Workbook{
		Requests: []workbook.RequestEntry{
			groupEntry(workbook.Group{
				ID:        "g1",
				Name:      "G",
				Execution: workbook.ExecutionSequential,
				Children: []workbook.RequestEntry{
					requestEntry(workbook.Request{
						ID:         "r1",
						Name:       "R1",
						Method:     workbook.MethodGet,
						URL:        srv.URL,
						TestScript: `variables.token = "abc";`,
					}),
					requestEntry(workbook.Request{
						ID:     "r2",
						Name:   "R2",
						Method: workbook.MethodGet,
						URL:    srv.URL + "/?t={{token}}",
					}),
				},
			}),
		},
	}
	ws := newWorkspace(wb)

	exec, err := Run(context.Background(), ws, nil, time.Now(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !exec.Success {
		t.Fatalf("expected success, counters=%+v items=%+v", exec.Counters, exec.Items)
	}
	if gotQuery != "abc" {
		t.Fatalf("expected propagated token 'abc', server saw %q", gotQuery)
	}
}

// S5 — concurrent group: duration approximates the slowest child, not the sum.
func TestScenarioConcurrentGroupDuration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(120 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	children := make([]workbook.RequestEntry, 3)
	for i := range children {
		children[i] = requestEntry(workbook.Request{
			ID:     idFor(i),
			Name:   idFor(i),
			Method: workbook.MethodGet,
			URL:    srv.URL,
		})
	}
	wb := &workbook.Workbook{
		Requests: []workbook.RequestEntry{
			groupEntry(workbook.Group{
				ID:        "g1",
				Name:      "G",
				Execution: workbook.ExecutionConcurrent,
				Children:  children,
			}),
		},
	}
	ws := newWorkspace(wb)

	start := time.Now()
	exec, err := Run(context.Background(), ws, nil, start, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !exec.Success {
		t.Fatalf("expected success, got %+v", exec.Counters)
	}
	elapsed := time.Since(start)
	if elapsed > 300*time.Millisecond {
		t.Fatalf("expected concurrent execution (~120ms), took %v", elapsed)
	}
}

func idFor(i int) string {
	return [...]string{"c0", "c1", "c2"}[i]
}

// S6 — OAuth2 token reuse: the token endpoint is hit exactly once across two
// sequential requests sharing the same authorization id.
func TestScenarioOAuth2TokenReuse(t *testing.T) {
	var tokenCalls int64
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&tokenCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok123","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	var authHeaders []string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer apiSrv.Close()

	auth := &workbook.Authorization{
		ID:             "auth1",
		Name:           "A",
		Type:           workbook.AuthOAuth2Client,
		AccessTokenURL: tokenSrv.URL,
		ClientID:       "cid",
		ClientSecret:   "secret",
	}
	wb := &workbook.Workbook{
		Authorizations: []*workbook.Authorization{auth},
		Requests: []workbook.RequestEntry{
			groupEntry(workbook.Group{
				ID:        "g1",
				Name:      "G",
				Execution: workbook.ExecutionSequential,
				Children: []workbook.RequestEntry{
					requestEntry(workbook.Request{
						ID: "r1", Name: "R1", Method: workbook.MethodGet, URL: apiSrv.URL,
						SelectedAuthorization: &workbook.Selection{ID: "auth1", Name: "A"},
					}),
					requestEntry(workbook.Request{
						ID: "r2", Name: "R2", Method: workbook.MethodGet, URL: apiSrv.URL,
						SelectedAuthorization: &workbook.Selection{ID: "auth1", Name: "A"},
					}),
				},
			}),
		},
	}
	ws := newWorkspace(wb)
	cache := NewTokenCache()

	exec, err := RunWithCache(context.Background(), ws, nil, time.Now(), nil, cache)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !exec.Success {
		t.Fatalf("expected success, got %+v", exec.Counters)
	}
	if atomic.LoadInt64(&tokenCalls) != 1 {
		t.Fatalf("expected exactly 1 token endpoint call, got %d", tokenCalls)
	}

	group := exec.Items[0].Group
	run1 := group.Runs[0].Items[0].Request.Runs[0]
	run2 := group.Runs[0].Items[1].Request.Runs[0]
	if run1.Response.AuthTokenCached == nil || *run1.Response.AuthTokenCached {
		t.Fatalf("expected run1 auth_token_cached=false, got %+v", run1.Response.AuthTokenCached)
	}
	if run2.Response.AuthTokenCached == nil || !*run2.Response.AuthTokenCached {
		t.Fatalf("expected run2 auth_token_cached=true, got %+v", run2.Response.AuthTokenCached)
	}
	if len(authHeaders) != 2 || authHeaders[0] != "Bearer tok123" || authHeaders[1] != "Bearer tok123" {
		t.Fatalf("unexpected authorization headers seen: %v", authHeaders)
	}
}

// Cancellation: a cancelled context stops the scheduler from initiating
// further top-level work (property 8).
func TestScenarioCancellationStopsFurtherWork(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wb := &workbook.Workbook{
		Requests: []workbook.RequestEntry{
			requestEntry(workbook.Request{ID: "r1", Name: "R", Method: workbook.MethodGet, URL: srv.URL}),
		},
	}
	ws := newWorkspace(wb)

	exec, err := Run(ctx, ws, nil, time.Now(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(exec.Items) != 0 {
		t.Fatalf("expected no items once cancelled, got %+v", exec.Items)
	}
	if atomic.LoadInt64(&calls) != 0 {
		t.Fatalf("expected no HTTP calls after cancellation, got %d", calls)
	}
}
