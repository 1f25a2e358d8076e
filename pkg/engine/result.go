package engine

// Counters are the aggregate pass/fail/error counts rolled up the result
// tree (4.G). At a container node, each field is the element-wise sum of its
// immediate children's Counters.
type Counters struct {
	PassedTestCount              int `json:"passedTestCount"`
	FailedTestCount              int `json:"failedTestCount"`
	RequestsWithPassedTestsCount int `json:"requestsWithPassedTestsCount"`
	RequestsWithFailedTestsCount int `json:"requestsWithFailedTestsCount"`
	RequestsWithErrors           int `json:"requestsWithErrors"`
}

// Add returns the element-wise sum of c and other.
func (c Counters) Add(other Counters) Counters {
	return Counters{
		PassedTestCount:              c.PassedTestCount + other.PassedTestCount,
		FailedTestCount:              c.FailedTestCount + other.FailedTestCount,
		RequestsWithPassedTestsCount: c.RequestsWithPassedTestsCount + other.RequestsWithPassedTestsCount,
		RequestsWithFailedTestsCount: c.RequestsWithFailedTestsCount + other.RequestsWithFailedTestsCount,
		RequestsWithErrors:           c.RequestsWithErrors + other.RequestsWithErrors,
	}
}

// TestAssertion is one it(...) execution's outcome. TestName is the path of
// enclosing describe() titles followed by the it() title.
type TestAssertion struct {
	TestName []string `json:"testName"`
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
	Logs     []string `json:"logs,omitempty"`
}

// ApicizeRequest is the normalized, post-substitution request the dispatcher
// actually sent, captured for reporting.
type ApicizeRequest struct {
	URL       string                 `json:"url"`
	Method    string                 `json:"method"`
	Headers   map[string]string      `json:"headers,omitempty"`
	Body      []byte                 `json:"-"`
	BodyText  *string                `json:"bodyText,omitempty"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// ApicizeHttpResponse is the normalized response the dispatcher captured.
type ApicizeHttpResponse struct {
	Status          int               `json:"status"`
	StatusText      string            `json:"statusText"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            []byte            `json:"-"`
	BodyText        *string           `json:"bodyText,omitempty"`
	AuthTokenCached *bool             `json:"authTokenCached,omitempty"`
}

// RequestRun is a single dispatch+test iteration of one Request (4.C / 4.D).
// Exactly one of Tests or Error is set, or neither (invariant 5, §3).
type RequestRun struct {
	RunNumber          int                    `json:"runNumber"`
	ExecutedAtOffsetMs int64                  `json:"executedAtOffsetMs"`
	DurationMs         int64                  `json:"durationMs"`
	Request            *ApicizeRequest        `json:"request,omitempty"`
	Response           *ApicizeHttpResponse   `json:"response,omitempty"`
	Error              *ExecutionError        `json:"error,omitempty"`
	Tests              []TestAssertion        `json:"tests,omitempty"`
	Variables          map[string]interface{} `json:"variables,omitempty"`
	Success            bool                   `json:"success"`
	Counters           Counters               `json:"counters"`
}

// RequestResult wraps all runs of one Request (4.F "Request" case).
type RequestResult struct {
	ID                 string                 `json:"id"`
	Name               string                 `json:"name"`
	ExecutedAtOffsetMs int64                  `json:"executedAtOffsetMs"`
	DurationMs         int64                  `json:"durationMs"`
	Runs               []RequestRun           `json:"runs"`
	Variables          map[string]interface{} `json:"variables,omitempty"`
	Success            bool                   `json:"success"`
	Counters           Counters               `json:"counters"`
}

// GroupRun is one iteration (of a group's run-multiplication) over its
// children (4.F "Group" case).
type GroupRun struct {
	RunNumber          int                    `json:"runNumber"`
	ExecutedAtOffsetMs int64                  `json:"executedAtOffsetMs"`
	DurationMs         int64                  `json:"durationMs"`
	Items              []Item                 `json:"items"`
	Variables          map[string]interface{} `json:"variables,omitempty"`
	Success            bool                   `json:"success"`
	Counters           Counters               `json:"counters"`
}

// GroupResult wraps all runs of one Group.
type GroupResult struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	ExecutedAtOffsetMs int64      `json:"executedAtOffsetMs"`
	DurationMs         int64      `json:"durationMs"`
	Runs               []GroupRun `json:"runs"`
	Success            bool       `json:"success"`
	Counters           Counters   `json:"counters"`
}

// Item is either a GroupResult or a RequestResult; exactly one is set.
type Item struct {
	Group   *GroupResult   `json:"group,omitempty"`
	Request *RequestResult `json:"request,omitempty"`
}

// Execution is the top-level result of a Run(...) call (4.F entry point).
type Execution struct {
	DurationMs int64    `json:"durationMs"`
	Items      []Item   `json:"items"`
	Success    bool     `json:"success"`
	Counters   Counters `json:"counters"`
}
