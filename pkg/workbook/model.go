// Package workbook defines the data model the engine consumes: requests and
// groups nested into a tree, plus the named parameter sets (scenarios,
// authorizations, certificates, proxies) requests can inherit from.
package workbook

import (
	"encoding/json"
	"fmt"
)

// NoSelectionID is the reserved selection id meaning "explicitly off",
// distinct from an absent selection (which means "inherit").
const NoSelectionID = "\tNONE\t"

// Method is an HTTP method, restricted to the set the dispatcher supports.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// Execution is the sequential/concurrent mode a group or a request's run
// multiplication runs under.
type Execution string

const (
	ExecutionSequential Execution = "SEQUENTIAL"
	ExecutionConcurrent Execution = "CONCURRENT"
)

// Persistence is the storage tier a scenario/authorization/certificate/proxy
// belongs to. It affects where the entity is written on disk; it has no
// bearing on runtime lookup, where every entity lives in one flat map.
type Persistence string

const (
	PersistenceGlobal   Persistence = "GLOBAL"
	PersistencePrivate  Persistence = "PRIVATE"
	PersistenceWorkbook Persistence = "WORKBOOK"
)

// Selection is a reference from a request/group to a named parameter. Id may
// be NoSelectionID (explicitly off) or absent on the parent field entirely
// (meaning "inherit from the ancestor chain or workbook defaults").
type Selection struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// NameValuePair is a header or query parameter entry. Disabled entries are
// filtered out before dispatch and before substitution.
type NameValuePair struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

func enabled(pairs []NameValuePair) []NameValuePair {
	out := make([]NameValuePair, 0, len(pairs))
	for _, p := range pairs {
		if !p.Disabled {
			out = append(out, p)
		}
	}
	return out
}

// EnabledHeaders returns headers with Disabled entries removed.
func EnabledHeaders(pairs []NameValuePair) []NameValuePair { return enabled(pairs) }

// EnabledQuery returns query params with Disabled entries removed.
func EnabledQuery(pairs []NameValuePair) []NameValuePair { return enabled(pairs) }

// BodyType tags the variant of a Body.
type BodyType string

const (
	BodyText BodyType = "Text"
	BodyJSON BodyType = "JSON"
	BodyXML  BodyType = "XML"
	BodyForm BodyType = "Form"
	BodyRaw  BodyType = "Raw"
)

// Body is a request or recorded-response payload, tagged by Type.
type Body struct {
	Type BodyType `json:"type"`

	// Text, XML hold the literal text for their respective types.
	Text string `json:"-"`

	// JSON holds an arbitrary JSON value for BodyJSON.
	JSON interface{} `json:"-"`

	// Form holds name/value pairs for BodyForm; these are NOT substituted.
	Form []NameValuePair `json:"-"`

	// Raw holds base64 (unpadded, standard alphabet) encoded bytes for BodyRaw.
	Raw string `json:"-"`
}

// bodyWire is the on-the-wire shape: a single "data" field whose concrete
// type depends on "type". Body's custom marshal/unmarshal pick the right Go
// field based on Type so callers can use the typed accessors above.
type bodyWire struct {
	Type BodyType        `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (b Body) MarshalJSON() ([]byte, error) {
	w := bodyWire{Type: b.Type}
	var raw interface{}
	switch b.Type {
	case BodyText, BodyXML:
		raw = b.Text
	case BodyJSON:
		raw = b.JSON
	case BodyForm:
		raw = b.Form
	case BodyRaw:
		raw = b.Raw
	default:
		raw = nil
	}
	if raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		w.Data = data
	}
	return json.Marshal(w)
}

func (b *Body) UnmarshalJSON(data []byte) error {
	var w bodyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b.Type = w.Type
	if len(w.Data) == 0 {
		return nil
	}
	switch w.Type {
	case BodyText, BodyXML:
		return json.Unmarshal(w.Data, &b.Text)
	case BodyJSON:
		return json.Unmarshal(w.Data, &b.JSON)
	case BodyForm:
		return json.Unmarshal(w.Data, &b.Form)
	case BodyRaw:
		return json.Unmarshal(w.Data, &b.Raw)
	default:
		return fmt.Errorf("workbook: unknown body type %q", w.Type)
	}
}

// Request is a leaf node in the request tree.
type Request struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	URL           string          `json:"url"`
	Method        Method          `json:"method,omitempty"`
	Headers       []NameValuePair `json:"headers,omitempty"`
	QueryParams   []NameValuePair `json:"queryParams,omitempty"`
	Body          *Body           `json:"body,omitempty"`
	TimeoutMs     *int64          `json:"timeout,omitempty"`
	KeepAlive     bool            `json:"keepAlive,omitempty"`
	Runs          int             `json:"runs,omitempty"`
	MultiRunMode  Execution       `json:"multiRunExecution,omitempty"`
	TestScript    string          `json:"test,omitempty"`

	SelectedScenario      *Selection `json:"selectedScenario,omitempty"`
	SelectedAuthorization *Selection `json:"selectedAuthorization,omitempty"`
	SelectedCertificate   *Selection `json:"selectedCertificate,omitempty"`
	SelectedProxy         *Selection `json:"selectedProxy,omitempty"`
}

// EffectiveRuns returns r.Runs, defaulting to 1 when unset.
func (r *Request) EffectiveRuns() int {
	if r.Runs < 1 {
		return 1
	}
	return r.Runs
}

// EffectiveMultiRunMode returns r.MultiRunMode, defaulting to Sequential.
func (r *Request) EffectiveMultiRunMode() Execution {
	if r.MultiRunMode == "" {
		return ExecutionSequential
	}
	return r.MultiRunMode
}

// Group is a container node in the request tree; its children live in the
// owning Workspace's ChildIDs map, keyed by Group.ID.
type Group struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Execution    Execution `json:"execution,omitempty"`
	Runs         int       `json:"runs,omitempty"`
	MultiRunMode Execution `json:"multiRunExecution,omitempty"`

	SelectedScenario      *Selection `json:"selectedScenario,omitempty"`
	SelectedAuthorization *Selection `json:"selectedAuthorization,omitempty"`
	SelectedCertificate   *Selection `json:"selectedCertificate,omitempty"`
	SelectedProxy         *Selection `json:"selectedProxy,omitempty"`

	// Children holds this group's nested entries on the wire. In-memory,
	// Workspace flattens these into ChildIDs and discards this field.
	Children []RequestEntry `json:"children,omitempty"`
}

// EffectiveRuns returns g.Runs, defaulting to 1 when unset.
func (g *Group) EffectiveRuns() int {
	if g.Runs < 1 {
		return 1
	}
	return g.Runs
}

// EffectiveExecution returns g.Execution, defaulting to Sequential.
func (g *Group) EffectiveExecution() Execution {
	if g.Execution == "" {
		return ExecutionSequential
	}
	return g.Execution
}

// EffectiveMultiRunMode returns g.MultiRunMode, defaulting to Sequential.
func (g *Group) EffectiveMultiRunMode() Execution {
	if g.MultiRunMode == "" {
		return ExecutionSequential
	}
	return g.MultiRunMode
}

// EntryKind distinguishes a RequestEntry's concrete type.
type EntryKind int

const (
	KindRequest EntryKind = iota
	KindGroup
)

// RequestEntry is the untagged union of Request and Group: on the wire the
// two are distinguished structurally (a Group has "execution" or is simply
// not a leaf; a Request always has "url"). Exactly one of Req/Grp is set.
type RequestEntry struct {
	Kind EntryKind
	Req  *Request
	Grp  *Group
}

// ID returns the id shared by both variants.
func (e RequestEntry) ID() string {
	if e.Kind == KindGroup {
		return e.Grp.ID
	}
	return e.Req.ID
}

// Name returns the name shared by both variants.
func (e RequestEntry) Name() string {
	if e.Kind == KindGroup {
		return e.Grp.Name
	}
	return e.Req.Name
}

func (e RequestEntry) selections() (scenario, auth, cert, proxy *Selection) {
	if e.Kind == KindGroup {
		return e.Grp.SelectedScenario, e.Grp.SelectedAuthorization, e.Grp.SelectedCertificate, e.Grp.SelectedProxy
	}
	return e.Req.SelectedScenario, e.Req.SelectedAuthorization, e.Req.SelectedCertificate, e.Req.SelectedProxy
}

func (e RequestEntry) MarshalJSON() ([]byte, error) {
	if e.Kind == KindGroup {
		return json.Marshal(e.Grp)
	}
	return json.Marshal(e.Req)
}

func (e *RequestEntry) UnmarshalJSON(data []byte) error {
	var probe struct {
		URL       *string          `json:"url"`
		Execution *string          `json:"execution"`
		Children  *json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	// A Group is distinguished by carrying "execution" or "children" (its
	// nested entries, flattened into ChildIDs later by NewWorkspace) or simply
	// lacking "url"; a Request always has a url, even if empty string on the
	// wire it is present as a key.
	if probe.URL == nil || probe.Execution != nil || probe.Children != nil {
		var g Group
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		e.Kind = KindGroup
		e.Grp = &g
		return nil
	}
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	e.Kind = KindRequest
	e.Req = &r
	return nil
}

// Scenario is a named set of variable bindings applied to a subtree.
type Scenario struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Persistence Persistence      `json:"persistence,omitempty"`
	Variables   []ScenarioVar    `json:"variables,omitempty"`
}

// ScenarioVar is one scenario variable binding; Value is an arbitrary JSON
// value, materialized into the resolved variable map at resolution time.
type ScenarioVar struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// VariableMap materializes a scenario's variable list into a lookup map.
func (s *Scenario) VariableMap() map[string]interface{} {
	m := make(map[string]interface{}, len(s.Variables))
	for _, v := range s.Variables {
		m[v.Name] = v.Value
	}
	return m
}

// AuthorizationType tags the variant of an Authorization.
type AuthorizationType string

const (
	AuthBasic       AuthorizationType = "Basic"
	AuthApiKey      AuthorizationType = "ApiKey"
	AuthOAuth2Client AuthorizationType = "OAuth2Client"
)

// Authorization is a tagged union over the three supported auth schemes.
type Authorization struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        AuthorizationType `json:"type"`
	Persistence Persistence       `json:"persistence,omitempty"`

	// Basic
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// ApiKey
	Header string `json:"header,omitempty"`
	Value  string `json:"value,omitempty"`

	// OAuth2Client
	AccessTokenURL      string     `json:"accessTokenUrl,omitempty"`
	ClientID            string     `json:"clientId,omitempty"`
	ClientSecret        string     `json:"clientSecret,omitempty"`
	Scope               string     `json:"scope,omitempty"`
	SelectedCertificate *Selection `json:"selectedCertificate,omitempty"`
	SelectedProxy       *Selection `json:"selectedProxy,omitempty"`
}

// CertificateType tags the variant of a Certificate.
type CertificateType string

const (
	CertPKCS12   CertificateType = "PKCS12"
	CertPKCS8PEM CertificateType = "PKCS8_PEM"
	CertPEM      CertificateType = "PEM"
)

// Certificate is a tagged union over the three supported client-cert forms.
// Binary payloads are base64, unpadded, standard alphabet, matching the rest
// of the workbook format.
type Certificate struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        CertificateType `json:"type"`
	Persistence Persistence     `json:"persistence,omitempty"`

	// PKCS12
	Pfx      string `json:"pfx,omitempty"`
	Password string `json:"password,omitempty"`

	// PKCS8PEM / PEM
	PEM string `json:"pem,omitempty"`
	Key string `json:"key,omitempty"`
}

// Proxy is a named network proxy; scheme of URL picks HTTP/HTTPS vs SOCKS5.
type Proxy struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	URL         string      `json:"url"`
	Persistence Persistence `json:"persistence,omitempty"`
}

// Defaults names the fallback selections applied when the ancestor-chain walk
// in the resolver exhausts the tree without resolving a parameter kind.
type Defaults struct {
	SelectedScenario      *Selection `json:"selectedScenario,omitempty"`
	SelectedAuthorization *Selection `json:"selectedAuthorization,omitempty"`
	SelectedCertificate   *Selection `json:"selectedCertificate,omitempty"`
	SelectedProxy         *Selection `json:"selectedProxy,omitempty"`
}
