package engine

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"

	"github.com/apicize/engine/pkg/workbook"
)

const defaultTimeoutMs = 30_000

// dispatchParams bundles the resolved parameters the dispatcher needs beyond
// the request itself (4.C input).
type dispatchParams struct {
	auth      *Authorization
	cert      *Certificate
	proxy     *Proxy
	authCert  *Certificate
	authProxy *Proxy
}

// dispatch builds and executes one HTTP request, returning the normalized
// ApicizeRequest/ApicizeHttpResponse pair the result tree stores (4.C).
func dispatch(ctx context.Context, cache *TokenCache, req *Request, vars map[string]interface{}, p dispatchParams) (*ApicizeRequest, *ApicizeHttpResponse, *ExecutionError) {
	method := req.Method
	if method == "" {
		method = workbook.MethodGet
	}

	timeout := time.Duration(defaultTimeoutMs) * time.Millisecond
	if req.TimeoutMs != nil && *req.TimeoutMs > 0 {
		timeout = time.Duration(*req.TimeoutMs) * time.Millisecond
	}

	client, err := buildFasthttpClient(p.cert, p.proxy)
	if err != nil {
		return nil, nil, newExecError(ErrNetwork, "building http client: %v", err)
	}

	finalURL := Substitute(req.URL, vars)

	headers := map[string]string{}
	for _, h := range SubstitutePairs(workbook.EnabledHeaders(req.Headers), vars) {
		headers[h.Name] = h.Value
	}

	var authTokenCached *bool
	if p.auth != nil {
		switch p.auth.Type {
		case workbook.AuthBasic:
			creds := base64.StdEncoding.EncodeToString([]byte(p.auth.Username + ":" + p.auth.Password))
			headers["Authorization"] = "Basic " + creds
		case workbook.AuthApiKey:
			headers[p.auth.Header] = p.auth.Value
		case workbook.AuthOAuth2Client:
			token, cached, oerr := cache.Get(ctx, p.auth.ID, p.auth.AccessTokenURL, p.auth.ClientID, p.auth.ClientSecret, p.auth.Scope, p.authCert, p.authProxy)
			if oerr != nil {
				return nil, nil, oerr.(*ExecutionError)
			}
			headers["Authorization"] = "Bearer " + token
			authTokenCached = &cached
		}
	}

	query := SubstitutePairs(workbook.EnabledQuery(req.QueryParams), vars)
	if len(query) > 0 {
		parsed, perr := url.Parse(finalURL)
		if perr != nil {
			return nil, nil, newExecError(ErrNetwork, "parsing url: %v", perr)
		}
		q := parsed.Query()
		for _, qp := range query {
			q.Add(qp.Name, qp.Value)
		}
		parsed.RawQuery = q.Encode()
		finalURL = parsed.String()
	}

	bodyBytes, contentType, berr := substituteBody(req.Body, vars)
	if berr != nil {
		return nil, nil, newExecError(ErrNetwork, "building body: %v", berr)
	}
	if contentType != "" {
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = contentType
		}
	}

	fReq := fasthttp.AcquireRequest()
	fResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(fReq)
	defer fasthttp.ReleaseResponse(fResp)

	fReq.SetRequestURI(finalURL)
	fReq.Header.SetMethod(string(method))
	for k, v := range headers {
		fReq.Header.Set(k, v)
	}
	if len(bodyBytes) > 0 {
		fReq.SetBody(bodyBytes)
	}

	if err := client.DoTimeout(fReq, fResp, timeout); err != nil {
		return nil, nil, newExecError(ErrNetwork, "%v", err)
	}

	apicizeReq := &ApicizeRequest{
		URL:     finalURL,
		Method:  string(method),
		Headers: headers,
		Body:    bodyBytes,
	}
	if len(bodyBytes) > 0 && utf8.Valid(bodyBytes) {
		s := string(bodyBytes)
		apicizeReq.BodyText = &s
	}
	if len(vars) > 0 {
		apicizeReq.Variables = vars
	}

	respBody := append([]byte(nil), fResp.Body()...)
	respHeaders := map[string]string{}
	fResp.Header.VisitAll(func(k, v []byte) {
		respHeaders[string(k)] = string(v)
	})

	apicizeResp := &ApicizeHttpResponse{
		Status:          fResp.StatusCode(),
		StatusText:      statusText(fResp.StatusCode()),
		Headers:         respHeaders,
		Body:            respBody,
		AuthTokenCached: authTokenCached,
	}
	if text, ok := decodeResponseText(respBody, respHeaders["Content-Type"]); ok {
		apicizeResp.BodyText = &text
	}

	return apicizeReq, apicizeResp, nil
}

func statusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return t
	}
	return "Unknown"
}

// decodeResponseText decodes a response body as text using the charset named
// in Content-Type (defaulting to UTF-8); if the bytes are not valid text in
// that charset, ok is false and the body is left as bytes-only (4.C step 6).
func decodeResponseText(body []byte, contentType string) (string, bool) {
	charset := "utf-8"
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			if cs, ok := params["charset"]; ok {
				charset = strings.ToLower(cs)
			}
		}
	}
	if charset != "utf-8" && charset != "us-ascii" {
		// Only UTF-8/ASCII decoding is attempted without pulling in a full
		// charset-conversion dependency the corpus never reaches for; other
		// charsets are reported as bytes-only, matching the "text is None"
		// branch of 4.C step 6.
		return "", false
	}
	if !utf8.Valid(body) {
		return "", false
	}
	return string(body), true
}

// substituteBody applies 4.A's body substitution rules per Body variant,
// returning the wire bytes and a Content-Type hint.
func substituteBody(body *workbook.Body, vars map[string]interface{}) ([]byte, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch body.Type {
	case workbook.BodyText:
		return []byte(Substitute(body.Text, vars)), "text/plain", nil
	case workbook.BodyXML:
		return []byte(Substitute(body.Text, vars)), "application/xml", nil
	case workbook.BodyJSON:
		raw, err := json.Marshal(body.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("stringifying json body: %w", err)
		}
		// Substitution happens on the stringified form and is not
		// re-parsed as JSON afterward (Open Question #3, preserved).
		return []byte(Substitute(string(raw), vars)), "application/json", nil
	case workbook.BodyForm:
		// Form pairs are NOT substituted (Open Question #2, preserved).
		values := url.Values{}
		for _, p := range body.Form {
			if p.Disabled {
				continue
			}
			values.Add(p.Name, p.Value)
		}
		return []byte(values.Encode()), "application/x-www-form-urlencoded", nil
	case workbook.BodyRaw:
		// The workbook stores raw bodies unpadded; trailing padding, if
		// present, is tolerated.
		raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(body.Raw, "="))
		if err != nil {
			return nil, "", fmt.Errorf("decoding raw body: %w", err)
		}
		return raw, "application/octet-stream", nil
	default:
		return nil, "", nil
	}
}

// buildFasthttpClient constructs a fasthttp.Client honoring an optional
// client certificate and proxy (4.C step 3). HTTP/HTTPS proxies use
// fasthttpproxy's dialer; SOCKS5 proxies wrap golang.org/x/net/proxy's
// dialer to satisfy fasthttp's DialFunc signature.
func buildFasthttpClient(cert *Certificate, proxyCfg *Proxy) (*fasthttp.Client, error) {
	client := &fasthttp.Client{}

	if cert != nil {
		tlsCert, err := certificateToTLS(cert)
		if err != nil {
			return nil, err
		}
		client.TLSConfig = &tls.Config{Certificates: []tls.Certificate{tlsCert}}
	}

	if proxyCfg != nil {
		u, err := url.Parse(proxyCfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy url: %w", err)
		}
		if isSocks5(u.Scheme) {
			dialer, err := socks5DialerFor(proxyCfg)
			if err != nil {
				return nil, err
			}
			client.Dial = func(addr string) (net.Conn, error) {
				return dialer.Dial("tcp", addr)
			}
		} else {
			client.Dial = fasthttpproxy.FasthttpHTTPDialer(proxyCfg.URL)
		}
	}

	return client, nil
}
