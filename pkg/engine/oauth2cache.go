package engine

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// cachedToken is one authorization id's cached bearer token (4.B).
type cachedToken struct {
	bearerToken string
	expiresAt   time.Time
	hasExpiry   bool
}

func (t cachedToken) expired() bool {
	return t.hasExpiry && time.Now().After(t.expiresAt)
}

// TokenCache is the process-wide OAuth2 client-credentials cache keyed by
// authorization id (4.B). The zero value is ready to use. Concurrent Get
// calls for the same id share one in-flight refresh via singleflight,
// satisfying the at-most-one-refresh-per-id requirement.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[string]cachedToken
	group  singleflight.Group
}

// NewTokenCache constructs an empty token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[string]cachedToken)}
}

// defaultTokenCache is the package-level cache used by the convenience
// Run entry points; call sites that need isolation (tests, multiple
// concurrent workspaces) should construct their own TokenCache and use
// RunWithCache instead (§9: prefer dependency-injected handles).
var defaultTokenCache = NewTokenCache()

// httpClientFor builds an *http.Client honoring the optional certificate and
// proxy for the token endpoint call, reusing the same cert/proxy plumbing
// the dispatcher uses for ordinary requests.
func httpClientFor(cert *Certificate, proxy *Proxy) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cert != nil {
		tlsCert, err := certificateToTLS(cert)
		if err != nil {
			return nil, err
		}
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.Certificates = []tls.Certificate{tlsCert}
	}
	if proxy != nil {
		proxyFn, err := proxyFuncFor(proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = proxyFn
	}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}, nil
}

// Get returns a cached, unexpired bearer token for authID if one exists;
// otherwise it performs a client-credentials grant, caches the result, and
// returns it. The returned bool is true when the value came from cache.
func (c *TokenCache) Get(ctx context.Context, authID, tokenURL, clientID, clientSecret, scope string, cert *Certificate, proxy *Proxy) (string, bool, error) {
	c.mu.Lock()
	if tok, ok := c.tokens[authID]; ok && !tok.expired() {
		c.mu.Unlock()
		return tok.bearerToken, true, nil
	}
	c.mu.Unlock()

	// fetched is set only by the caller whose closure actually performed the
	// grant; callers that shared its in-flight result, or found the cache
	// populated on re-check, report cached=true.
	fetched := false
	v, err, _ := c.group.Do(authID, func() (interface{}, error) {
		// Re-check after winning the singleflight race: another caller may
		// have populated the cache while we were queued behind it.
		c.mu.Lock()
		if tok, ok := c.tokens[authID]; ok && !tok.expired() {
			c.mu.Unlock()
			return tok, nil
		}
		c.mu.Unlock()

		httpClient, herr := httpClientFor(cert, proxy)
		if herr != nil {
			return nil, newExecError(ErrOAuth2, "building token client: %v", herr)
		}

		cfg := clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		}
		if scope != "" {
			cfg.Scopes = []string{scope}
		}
		tctx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		token, terr := cfg.Token(tctx)
		if terr != nil {
			return nil, newExecError(ErrOAuth2, "client credentials grant failed: %v", terr)
		}

		tok := cachedToken{bearerToken: token.AccessToken}
		if !token.Expiry.IsZero() {
			tok.hasExpiry = true
			tok.expiresAt = token.Expiry
		}

		c.mu.Lock()
		if c.tokens == nil {
			c.tokens = make(map[string]cachedToken)
		}
		c.tokens[authID] = tok
		c.mu.Unlock()
		fetched = true
		return tok, nil
	})
	if err != nil {
		return "", false, err
	}
	return v.(cachedToken).bearerToken, !fetched, nil
}

// Clear invalidates the cached token for authID, returning whether one was
// present.
func (c *TokenCache) Clear(authID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tokens[authID]
	delete(c.tokens, authID)
	return ok
}

// ClearAll invalidates every cached token.
func (c *TokenCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = make(map[string]cachedToken)
}
