package engine

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/crypto/pkcs12"
	"golang.org/x/net/proxy"

	"github.com/apicize/engine/pkg/workbook"
)

// certificateToTLS converts a workbook Certificate into a tls.Certificate
// ready to attach to an HTTP client transport (4.C step 3). The three
// variants map to Go's tls.Certificate the same way the source maps them to
// reqwest::Identity: PKCS12 is decoded with golang.org/x/crypto/pkcs12 (the
// standard library has no PKCS12 parser); PKCS8PEM and PEM build a
// tls.Certificate from PEM blocks via tls.X509KeyPair. Payloads are decoded
// as unpadded standard base64; trailing padding, if present, is tolerated.
func certificateToTLS(cert *Certificate) (tls.Certificate, error) {
	decode := func(s string) ([]byte, error) {
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	switch cert.Type {
	case workbook.CertPKCS12:
		pfx, err := decode(cert.Pfx)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("decoding pkcs12 payload: %w", err)
		}
		key, leaf, err := pkcs12.Decode(pfx, cert.Password)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("decoding pkcs12 certificate: %w", err)
		}
		return tls.Certificate{Certificate: [][]byte{leaf.Raw}, PrivateKey: key, Leaf: leaf}, nil
	case workbook.CertPKCS8PEM, workbook.CertPEM:
		pemBlock, err := decode(cert.PEM)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("decoding pem payload: %w", err)
		}
		var keyBlock []byte
		if cert.Key != "" {
			keyBlock, err = decode(cert.Key)
			if err != nil {
				return tls.Certificate{}, fmt.Errorf("decoding pem key: %w", err)
			}
		} else {
			keyBlock = pemBlock
		}
		return tls.X509KeyPair(pemBlock, keyBlock)
	default:
		return tls.Certificate{}, fmt.Errorf("unsupported certificate type %q", cert.Type)
	}
}

// proxyFuncFor returns an http.Transport.Proxy function for a workbook Proxy.
// HTTP/HTTPS proxies are handled by Go's usual http.ProxyURL; SOCKS5 proxies
// need golang.org/x/net/proxy's dialer instead, which the fasthttp dial path
// in dispatch.go consumes directly via socks5DialerFor.
func proxyFuncFor(p *Proxy) (func(*http.Request) (*url.URL, error), error) {
	u, err := url.Parse(p.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy url: %w", err)
	}
	if isSocks5(u.Scheme) {
		return nil, fmt.Errorf("socks5 proxies are not supported for the token endpoint client")
	}
	return http.ProxyURL(u), nil
}

// socks5DialerFor builds a proxy.Dialer for a SOCKS5 proxy URL, used by the
// fasthttp dispatcher's dial function.
func socks5DialerFor(p *Proxy) (proxy.Dialer, error) {
	u, err := url.Parse(p.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy url: %w", err)
	}
	return proxy.FromURL(u, proxy.Direct)
}

func isSocks5(scheme string) bool {
	return scheme == "socks5" || scheme == "socks5h"
}
