package platform

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"

	"github.com/247void/twitterScraper/internal/tlsutil"
)

// Proxy schemes accepted in ProxyConfig.Type. Anything else falls back to
// http.
const (
	ProxyHTTP   = "http"
	ProxySOCKS4 = "socks4"
	ProxySOCKS5 = "socks5"
)

// ProxyConfig describes the outbound proxy of one collector.
type ProxyConfig struct {
	Type     string `yaml:"type" json:"type" env:"TYPE"`
	Host     string `yaml:"host" json:"host" env:"HOST"`
	Port     string `yaml:"port" json:"port" env:"PORT"`
	Username string `yaml:"username" json:"username" env:"USERNAME"`
	Password string `yaml:"password" json:"-" env:"PASSWORD"`
}

// Enabled reports whether a proxy host is configured.
func (p ProxyConfig) Enabled() bool { return p.Host != "" }

// Scheme returns the normalized proxy scheme.
func (p ProxyConfig) Scheme() string {
	switch s := strings.ToLower(strings.TrimSpace(p.Type)); s {
	case ProxySOCKS4, ProxySOCKS5:
		return s
	default:
		return ProxyHTTP
	}
}

// URL builds scheme://[user:pass@]host:port. It returns nil when no proxy
// is configured.
func (p ProxyConfig) URL() (*url.URL, error) {
	if !p.Enabled() {
		return nil, nil
	}
	if p.Port == "" {
		return nil, fmt.Errorf("proxy %s: port is required", p.Host)
	}
	u := &url.URL{
		Scheme: p.Scheme(),
		Host:   net.JoinHostPort(p.Host, p.Port),
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u, nil
}

// Transport returns an HTTP transport routed through the proxy. socks4 is
// not supported by the dialer and yields an error.
func (p ProxyConfig) Transport(verifySSL bool) (*http.Transport, error) {
	t := tlsutil.Transport(verifySSL)
	t.Proxy = nil
	u, err := p.URL()
	if err != nil || u == nil {
		return t, err
	}

	switch u.Scheme {
	case ProxyHTTP:
		t.Proxy = http.ProxyURL(u)
	case ProxySOCKS5:
		d, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks5 proxy: %w", err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 proxy: dialer has no context support")
		}
		t.Proxy = nil
		t.DialContext = cd.DialContext
	default:
		return nil, fmt.Errorf("proxy scheme %q is not supported by the transport", u.Scheme)
	}
	return t, nil
}
