// ABOUTME: oEmbed provider registration: which URLs this site can embed and where to ask.
// ABOUTME: Registry mirrors the host-side list of providers an oEmbed consumer consults.

package oembed

import (
	"fmt"
	"net/url"
	"regexp"
	"sync"
)

// PluginProviderPattern matches every URL the plugin provider claims.
var PluginProviderPattern = regexp.MustCompile(`(?i)https?://wordpress\.org/extend/plugins/.*/?`)

// Provider pairs a URL pattern with the endpoint that can embed matching URLs.
type Provider struct {
	Name     string
	Pattern  *regexp.Regexp
	Endpoint string
}

// NewPluginProvider points the plugin pattern at homeURL with the site key attached.
func NewPluginProvider(homeURL, key string) (Provider, error) {
	u, err := url.Parse(homeURL)
	if err != nil {
		return Provider{}, fmt.Errorf("parse home url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Provider{}, fmt.Errorf("home url %q must be absolute", homeURL)
	}
	q := u.Query()
	q.Set(MarkerParam, key)
	u.RawQuery = q.Encode()

	return Provider{
		Name:     "wpdotorg-plugin",
		Pattern:  PluginProviderPattern,
		Endpoint: u.String(),
	}, nil
}

// RequestURL builds the oEmbed request for target.
func (p Provider) RequestURL(target string) string {
	u, err := url.Parse(p.Endpoint)
	if err != nil {
		return p.Endpoint
	}
	q := u.Query()
	q.Set("url", target)
	q.Set("format", "json")
	u.RawQuery = q.Encode()
	return u.String()
}

// Registry holds providers in registration order.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	names     map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register adds p. Provider names must be unique.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.names[p.Name] {
		return fmt.Errorf("provider %q already registered", p.Name)
	}
	r.names[p.Name] = true
	r.providers = append(r.providers, p)
	return nil
}

// Match returns the first provider whose pattern matches target.
func (r *Registry) Match(target string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers {
		if p.Pattern.MatchString(target) {
			return p, true
		}
	}
	return Provider{}, false
}

// All returns the registered providers.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Provider(nil), r.providers...)
}
