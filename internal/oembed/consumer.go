// ABOUTME: oEmbed consumer that resolves a URL through the provider registry.
// ABOUTME: Does what a CMS does with a pasted link: find the provider, fetch JSON, hand back HTML.

package oembed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNoProvider is returned when no registered provider claims the URL.
var ErrNoProvider = errors.New("oembed: no provider for url")

// Consumer fetches embeds from registered providers.
type Consumer struct {
	registry *Registry
	http     *resty.Client
}

func NewConsumer(registry *Registry, timeout time.Duration) *Consumer {
	return &Consumer{
		registry: registry,
		http:     resty.New().SetTimeout(timeout),
	}
}

// Fetch resolves target to an oEmbed response.
func (c *Consumer) Fetch(ctx context.Context, target string) (*Response, error) {
	provider, ok := c.registry.Match(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, target)
	}

	resp, err := c.http.R().SetContext(ctx).Get(provider.RequestURL(target))
	if err != nil {
		return nil, fmt.Errorf("oembed: request %s: %w", provider.Name, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("oembed: provider %s answered %d: %s", provider.Name, resp.StatusCode(), resp.Body())
	}

	var out Response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("oembed: decode response: %w", err)
	}
	return &out, nil
}
