// ABOUTME: Client for the WordPress.org plugin-information API.
// ABOUTME: One form-encoded POST per lookup, PHP-serialized in both directions, no retries.

package wporg

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/2389/wpembed/internal/metrics"
	"github.com/2389/wpembed/internal/phpserial"
)

const (
	// DefaultEndpoint is the plugin-information API. It only speaks plain HTTP
	// for the serialized 1.0 protocol.
	DefaultEndpoint = "http://api.wordpress.org/plugins/info/1.0/"

	// MinTimeout is the floor applied to any configured timeout; API calls
	// routinely take longer than the usual 5 second default.
	MinTimeout = 10 * time.Second

	UserAgent = "WordPress WPDotOrg oEmbed plugin - https://github.com/leewillis77/wp-wpdotorg-embed"

	actionPluginInformation = "plugin_information"
)

// RequestedFields is the allow-list sent with every plugin lookup.
var RequestedFields = []string{
	"version",
	"author",
	"requires",
	"tested",
	"downloaded",
	"rating",
	"num_ratings",
	"sections",
	"download_link",
	"description",
	"short_description",
	"name",
	"slug",
	"author_profile",
	"homepage",
	"contributors",
	"added",
	"last_updated",
}

// ErrLookupFailed is wrapped by every error GetPluginInfo returns.
var ErrLookupFailed = errors.New("wporg: plugin lookup failed")

// LookupError describes why a lookup failed. Status is zero when no
// response was received.
type LookupError struct {
	Slug   string
	Status int
	Err    error
}

func (e *LookupError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("wporg: lookup %q: status %d: %v", e.Slug, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("wporg: lookup %q: %v", e.Slug, e.Err)
	default:
		return fmt.Sprintf("wporg: lookup %q: unexpected status %d", e.Slug, e.Status)
	}
}

func (e *LookupError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrLookupFailed}
	}
	return []error{ErrLookupFailed, e.Err}
}

// Options configures a Client.
type Options struct {
	Endpoint string        // defaults to DefaultEndpoint
	Timeout  time.Duration // raised to MinTimeout if lower
	Debug    DebugLevel
	Logger   *log.Logger // defaults to the standard logger
}

// Client talks to the plugin-information API.
type Client struct {
	http     *resty.Client
	endpoint string
	debug    DebugLevel
	logger   *log.Logger
}

func NewClient(opts Options) *Client {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	logger := opts.Logger
	if logger == nil {
		logger = defaultLogger
	}

	httpClient := resty.New().
		SetTimeout(EffectiveTimeout(opts.Timeout)).
		SetHeader("User-Agent", UserAgent).
		SetRetryCount(0)

	return &Client{
		http:     httpClient,
		endpoint: endpoint,
		debug:    opts.Debug,
		logger:   logger,
	}
}

// EffectiveTimeout applies the MinTimeout floor.
func EffectiveTimeout(d time.Duration) time.Duration {
	if d < MinTimeout {
		return MinTimeout
	}
	return d
}

// GetPluginInfo fetches the plugin identified by slug. The slug is sent
// verbatim. Any failure, including a non-200 answer or an undecodable body,
// yields a *LookupError.
func (c *Client) GetPluginInfo(ctx context.Context, slug string) (*PluginInfo, error) {
	c.logf(DebugCalls, "GetPluginInfo ( %s )", slug)

	req := phpserial.Object{Fields: []phpserial.Field{
		{Name: "slug", Value: slug},
		{Name: "fields", Value: RequestedFields},
	}}

	body, status, err := c.call(ctx, actionPluginInformation, req)
	if err != nil {
		return nil, &LookupError{Slug: slug, Status: status, Err: err}
	}
	if status != http.StatusOK {
		return nil, &LookupError{Slug: slug, Status: status}
	}

	v, err := phpserial.Unmarshal(body)
	if err != nil {
		return nil, &LookupError{Slug: slug, Status: status, Err: err}
	}
	info, err := pluginFromValue(v)
	if err != nil {
		return nil, &LookupError{Slug: slug, Status: status, Err: err}
	}
	return info, nil
}

// call performs exactly one POST of action and the serialized request.
func (c *Client) call(ctx context.Context, action string, req phpserial.Object) ([]byte, int, error) {
	serialized, err := phpserial.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("serialize request: %w", err)
	}

	c.logf(DebugCalls, "call : %s\nACTION: %s\nDATA: %s", c.endpoint, action, serialized)

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"action":  action,
			"request": string(serialized),
		}).
		Post(c.endpoint)
	if err != nil {
		metrics.ObserveLookup("error", time.Since(start))
		c.logf(DebugResponses, "call : transport error: %v", err)
		return nil, 0, err
	}

	outcome := "ok"
	if resp.StatusCode() != http.StatusOK {
		outcome = "bad_status"
	}
	metrics.ObserveLookup(outcome, time.Since(start))
	c.logf(DebugResponses, "call : %s\n%s", resp.Status(), resp.Body())

	return resp.Body(), resp.StatusCode(), nil
}
