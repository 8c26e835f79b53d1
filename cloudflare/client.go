// Package cloudflare fetches zone analytics totals from the Cloudflare API
// and flattens them into snapshots keyed by dotted metric paths.
package cloudflare

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://api.cloudflare.com/client/v4/"
	DefaultTimeout = 10 * time.Second
)

// Credential identifies a zone and the API token used to read its analytics.
type Credential struct {
	ZoneID   string
	APIToken string
}

// Client requests the analytics dashboard of a single zone.
type Client struct {
	cred    Credential
	base    string
	hc      *http.Client
	timeout time.Duration
	since   int
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API root, which defaults to [DefaultBaseURL].
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.base = strings.TrimSuffix(u, "/") + "/"
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

// WithTimeout sets the maximum duration of a single request. A timeout of 0
// leaves the request bounded only by its context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithSince sets the start of the reporting window in minutes relative to
// now, i.e. -1440 for the last 24 hours. A value of 0 uses the API default.
func WithSince(minutes int) Option {
	return func(c *Client) {
		c.since = minutes
	}
}

// NewClient returns a new Client for the zone and token of cred.
func NewClient(cred Credential, opts ...Option) *Client {
	c := &Client{
		cred:    cred,
		base:    DefaultBaseURL,
		hc:      http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.hc == nil {
		c.hc = http.DefaultClient
	}
	return c
}

// Zone returns the zone id of the client.
func (c *Client) Zone() string {
	return c.cred.ZoneID
}

// FetchSnapshot performs one request of the zone's analytics dashboard and
// returns its flattened totals. Any error returned is an [*Error] wrapping
// one of [ErrAuth], [ErrNotFound], [ErrRateLimit], [ErrTransient] or
// [ErrSchema].
func (c *Client) FetchSnapshot(ctx context.Context) (Snapshot, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return c.parse(body)
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var buf bytes.Buffer
	rb := requests.URL(c.base).
		Path("zones/"+url.PathEscape(c.cred.ZoneID)+"/analytics/dashboard").
		Client(c.hc).
		Bearer(c.cred.APIToken).
		Accept("application/json").
		AddValidator(requests.ValidatorHandler(
			requests.DefaultValidator,
			requests.ToBytesBuffer(&buf),
		)).
		ToBytesBuffer(&buf)
	if c.since != 0 {
		rb.Param("since", strconv.Itoa(c.since))
	}

	err := rb.Fetch(ctx)
	if err == nil {
		return buf.Bytes(), nil
	}

	var re *requests.ResponseError
	if errors.As(err, &re) {
		return nil, &Error{
			Zone:     c.cred.ZoneID,
			Status:   re.StatusCode,
			Err:      statusErr(re.StatusCode),
			Messages: messages(gjson.ParseBytes(buf.Bytes())),
		}
	}
	return nil, &Error{Zone: c.cred.ZoneID, Err: ErrTransient, Cause: err}
}

func (c *Client) parse(body []byte) (Snapshot, error) {
	if !gjson.ValidBytes(body) {
		return nil, c.schemaErr("invalid JSON", nil)
	}
	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return nil, c.schemaErr("response is not an object", nil)
	}
	if ok := res.Get("success"); ok.Exists() && !ok.Bool() {
		return nil, c.schemaErr("request unsuccessful", messages(res))
	}
	totals := res.Get("result.totals")
	if !totals.IsObject() {
		return nil, c.schemaErr("result.totals missing", nil)
	}
	return FlattenResult(totals), nil
}

func (c *Client) schemaErr(cause string, msgs []string) error {
	return &Error{
		Zone:     c.cred.ZoneID,
		Err:      ErrSchema,
		Messages: msgs,
		Cause:    errors.New(cause),
	}
}

// messages returns errors[].message of a response body.
func messages(res gjson.Result) (msgs []string) {
	res.Get("errors.#.message").ForEach(func(_, v gjson.Result) bool {
		if s := v.String(); s != "" {
			msgs = append(msgs, s)
		}
		return true
	})
	return
}
