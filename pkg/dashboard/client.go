// Package dashboard provides a read-only client for the Meraki dashboard REST
// API, exposed as a named-operation Invoker with rate-limit aware retries.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"

	"github.com/newtron-network/netcam-meraki/pkg/util"
	"github.com/newtron-network/netcam-meraki/pkg/version"
)

// DefaultBaseURL is the dashboard API v1 endpoint.
const DefaultBaseURL = "https://api.meraki.com/api/v1"

// defaultMaxPages bounds Link-header pagination for a single operation.
const defaultMaxPages = 50

// ErrUnknownOperation is returned for an operation name missing from the
// operation table.
var ErrUnknownOperation = errors.New("unknown dashboard operation")

// Params carries the named parameters of an operation. Keys that match a
// {placeholder} in the operation path are substituted; the remainder are sent
// as query parameters (GET) or as the JSON body (POST).
type Params map[string]any

// Invoker invokes a named remote operation and returns the decoded payload.
type Invoker interface {
	Invoke(ctx context.Context, op string, params Params) (gjson.Result, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, op string, params Params) (gjson.Result, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, op string, params Params) (gjson.Result, error) {
	return f(ctx, op, params)
}

// APIError is a non-2xx response from the dashboard.
type APIError struct {
	Op         string
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// StatusCode returns the HTTP status of the failed call.
func (e *APIError) StatusCode() int {
	return e.Status
}

type operation struct {
	method string
	path   string
}

// operations is the read-only surface used by the device sessions, keyed by
// the dashboard SDK's "<scope>.<operationId>" names.
var operations = map[string]operation{
	"organizations.getOrganizations":         {http.MethodGet, "/organizations"},
	"organizations.getOrganizationDevices":   {http.MethodGet, "/organizations/{organizationId}/devices"},
	"devices.getDevice":                      {http.MethodGet, "/devices/{serial}"},
	"devices.getDeviceLldpCdp":               {http.MethodGet, "/devices/{serial}/lldpCdp"},
	"devices.getDeviceManagementInterface":   {http.MethodGet, "/devices/{serial}/managementInterface"},
	"devices.createDeviceLiveToolsPingDevice": {http.MethodPost, "/devices/{serial}/liveTools/pingDevice"},
	"devices.getDeviceLiveToolsPingDevice":   {http.MethodGet, "/devices/{serial}/liveTools/pingDevice/{id}"},
	"appliance.getNetworkAppliancePorts":     {http.MethodGet, "/networks/{networkId}/appliance/ports"},
	"appliance.getNetworkApplianceVlans":     {http.MethodGet, "/networks/{networkId}/appliance/vlans"},
	"switch.getDeviceSwitchPorts":            {http.MethodGet, "/devices/{serial}/switch/ports"},
	"switch.getDeviceSwitchPortsStatuses":    {http.MethodGet, "/devices/{serial}/switch/ports/statuses"},
	"wireless.getNetworkWirelessSsids":       {http.MethodGet, "/networks/{networkId}/wireless/ssids"},
}

// Operations returns the names of all supported operations.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	return names
}

// pathParams splits params into the path placeholders of the operation and
// the leftover params.
func (o operation) pathParams(op string, params Params) (map[string]string, Params, error) {
	rest := make(Params, len(params))
	for k, v := range params {
		rest[k] = v
	}

	path := make(map[string]string)
	tmpl := o.path
	for {
		start := strings.IndexByte(tmpl, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(tmpl[start:], '}')
		if end < 0 {
			return nil, nil, fmt.Errorf("%s: malformed path template %q", op, o.path)
		}
		name := tmpl[start+1 : start+end]
		v, ok := rest[name]
		if !ok || fmt.Sprint(v) == "" {
			return nil, nil, fmt.Errorf("%s: missing required parameter %q", op, name)
		}
		delete(rest, name)
		path[name] = fmt.Sprint(v)
		tmpl = tmpl[start+end+1:]
	}
	return path, rest, nil
}

// Client talks to the dashboard over HTTPS. Each Invoke performs its own
// request(s); no connection state is held between operations beyond the
// transport pool of the underlying req client.
type Client struct {
	req      *req.Client
	metrics  *Metrics
	maxPages int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the dashboard endpoint (regional clouds, tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.req.SetBaseURL(strings.TrimRight(u, "/")) }
}

// WithTimeout bounds a single request.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.req.SetTimeout(d) }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a dashboard client authenticated with apiKey.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		req: req.C().
			SetBaseURL(DefaultBaseURL).
			SetTimeout(60*time.Second).
			SetUserAgent("netcam-meraki/"+version.Version).
			SetCommonHeader("Authorization", "Bearer "+apiKey).
			SetCommonHeader("Accept", "application/json"),
		maxPages: defaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke performs the named operation. GET operations that return arrays are
// followed across Link rel=next pages and concatenated.
func (c *Client) Invoke(ctx context.Context, op string, params Params) (gjson.Result, error) {
	o, ok := operations[op]
	if !ok {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}

	path, rest, err := o.pathParams(op, params)
	if err != nil {
		return gjson.Result{}, err
	}

	r := c.req.R().SetContext(ctx).SetPathParams(path)
	if o.method != http.MethodGet {
		data, _, err := c.send(op, r.SetBodyJsonMarshal(rest), o.method, o.path)
		if err != nil {
			return gjson.Result{}, err
		}
		return parsePayload(op, data)
	}
	setQuery(r, rest)

	var pages []gjson.Result
	next := o.path
	for page := 0; next != "" && page < c.maxPages; page++ {
		if page > 0 {
			// The Link target carries the full query.
			r = c.req.R().SetContext(ctx)
		}
		data, header, err := c.send(op, r, http.MethodGet, next)
		if err != nil {
			return gjson.Result{}, err
		}
		res, err := parsePayload(op, data)
		if err != nil {
			return gjson.Result{}, err
		}
		if !res.IsArray() {
			return res, nil
		}
		pages = append(pages, res)
		next = nextLink(header.Get("Link"))
	}

	return joinPages(pages), nil
}

func (c *Client) send(op string, r *req.Request, method, target string) ([]byte, http.Header, error) {
	start := time.Now()
	resp, err := r.Send(method, target)
	if err != nil {
		c.metrics.observeRequest(op, 0, time.Since(start))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := resp.ToBytes()
	c.metrics.observeRequest(op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: reading response: %w", op, err)
	}

	util.WithOperation(op).Debugf("%s %s -> %d", method, resp.Request.RawURL, resp.StatusCode)

	if resp.StatusCode >= 300 {
		apiErr := &APIError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: errorMessage(data),
		}
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, nil, apiErr
	}

	return data, resp.Header, nil
}

func parsePayload(op string, data []byte) (gjson.Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return gjson.Parse("null"), nil
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, util.NewPayloadError(op, "response body is not valid JSON")
	}
	return gjson.ParseBytes(data), nil
}

// errorMessage extracts the dashboard {"errors": [...]} list when present.
func errorMessage(data []byte) string {
	if !gjson.ValidBytes(data) {
		return strings.TrimSpace(string(data))
	}
	var msgs []string
	for _, e := range gjson.GetBytes(data, "errors").Array() {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}

// setQuery adds params as query parameters. Slices use the dashboard's
// "name[]" repeated form.
func setQuery(r *req.Request, params Params) {
	for k, v := range params {
		switch vv := v.(type) {
		case []string:
			for _, s := range vv {
				r.AddQueryParam(k+"[]", s)
			}
		case []int:
			for _, n := range vv {
				r.AddQueryParam(k+"[]", strconv.Itoa(n))
			}
		default:
			r.SetQueryParam(k, fmt.Sprint(v))
		}
	}
}

// nextLink returns the rel=next target of an RFC 8288 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		isNext := false
		for _, p := range segs[1:] {
			p = strings.ReplaceAll(strings.TrimSpace(p), `"`, "")
			if p == "rel=next" {
				isNext = true
			}
		}
		if isNext {
			return strings.Trim(strings.TrimSpace(segs[0]), "<>")
		}
	}
	return ""
}

func joinPages(pages []gjson.Result) gjson.Result {
	if len(pages) == 1 {
		return pages[0]
	}
	var items []string
	for _, p := range pages {
		for _, item := range p.Array() {
			items = append(items, item.Raw)
		}
	}
	return gjson.Parse("[" + strings.Join(items, ",") + "]")
}
