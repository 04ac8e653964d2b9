package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_captions/internal/engine"
)

const (
	defaultAPIBase        = DefaultOrigin + "/youtubei/v1"
	defaultRequestTimeout = 15 * time.Second
	maxResponseBytes      = 8 * 1024 * 1024
	subscriberBuffer      = 64
)

// PageOptions configures the privileged side.
type PageOptions struct {
	// Origin is both the origin accepted on the bus and the origin stamped on
	// outgoing responses. Defaults to DefaultOrigin.
	Origin string
	// APIBase is the InnerTube base URL without a trailing slash.
	APIBase       string
	AllowedHosts  []string
	AllowInsecure bool
	Retry         engine.RetryConfig
	Limiter       *rate.Limiter
	// RequestTimeout bounds one outbound request including retries.
	RequestTimeout time.Duration
	UserAgent      string
}

// Page is the privileged context: it holds the session and serves fetch and
// api requests posted on the bus. Page never returns Go errors across the bus;
// every failure becomes a Response with OK=false.
type Page struct {
	bus    *Bus
	doer   engine.Doer
	config ConfigProvider
	opts   PageOptions
	allow  allowList
	wg     sync.WaitGroup
}

// NewPage wires a privileged page to bus. config may be nil.
func NewPage(bus *Bus, doer engine.Doer, config ConfigProvider, opts PageOptions) *Page {
	if opts.Origin == "" {
		opts.Origin = DefaultOrigin
	}
	if opts.APIBase == "" {
		opts.APIBase = defaultAPIBase
	}
	opts.APIBase = strings.TrimRight(opts.APIBase, "/")
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = engine.UserAgentChrome
	}
	if doer == nil {
		doer = engine.DefaultDoer()
	}
	return &Page{
		bus:    bus,
		doer:   doer,
		config: config,
		opts:   opts,
		allow:  newAllowList(opts.AllowedHosts, opts.AllowInsecure),
	}
}

// Origin returns the page origin.
func (p *Page) Origin() string { return p.opts.Origin }

// Serve handles bus requests until ctx is canceled, then waits for in-flight handlers.
func (p *Page) Serve(ctx context.Context) {
	ch, unsubscribe := p.bus.Subscribe(subscriberBuffer)
	p.serve(ctx, ch, unsubscribe)
}

// Start subscribes before returning and serves in the background.
// The returned func stops serving and waits for in-flight handlers.
func (p *Page) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	ch, unsubscribe := p.bus.Subscribe(subscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.serve(ctx, ch, unsubscribe)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (p *Page) serve(ctx context.Context, ch <-chan Envelope, unsubscribe func()) {
	defer func() {
		unsubscribe()
		p.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-ch:
			if !ok {
				return
			}
			p.dispatch(ctx, env)
		}
	}
}

func (p *Page) dispatch(ctx context.Context, env Envelope) {
	h, ok := peek(env.Data)
	if !ok || (h.Type != TypeFetch && h.Type != TypeAPI) {
		return
	}
	if env.Origin != p.opts.Origin {
		engine.IncrBridgeRejected()
		slog.Debug("bridge: rejected request from foreign origin",
			slog.String("origin", env.Origin), slog.String("type", h.Type))
		return
	}
	var msg Message
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		resp := p.handle(ctx, msg)
		if err := p.bus.Post(p.opts.Origin, resp); err != nil {
			slog.Warn("bridge: post response failed", slog.Any("error", err))
		}
	}()
}

func (p *Page) handle(ctx context.Context, msg Message) (resp Response) {
	respType := TypeFetchResult
	if msg.Type == TypeAPI {
		respType = TypeAPIResult
	}
	defer func() {
		if r := recover(); r != nil {
			resp = errorResponse(respType, msg.ID, 0, fmt.Sprintf("internal error: %v", r))
		}
	}()

	switch msg.Type {
	case TypeFetch:
		r := p.Fetch(ctx, msg.URL)
		return Response{
			Type: respType, ID: msg.ID, OK: r.OK, Status: r.Status,
			ContentType: r.ContentType, Text: r.Body, Error: r.Error,
		}
	default:
		r := p.PostAPI(ctx, msg.Endpoint, msg.Payload, Overrides{APIKey: msg.APIKey, ClientVersion: msg.ClientVersion})
		return Response{
			Type: respType, ID: msg.ID, OK: r.OK, Status: r.Status,
			ContentType: r.ContentType, Text: r.Text, JSON: r.JSON, Error: r.Error,
		}
	}
}

// Fetch performs a credentialed GET of a timedtext URL.
func (p *Page) Fetch(ctx context.Context, rawURL string) FetchResult {
	u, err := p.allow.checkFetch(rawURL)
	if err != nil {
		return FetchResult{Error: "blocked: " + err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
	defer cancel()

	status, ctype, body, err := p.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "*/*")
		req.Header.Set("Referer", p.opts.Origin+"/")
		return req, nil
	})
	if err != nil {
		return FetchResult{Status: status, Error: err.Error()}
	}
	return FetchResult{
		OK:          status >= 200 && status < 300,
		Status:      status,
		ContentType: ctype,
		Body:        string(body),
	}
}

// PostAPI calls an allow-listed InnerTube endpoint with the page session.
// Page configuration takes precedence over ov.
func (p *Page) PostAPI(ctx context.Context, endpoint string, payload map[string]any, ov Overrides) APIResult {
	name := normalizeEndpoint(endpoint)
	if name == "" {
		return APIResult{Error: fmt.Sprintf("blocked: endpoint %q not allowed", endpoint)}
	}

	var pc PageConfig
	if p.config != nil {
		pc = p.config.PageConfig()
	}
	apiKey := firstNonEmpty(pc.APIKey, ov.APIKey)
	if apiKey == "" {
		return APIResult{Error: "no INNERTUBE_API_KEY available"}
	}
	clientVersion := firstNonEmpty(pc.ClientVersion, ov.ClientVersion)

	if payload == nil {
		payload = map[string]any{}
	}
	visitor := normalizePayload(payload, clientVersion, pc.VisitorData)

	q := url.Values{}
	q.Set("key", apiKey)
	q.Set("prettyPrint", "false")
	endpointURL := p.opts.APIBase + "/" + name + "?" + q.Encode()
	u, err := p.allow.checkAPI(endpointURL)
	if err != nil {
		return APIResult{Error: "blocked: " + err.Error()}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return APIResult{Error: "encode payload: " + err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
	defer cancel()

	status, ctype, data, err := p.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "*/*")
		req.Header.Set("X-Youtube-Client-Name", "1")
		if clientVersion != "" {
			req.Header.Set("X-Youtube-Client-Version", clientVersion)
		}
		if visitor != "" {
			req.Header.Set("X-Goog-Visitor-Id", visitor)
		}
		req.Header.Set("Origin", p.opts.Origin)
		req.Header.Set("Referer", p.opts.Origin+"/")
		return req, nil
	})
	if err != nil {
		return APIResult{Status: status, Error: err.Error()}
	}

	res := APIResult{
		OK:          status >= 200 && status < 300,
		Status:      status,
		ContentType: ctype,
		Text:        string(data),
	}
	if json.Valid(data) {
		res.JSON = json.RawMessage(data)
	}
	return res
}

// do rate-limits, retries transient failures and reads the body.
func (p *Page) do(ctx context.Context, build func() (*http.Request, error)) (int, string, []byte, error) {
	if p.opts.Limiter != nil {
		if err := p.opts.Limiter.Wait(ctx); err != nil {
			return 0, "", nil, err
		}
	}

	resp, err := engine.RetryHTTP(ctx, p.opts.Retry, func() (*http.Response, error) {
		req, err := build()
		if err != nil {
			return nil, err
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", p.opts.UserAgent)
		}
		return p.doer.Do(req)
	})
	if err != nil {
		return engine.StatusFromError(err), "", nil, err
	}
	defer resp.Body.Close()

	ctype := resp.Header.Get("Content-Type")
	data, err := engine.ReadBody(resp, maxResponseBytes)
	if err != nil {
		return resp.StatusCode, ctype, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, ctype, data, nil
}

// normalizePayload fills context.client defaults without overwriting caller
// values and returns the visitor id in effect. The caller's top-level
// visitorData wins over context.client.visitorData, then the page's; the id is
// written to both places when missing.
func normalizePayload(payload map[string]any, clientVersion, visitorData string) string {
	ctxMap, _ := payload["context"].(map[string]any)
	if ctxMap == nil {
		ctxMap = map[string]any{}
		payload["context"] = ctxMap
	}
	client, _ := ctxMap["client"].(map[string]any)
	if client == nil {
		client = map[string]any{}
		ctxMap["client"] = client
	}
	if s, _ := client["clientName"].(string); s == "" {
		client["clientName"] = "WEB"
	}
	if s, _ := client["clientVersion"].(string); s == "" && clientVersion != "" {
		client["clientVersion"] = clientVersion
	}
	top, _ := payload["visitorData"].(string)
	inner, _ := client["visitorData"].(string)
	visitor := firstNonEmpty(top, inner, visitorData)
	if visitor == "" {
		return ""
	}
	if top == "" {
		payload["visitorData"] = visitor
	}
	if inner == "" {
		client["visitorData"] = visitor
	}
	return visitor
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
