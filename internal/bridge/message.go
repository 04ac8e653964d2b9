// Package bridge runs credentialed YouTube requests inside a privileged "page"
// context and exposes them to the extraction pipeline over a correlated
// request/response message bus.
//
// The page side owns the session (cookie jar, INNERTUBE_API_KEY, client version,
// visitor id). The client side never sees those values; it posts a request
// message tagged with a random id and waits, with a bounded timeout, for the
// response carrying the same id. Only messages whose origin equals the page
// origin are honored in either direction.
package bridge

import "encoding/json"

// Message types on the bus.
const (
	TypeFetch       = "fetch"
	TypeFetchResult = "fetch_result"
	TypeAPI         = "api"
	TypeAPIResult   = "api_result"
)

// InnerTube endpoints the page is willing to call.
const (
	EndpointPlayer        = "player"
	EndpointNext          = "next"
	EndpointGetTranscript = "get_transcript"
)

// DefaultOrigin is the origin of the YouTube watch page.
const DefaultOrigin = "https://www.youtube.com"

// Message is a request posted by the orchestrating side.
type Message struct {
	Type          string         `json:"type"`
	ID            string         `json:"id"`
	URL           string         `json:"url,omitempty"`
	Endpoint      string         `json:"endpoint,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
	APIKey        string         `json:"apiKey,omitempty"`
	ClientVersion string         `json:"clientVersion,omitempty"`
}

// Response is posted back by the page and echoes the request id.
type Response struct {
	Type        string          `json:"type"`
	ID          string          `json:"id"`
	OK          bool            `json:"ok"`
	Status      int             `json:"status"`
	ContentType string          `json:"contentType"`
	Text        string          `json:"text"`
	JSON        json.RawMessage `json:"json,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// FetchResult is the outcome of a credentialed GET. It never carries a Go error:
// transport problems are reported in Error with OK=false.
type FetchResult struct {
	OK          bool
	Status      int
	ContentType string
	Body        string
	Error       string
}

// APIResult is the outcome of an InnerTube POST.
type APIResult struct {
	OK          bool
	Status      int
	ContentType string
	JSON        json.RawMessage
	Text        string
	Error       string
}

// Overrides are caller-supplied InnerTube values used only when the page has none.
type Overrides struct {
	APIKey        string
	ClientVersion string
}

// PageConfig is the runtime configuration embedded in the watch page (ytcfg).
type PageConfig struct {
	APIKey        string
	ClientVersion string
	VisitorData   string
}

// ConfigProvider exposes the page runtime configuration to the privileged side.
type ConfigProvider interface {
	PageConfig() PageConfig
}

// StaticConfig is a fixed ConfigProvider.
type StaticConfig PageConfig

// PageConfig implements ConfigProvider.
func (s StaticConfig) PageConfig() PageConfig { return PageConfig(s) }

func errorResponse(typ, id string, status int, msg string) Response {
	return Response{Type: typ, ID: id, OK: false, Status: status, Error: msg}
}
