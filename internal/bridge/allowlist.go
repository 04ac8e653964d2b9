package bridge

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// DefaultHosts are the YouTube hosts the page may contact.
var DefaultHosts = []string{"www.youtube.com", "youtube.com", "m.youtube.com"}

const (
	timedTextPath = "/api/timedtext"
	innerTubePath = "/youtubei/v1/"
)

var allowedEndpoints = map[string]bool{
	EndpointPlayer:        true,
	EndpointNext:          true,
	EndpointGetTranscript: true,
}

// allowList keeps the privileged page from becoming an open proxy.
type allowList struct {
	hosts    map[string]bool
	insecure bool
}

func newAllowList(hosts []string, insecure bool) allowList {
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	a := allowList{hosts: make(map[string]bool, len(hosts)), insecure: insecure}
	for _, h := range hosts {
		a.hosts[strings.ToLower(h)] = true
	}
	return a
}

// check validates scheme, host and path of rawURL. A pathPrefix ending in "/"
// admits paths below it; any other pathPrefix must match exactly.
func (a allowList) check(rawURL, pathPrefix string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !a.insecure {
			return nil, fmt.Errorf("scheme %q not allowed", u.Scheme)
		}
	default:
		return nil, fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	if u.User != nil {
		return nil, fmt.Errorf("userinfo not allowed")
	}
	if !a.hosts[strings.ToLower(u.Host)] {
		return nil, fmt.Errorf("host %q not allowed", u.Host)
	}
	if !pathAllowed(u.EscapedPath(), pathPrefix) {
		return nil, fmt.Errorf("path %q not allowed", u.Path)
	}
	return u, nil
}

func pathAllowed(escaped, pathPrefix string) bool {
	// Encoded dots or slashes would change meaning once unescaped.
	if strings.Contains(escaped, "%") || path.Clean(escaped) != escaped {
		return false
	}
	if strings.HasSuffix(pathPrefix, "/") {
		return strings.HasPrefix(escaped, pathPrefix) && len(escaped) > len(pathPrefix)
	}
	return escaped == pathPrefix
}

func (a allowList) checkFetch(rawURL string) (*url.URL, error) {
	return a.check(rawURL, timedTextPath)
}

func (a allowList) checkAPI(rawURL string) (*url.URL, error) {
	return a.check(rawURL, innerTubePath)
}

// normalizeEndpoint accepts "next", "/next" and returns the bare name or "".
func normalizeEndpoint(endpoint string) string {
	e := strings.Trim(strings.TrimSpace(endpoint), "/")
	if !allowedEndpoints[e] {
		return ""
	}
	return e
}
