package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_captions/internal/engine"
)

func startPage(t *testing.T, srv *httptest.Server, cfg ConfigProvider) (*Bus, *Page) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	bus := NewBus()
	page := NewPage(bus, srv.Client(), cfg, PageOptions{
		APIBase:       srv.URL + "/youtubei/v1",
		AllowedHosts:  []string{u.Host},
		AllowInsecure: true,
		Retry:         engine.NoRetry,
	})
	stop := page.Start(context.Background())
	t.Cleanup(stop)
	return bus, page
}

func TestFetchRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/timedtext", r.URL.Path)
		assert.Equal(t, DefaultOrigin+"/", r.Header.Get("Referer"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"events":[]}`)
	}))
	defer srv.Close()

	bus, _ := startPage(t, srv, nil)
	client := NewClient(bus, DefaultOrigin, 2*time.Second)

	res := client.Fetch(context.Background(), srv.URL+"/api/timedtext?v=abc&lang=en&fmt=json3")
	require.True(t, res.OK, "error: %s", res.Error)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "application/json", res.ContentType)
	assert.Equal(t, `{"events":[]}`, res.Body)
}

func TestFetchNon2xxIsNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	bus, _ := startPage(t, srv, nil)
	res := NewClient(bus, DefaultOrigin, 2*time.Second).Fetch(context.Background(), srv.URL+"/api/timedtext?v=x")
	assert.False(t, res.OK)
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestFetchBlockedPath(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	bus, _ := startPage(t, srv, nil)
	res := NewClient(bus, DefaultOrigin, 2*time.Second).Fetch(context.Background(), srv.URL+"/account")
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "blocked")
	assert.Zero(t, hits.Load())
}

func TestPostAPINormalizesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/youtubei/v1/next", r.URL.Path)
		assert.Equal(t, "page-key", r.URL.Query().Get("key"))
		assert.Equal(t, "1", r.Header.Get("X-Youtube-Client-Name"))
		assert.Equal(t, "2.2024", r.Header.Get("X-Youtube-Client-Version"))
		assert.Equal(t, "caller-visitor", r.Header.Get("X-Goog-Visitor-Id"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		client := body["context"].(map[string]any)["client"].(map[string]any)
		assert.Equal(t, "WEB", client["clientName"])
		assert.Equal(t, "2.2024", client["clientVersion"])
		assert.Equal(t, "caller-visitor", client["visitorData"])
		assert.Equal(t, "abc", body["videoId"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	cfg := StaticConfig{APIKey: "page-key", ClientVersion: "2.2024", VisitorData: "page-visitor"}
	bus, _ := startPage(t, srv, cfg)
	client := NewClient(bus, DefaultOrigin, 2*time.Second)

	payload := map[string]any{
		"videoId": "abc",
		"context": map[string]any{"client": map[string]any{"visitorData": "caller-visitor"}},
	}
	res := client.PostAPI(context.Background(), "/next", payload, Overrides{APIKey: "caller-key", ClientVersion: "1.0"})
	require.True(t, res.OK, "error: %s", res.Error)
	assert.JSONEq(t, `{"ok":true}`, string(res.JSON))
}

func TestPostAPIUsesOverridesWhenPageHasNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "caller-key", r.URL.Query().Get("key"))
		assert.Equal(t, "1.0", r.Header.Get("X-Youtube-Client-Version"))
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	bus, _ := startPage(t, srv, StaticConfig{})
	res := NewClient(bus, DefaultOrigin, 2*time.Second).
		PostAPI(context.Background(), EndpointPlayer, nil, Overrides{APIKey: "caller-key", ClientVersion: "1.0"})
	assert.True(t, res.OK, "error: %s", res.Error)
}

func TestPostAPIWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	bus, _ := startPage(t, srv, nil)
	res := NewClient(bus, DefaultOrigin, 2*time.Second).PostAPI(context.Background(), EndpointNext, nil, Overrides{})
	assert.False(t, res.OK)
	assert.Equal(t, "no INNERTUBE_API_KEY available", res.Error)
}

func TestPostAPIBlockedEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	bus, _ := startPage(t, srv, StaticConfig{APIKey: "k"})
	res := NewClient(bus, DefaultOrigin, 2*time.Second).PostAPI(context.Background(), "account/delete", nil, Overrides{})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "not allowed")
}

func TestClientTimeout(t *testing.T) {
	bus := NewBus()
	before := engine.GetMetrics()["bridge_timeouts"]

	res := NewClient(bus, DefaultOrigin, 30*time.Millisecond).Fetch(context.Background(), "https://www.youtube.com/api/timedtext")
	assert.False(t, res.OK)
	assert.Equal(t, "timeout", res.Error)
	assert.Equal(t, before+1, engine.GetMetrics()["bridge_timeouts"])
}

func TestClientContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewClient(NewBus(), DefaultOrigin, time.Second).Fetch(ctx, "https://www.youtube.com/api/timedtext")
	assert.False(t, res.OK)
	assert.Equal(t, context.Canceled.Error(), res.Error)
}

func TestForeignOriginIgnored(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	bus, _ := startPage(t, srv, nil)
	before := engine.GetMetrics()["bridge_rejected"]

	res := NewClient(bus, "https://evil.example", 50*time.Millisecond).Fetch(context.Background(), srv.URL+"/api/timedtext")
	assert.Equal(t, "timeout", res.Error)
	assert.Zero(t, hits.Load())
	assert.Equal(t, before+1, engine.GetMetrics()["bridge_rejected"])
}

func TestConcurrentRequestsAreCorrelated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := r.URL.Query().Get("n")
		if n == "0" {
			time.Sleep(20 * time.Millisecond)
		}
		io.WriteString(w, "body-"+n)
	}))
	defer srv.Close()

	bus, _ := startPage(t, srv, nil)
	client := NewClient(bus, DefaultOrigin, 2*time.Second)

	const n = 8
	var wg sync.WaitGroup
	results := make([]FetchResult, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = client.Fetch(context.Background(), srv.URL+"/api/timedtext?n="+strconv.Itoa(i))
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		assert.True(t, res.OK, "request %d: %s", i, res.Error)
		assert.Equal(t, "body-"+strconv.Itoa(i), res.Body)
	}
}

func TestNormalizePayload(t *testing.T) {
	t.Run("fills missing fields", func(t *testing.T) {
		p := map[string]any{}
		visitor := normalizePayload(p, "2.1", "v1")
		client := p["context"].(map[string]any)["client"].(map[string]any)
		assert.Equal(t, "WEB", client["clientName"])
		assert.Equal(t, "2.1", client["clientVersion"])
		assert.Equal(t, "v1", client["visitorData"])
		assert.Equal(t, "v1", p["visitorData"])
		assert.Equal(t, "v1", visitor)
	})
	t.Run("top-level visitor wins and is mirrored", func(t *testing.T) {
		p := map[string]any{"visitorData": "top"}
		visitor := normalizePayload(p, "", "page")
		client := p["context"].(map[string]any)["client"].(map[string]any)
		assert.Equal(t, "top", visitor)
		assert.Equal(t, "top", client["visitorData"])
		assert.Equal(t, "top", p["visitorData"])
	})
	t.Run("client visitor copied to top level", func(t *testing.T) {
		p := map[string]any{"context": map[string]any{"client": map[string]any{"visitorData": "inner"}}}
		visitor := normalizePayload(p, "", "page")
		assert.Equal(t, "inner", visitor)
		assert.Equal(t, "inner", p["visitorData"])
	})
	t.Run("keeps caller values", func(t *testing.T) {
		p := map[string]any{"context": map[string]any{"client": map[string]any{
			"clientName": "MWEB", "clientVersion": "9", "hl": "de",
		}}}
		visitor := normalizePayload(p, "2.1", "")
		client := p["context"].(map[string]any)["client"].(map[string]any)
		assert.Equal(t, "MWEB", client["clientName"])
		assert.Equal(t, "9", client["clientVersion"])
		assert.Equal(t, "de", client["hl"])
		assert.NotContains(t, client, "visitorData")
		assert.NotContains(t, p, "visitorData")
		assert.Empty(t, visitor)
	})
}

func TestAllowList(t *testing.T) {
	a := newAllowList(nil, false)
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://www.youtube.com/api/timedtext?v=x", true},
		{"https://youtube.com/api/timedtext", true},
		{"http://www.youtube.com/api/timedtext", false},
		{"https://evil.com/api/timedtext", false},
		{"https://user@www.youtube.com/api/timedtext", false},
		{"https://www.youtube.com/watch?v=x", false},
		{"javascript:alert(1)", false},
		{"https://www.youtube.com/api/timedtextX", false},
		{"https://www.youtube.com/api/timedtext/", false},
		{"https://www.youtube.com/api/timedtext/../account", false},
		{"https://www.youtube.com/api/timedtext/%2e%2e/account", false},
		{"https://www.youtube.com//api/timedtext", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := a.checkFetch(tt.url)
			if (err == nil) != tt.ok {
				t.Errorf("checkFetch(%q) err=%v, want ok=%v", tt.url, err, tt.ok)
			}
		})
	}
}

func TestAllowListAPIPaths(t *testing.T) {
	a := newAllowList(nil, false)
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://www.youtube.com/youtubei/v1/next?key=k", true},
		{"https://www.youtube.com/youtubei/v1/get_transcript", true},
		{"https://www.youtube.com/youtubei/v1/", false},
		{"https://www.youtube.com/youtubei/v1", false},
		{"https://www.youtube.com/youtubei/v10/next", false},
		{"https://www.youtube.com/youtubei/v1/../../account", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := a.checkAPI(tt.url)
			if (err == nil) != tt.ok {
				t.Errorf("checkAPI(%q) err=%v, want ok=%v", tt.url, err, tt.ok)
			}
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"next":            "next",
		"/get_transcript": "get_transcript",
		" player ":        "player",
		"browse":          "",
		"../next":         "",
	}
	for in, want := range tests {
		if got := normalizeEndpoint(in); got != want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe(1)
	unsubscribe()
	unsubscribe()
	_, ok := <-ch
	assert.False(t, ok)
	assert.NoError(t, bus.Post(DefaultOrigin, Message{Type: TypeFetch}))
}
