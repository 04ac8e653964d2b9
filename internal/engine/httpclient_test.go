package engine

import (
	"testing"
	"time"
)

func TestNewBrowserClient(t *testing.T) {
	bc, err := NewBrowserClient(0)
	if err != nil {
		t.Fatalf("NewBrowserClient() error = %v", err)
	}
	if bc == nil || bc.client == nil {
		t.Fatal("BrowserClient.client is nil")
	}
}

func TestNewHTTPClientHasJar(t *testing.T) {
	c := NewHTTPClient(5 * time.Second)
	if c.Jar == nil {
		t.Fatal("expected cookie jar for session cookies")
	}
	if c.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", c.Timeout)
	}
}

func TestChromeHeaders(t *testing.T) {
	h := ChromeHeaders()

	required := []string{"accept", "accept-language", "user-agent"}
	for _, key := range required {
		if _, ok := h[key]; !ok {
			t.Errorf("ChromeHeaders() missing key %q", key)
		}
	}

	if ua := h["user-agent"]; len(ua) < 20 {
		t.Errorf("user-agent too short: %q", ua)
	}
}
