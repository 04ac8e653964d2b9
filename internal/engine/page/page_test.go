package page

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anatolykoptev/go_captions/internal/engine"
	"github.com/anatolykoptev/go_captions/internal/engine/captions"
)

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/abcdefghijk", "abcdefghijk"},
		{"https://youtu.be/dQw4w9WgXcQ?si=xyz", "dQw4w9WgXcQ"},
		{"youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/feed/subscriptions", ""},
		{"https://example.com/watch?v=dQw4w9WgXcQ", ""},
		{"https://www.youtube.com/watch?v=short", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseVideoID(tt.in); got != tt.want {
				t.Errorf("ParseVideoID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

const watchHTML = `<!DOCTYPE html><html><head>
<title>Learning Go - YouTube</title>
<meta property="og:title" content="Learning Go (og)">
<script>ytcfg.set({"INNERTUBE_API_KEY":"AIzaTEST","INNERTUBE_CLIENT_VERSION":"2.20250101.00.00","VISITOR_DATA":"CgtWaXNpdG9y"});</script>
<script>var ytInitialPlayerResponse = {"responseContext":{"visitorData":"fromPlayer"},
"videoDetails":{"videoId":"dQw4w9WgXcQ","title":"Player Title"},
"captions":{"playerCaptionsTracklistRenderer":{
  "captionTracks":[
    {"baseUrl":"https://www.youtube.com/api/timedtext?v=dQw4w9WgXcQ&lang=en&kind=asr","languageCode":"en","kind":"asr","vssId":"a.en","name":{"simpleText":"English (auto-generated)"}},
    {"baseUrl":"https://www.youtube.com/api/timedtext?v=dQw4w9WgXcQ&lang=de","languageCode":"de","vssId":".de","name":{"simpleText":"German {brace}"}}
  ],
  "audioTracks":[{"captionTrackIndices":[0,1],"defaultCaptionTrackIndex":1}],
  "defaultAudioTrackIndex":0}}};var meta = {};</script>
</head><body></body></html>`

func TestParse(t *testing.T) {
	info, err := Parse([]byte(watchHTML), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if info.Config.APIKey != "AIzaTEST" || info.Config.ClientVersion != "2.20250101.00.00" || info.Config.VisitorData != "CgtWaXNpdG9y" {
		t.Errorf("Config = %+v", info.Config)
	}
	if len(info.Tracks) != 2 || info.Tracks[0].Kind != captions.KindASR || info.Tracks[1].VssID != ".de" {
		t.Errorf("Tracks = %+v", info.Tracks)
	}
	if info.Hint == nil || info.Hint.LanguageCode != "de" || info.Hint.VssID != ".de" {
		t.Errorf("Hint = %+v", info.Hint)
	}
	if info.Title != "Learning Go (og)" {
		t.Errorf("Title = %q", info.Title)
	}
	if got := info.VideoInfo(); got.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("VideoInfo() = %+v", got)
	}
}

func TestParseTitleFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"h1 wins", `<html><head><title>Doc - YouTube</title></head><body><h1 class="title">  Visible   Title </h1></body></html>`, "Visible Title"},
		{"rejects youtube", `<html><head><title>YouTube</title><meta name="twitter:title" content="Tweet Title"></head></html>`, "Tweet Title"},
		{"doc title suffix", `<html><head><title>Only Doc - YouTube</title></head></html>`, "Only Doc"},
		{"untitled", `<html><head><title>(Untitled)</title></head></html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseTitle([]byte(tt.html)); got != tt.want {
				t.Errorf("parseTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseWithoutPlayerResponse(t *testing.T) {
	info, err := Parse([]byte(`<html><head><title>Bare - YouTube</title></head></html>`), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(info.Tracks) != 0 || info.Hint != nil {
		t.Errorf("expected no tracks, got %+v / %+v", info.Tracks, info.Hint)
	}
	if info.Title != "Bare" {
		t.Errorf("Title = %q", info.Title)
	}

	if _, err := Parse([]byte(`<html></html>`), ""); !errors.Is(err, captions.ErrNoVideo) {
		t.Errorf("Parse() without id error = %v, want ErrNoVideo", err)
	}
}

func TestParseMarksTranslatedTracks(t *testing.T) {
	body := `<html><script>var ytInitialPlayerResponse = {"videoDetails":{"videoId":"dQw4w9WgXcQ","title":"T"},
"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
{"baseUrl":"https://www.youtube.com/api/timedtext?v=dQw4w9WgXcQ&lang=en","languageCode":"en","vssId":".en"},
{"baseUrl":"https://www.youtube.com/api/timedtext?v=dQw4w9WgXcQ&lang=en&tlang=fr","languageCode":"fr","vssId":".fr"}]}}};</script></html>`
	info, err := Parse([]byte(body), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(info.Tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(info.Tracks))
	}
	if got := info.Tracks[0].TranslationTargetLanguage; got != "" {
		t.Errorf("source track TranslationTargetLanguage = %q, want empty", got)
	}
	if got := info.Tracks[1].TranslationTargetLanguage; got != "fr" {
		t.Errorf("translated track TranslationTargetLanguage = %q, want fr", got)
	}
	if picked := captions.SelectTrack(info.Tracks, nil); picked == nil || picked.VssID != ".en" {
		t.Errorf("SelectTrack() = %+v, want .en", picked)
	}
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") != "dQw4w9WgXcQ" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(watchHTML))
	}))
	defer srv.Close()

	doer := engine.NewHTTPClient(5 * time.Second)
	info, err := LoadURL(context.Background(), doer, srv.URL+"/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("LoadURL() error = %v", err)
	}
	if len(info.Tracks) != 2 {
		t.Errorf("Tracks = %d, want 2", len(info.Tracks))
	}

	if _, err := LoadURL(context.Background(), doer, srv.URL+"/watch?v=missing", "missing"); err == nil {
		t.Error("expected error for 404 page")
	}
}
