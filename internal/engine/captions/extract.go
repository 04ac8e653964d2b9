package captions

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_captions/internal/bridge"
	"github.com/anatolykoptev/go_captions/internal/engine"
)

// DefaultFormats is the direct-track format order.
var DefaultFormats = []string{"json3", "srv3", "vtt"}

// DefaultTimedTextBase is the legacy single-purpose transcript endpoint.
const DefaultTimedTextBase = bridge.DefaultOrigin + "/api/timedtext"

var errStageEmpty = errors.New("stage produced no text")

// Extractor runs the three-stage fallback chain. It holds no per-call state
// and may be reused sequentially.
type Extractor struct {
	transport     Transport
	page          PageState
	formats       []string
	legacyBase    string
	fallbackLangs []string
	hl, gl        string
	overrides     bridge.Overrides
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFormats overrides the direct-track format order.
func WithFormats(formats ...string) Option {
	return func(e *Extractor) { e.formats = formats }
}

// WithTimedTextBase overrides the legacy endpoint URL.
func WithTimedTextBase(base string) Option {
	return func(e *Extractor) { e.legacyBase = base }
}

// WithFallbackLanguages sets the languages always tried by the legacy stage.
func WithFallbackLanguages(langs ...string) Option {
	return func(e *Extractor) { e.fallbackLangs = langs }
}

// WithSession sets the hl/gl sent with InnerTube requests.
func WithSession(hl, gl string) Option {
	return func(e *Extractor) { e.hl, e.gl = hl, gl }
}

// WithOverrides supplies an API key and client version for pages lacking them.
func WithOverrides(ov bridge.Overrides) Option {
	return func(e *Extractor) { e.overrides = ov }
}

// NewExtractor creates an extractor. page may be nil when no player state is known.
func NewExtractor(t Transport, page PageState, opts ...Option) *Extractor {
	e := &Extractor{
		transport:     t,
		page:          page,
		formats:       DefaultFormats,
		legacyBase:    DefaultTimedTextBase,
		fallbackLangs: []string{"en"},
		hl:            "en",
		gl:            "US",
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract returns the transcript of info.VideoID. Stages run strictly in
// order and the first non-empty one wins. Only ErrNoVideo and ErrNoCaptions
// are returned.
func (e *Extractor) Extract(ctx context.Context, info VideoInfo) (*Result, error) {
	videoID := strings.TrimSpace(info.VideoID)
	if videoID == "" {
		return nil, ErrNoVideo
	}
	engine.IncrExtractRequests()

	var (
		tracks []CaptionTrack
		hint   *TrackHint
	)
	if e.page != nil {
		tracks = e.page.CaptionTracks()
		hint = e.page.SelectedTrack()
	}
	picked := SelectTrack(tracks, hint)

	stages := []struct {
		name string
		run  func(context.Context) *Result
		hit  func()
	}{
		{SourceTrack, func(ctx context.Context) *Result { return e.directTrack(ctx, picked) }, engine.IncrDirectTrackHits},
		{SourcePanel, func(ctx context.Context) *Result { return e.transcriptPanel(ctx, videoID, picked) }, engine.IncrPanelHits},
		{SourceLegacy, func(ctx context.Context) *Result { return e.legacyEndpoints(ctx, videoID, hint, picked, tracks) }, engine.IncrLegacyHits},
	}

	for _, st := range stages {
		var res *Result
		err := engine.TrackOperation(ctx, "captions."+st.name, func(ctx context.Context) error {
			res = st.run(ctx)
			if res == nil {
				return errStageEmpty
			}
			return nil
		})
		if err == nil {
			st.hit()
			res.Source = st.name
			slog.Debug("captions: extracted",
				slog.String("video", videoID),
				slog.String("stage", st.name),
				slog.String("lang", res.LanguageCode))
			return res, nil
		}
		slog.Debug("captions: stage empty", slog.String("video", videoID), slog.String("stage", st.name))
	}

	engine.IncrExtractFailures()
	slog.Warn("captions: all stages exhausted", slog.String("video", videoID), slog.String("title", info.Title))
	return nil, ErrNoCaptions
}

func (e *Extractor) directTrack(ctx context.Context, picked *CaptionTrack) *Result {
	if picked == nil || picked.BaseURL == "" {
		return nil
	}
	lang := picked.LanguageCode
	if lang == "" {
		lang = engine.LangUndetermined
	}
	for _, f := range e.formats {
		if text := e.fetchText(ctx, WithParam(picked.BaseURL, "fmt", f)); text != "" {
			return &Result{Text: text, LanguageCode: lang}
		}
	}
	return nil
}

func (e *Extractor) transcriptPanel(ctx context.Context, videoID string, picked *CaptionTrack) *Result {
	next := e.transport.PostAPI(ctx, bridge.EndpointNext, e.sessionPayload("videoId", videoID), e.overrides)
	if !next.OK {
		logTransportFailure("next", videoID, next.Status, next.Error)
		return nil
	}
	token := ExtractContinuationToken(apiBody(next))
	if token == "" {
		return nil
	}

	tr := e.transport.PostAPI(ctx, bridge.EndpointGetTranscript, e.sessionPayload("params", token), e.overrides)
	if !tr.OK {
		logTransportFailure("get_transcript", videoID, tr.Status, tr.Error)
		return nil
	}
	text := joinLines(DecodeTranscriptPanel(apiBody(tr)))
	if text == "" {
		return nil
	}
	lang := engine.LangUndetermined
	if picked != nil && picked.LanguageCode != "" {
		lang = picked.LanguageCode
	}
	return &Result{Text: text, LanguageCode: lang}
}

func (e *Extractor) legacyEndpoints(ctx context.Context, videoID string, hint *TrackHint, picked *CaptionTrack, tracks []CaptionTrack) *Result {
	for _, u := range legacyURLs(e.legacyBase, videoID, legacyLanguages(hint, picked, tracks, e.fallbackLangs)) {
		if text := e.fetchText(ctx, u); text != "" {
			return &Result{Text: text, LanguageCode: engine.LangUndetermined}
		}
	}
	return nil
}

// fetchText fetches one caption resource and decodes it. Failures yield "".
func (e *Extractor) fetchText(ctx context.Context, u string) string {
	res := e.transport.Fetch(ctx, u)
	if !res.OK {
		logTransportFailure("fetch", u, res.Status, res.Error)
		return ""
	}
	return joinLines(DecodeAuto(res.ContentType, []byte(res.Body)))
}

func (e *Extractor) sessionPayload(key, value string) map[string]any {
	return map[string]any{
		key: value,
		"context": map[string]any{
			"client":  map[string]any{"hl": e.hl, "gl": e.gl, "clientName": "WEB"},
			"user":    map[string]any{"enableSafetyMode": false},
			"request": map[string]any{"useSsl": true},
		},
	}
}

func apiBody(r bridge.APIResult) []byte {
	if len(r.JSON) > 0 {
		return r.JSON
	}
	return []byte(r.Text)
}

func joinLines(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func logTransportFailure(op, target string, status int, msg string) {
	slog.Debug("captions: transport failure",
		slog.String("op", op),
		slog.String("target", target),
		slog.Int("status", status),
		slog.String("error", msg))
}

// WithParam adds key=value to rawURL unless key is already present.
func WithParam(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		if strings.Contains(rawURL, key+"=") {
			return rawURL
		}
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
	}
	if u.Query().Has(key) {
		return rawURL
	}
	param := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String()
}
