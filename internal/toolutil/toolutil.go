// Package toolutil provides the transcript pipeline shared by the MCP tools
// and the CLI: watch page load, privileged bridge, extraction, cache and store.
package toolutil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_captions/internal/bridge"
	"github.com/anatolykoptev/go_captions/internal/engine"
	"github.com/anatolykoptev/go_captions/internal/engine/captions"
	"github.com/anatolykoptev/go_captions/internal/engine/page"
	"github.com/anatolykoptev/go_captions/internal/engine/store"
)

// TranscribeInput is the input for youtube_transcript.
type TranscribeInput struct {
	URL                 string `json:"url,omitempty" jsonschema:"YouTube watch, shorts, embed or youtu.be URL"`
	VideoID             string `json:"video_id,omitempty" jsonschema:"11-character video id, used when url is empty"`
	Language            string `json:"language,omitempty" jsonschema:"preferred caption language code, e.g. en or pt-BR"`
	VssID               string `json:"vss_id,omitempty" jsonschema:"exact track identifier as shown by the player, e.g. .en or a.en"`
	TranslationLanguage string `json:"translation_language,omitempty" jsonschema:"target language when the selected track is a machine translation"`
	UseCache            *bool  `json:"use_cache,omitempty" jsonschema:"reuse a cached transcript (default true)"`
}

// Transcript is the pipeline output.
type Transcript struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title,omitempty"`
	LanguageCode string `json:"language_code"`
	Source       string `json:"source"`
	Lines        int    `json:"lines"`
	Text         string `json:"text"`
	Cached       bool   `json:"cached,omitempty"`
}

// Hint returns the caller's track hint, or nil when none was given.
func (in TranscribeInput) Hint() *captions.TrackHint {
	if in.Language == "" && in.VssID == "" && in.TranslationLanguage == "" {
		return nil
	}
	h := &captions.TrackHint{
		LanguageCode:              strings.TrimSpace(in.Language),
		VssID:                     strings.TrimSpace(in.VssID),
		TranslationTargetLanguage: strings.TrimSpace(in.TranslationLanguage),
	}
	if strings.HasPrefix(h.VssID, "a.") {
		h.Kind = captions.KindASR
	}
	return h
}

// Pipeline runs one transcript extraction per call. The zero value uses the
// engine configuration and the real YouTube endpoints.
type Pipeline struct {
	Doer      engine.Doer
	WatchBase string // overrides page.WatchURL when set, e.g. a test server
	Bridge    bridge.PageOptions
	Extractor []captions.Option
	Store     store.Store // nil = do not persist
}

// NewPipeline builds a pipeline from engine.Cfg.
func NewPipeline(st store.Store) *Pipeline {
	c := engine.Cfg
	opts := bridge.PageOptions{
		Retry:          engine.DefaultRetryConfig,
		RequestTimeout: c.FetchTimeout,
	}
	if c.RateLimit > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(c.RateLimit), max(c.RateBurst, 1))
	}
	return &Pipeline{
		Doer:   engine.DefaultDoer(),
		Bridge: opts,
		Extractor: []captions.Option{
			captions.WithSession(c.Hl, c.Gl),
			captions.WithOverrides(bridge.Overrides{APIKey: c.APIKeyOverride, ClientVersion: c.ClientVersionOverride}),
		},
		Store: st,
	}
}

// Transcribe resolves the video, loads its watch page and extracts captions.
func (p *Pipeline) Transcribe(ctx context.Context, in TranscribeInput) (*Transcript, error) {
	raw := strings.TrimSpace(in.URL)
	if raw == "" {
		raw = strings.TrimSpace(in.VideoID)
	}
	videoID := page.ParseVideoID(raw)
	if videoID == "" {
		return nil, captions.ErrNoVideo
	}
	hint := in.Hint()

	useCache := in.UseCache == nil || *in.UseCache
	cacheKey := engine.CacheKey("youtube_transcript", videoID, in.Language, in.VssID, in.TranslationLanguage)
	if useCache {
		if out, ok := engine.CacheLoadJSON[Transcript](ctx, cacheKey); ok {
			out.Cached = true
			return &out, nil
		}
	}

	doer := p.Doer
	if doer == nil {
		doer = engine.DefaultDoer()
	}
	watchURL := page.WatchURL(videoID)
	if p.WatchBase != "" {
		watchURL = strings.TrimRight(p.WatchBase, "/") + "/watch?v=" + videoID
	}
	info, err := page.LoadURL(ctx, doer, watchURL, videoID)
	if err != nil {
		// Without the page there are no tracks or session, but the legacy
		// endpoints can still answer.
		slog.Warn("watch page unavailable, continuing without it",
			slog.String("video_id", videoID), slog.Any("error", err))
		info = &page.Info{VideoID: videoID}
	}
	if hint != nil {
		info.Hint = hint
	}

	bus := bridge.NewBus()
	priv := bridge.NewPage(bus, doer, info, p.Bridge)
	stop := priv.Start(ctx)
	defer stop()

	timeout := engine.Cfg.BridgeTimeout
	if timeout <= 0 {
		timeout = bridge.DefaultTimeout
	}
	client := bridge.NewClient(bus, priv.Origin(), timeout)

	start := time.Now()
	res, err := captions.NewExtractor(client, info, p.Extractor...).Extract(ctx, info.VideoInfo())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", videoID, err)
	}
	slog.Info("transcript extracted",
		slog.String("video_id", videoID),
		slog.String("source", res.Source),
		slog.String("lang", res.LanguageCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	out := Transcript{
		VideoID:      videoID,
		Title:        info.Title,
		LanguageCode: res.LanguageCode,
		Source:       res.Source,
		Lines:        strings.Count(res.Text, "\n") + 1,
		Text:         res.Text,
	}
	engine.CacheStoreJSON(ctx, cacheKey, out)

	if p.Store != nil {
		if _, err := p.Store.Save(ctx, store.VideoRecord{
			VideoID:  videoID,
			Title:    out.Title,
			Text:     out.Text,
			Language: out.LanguageCode,
		}); err != nil {
			slog.Warn("transcript not persisted", slog.String("video_id", videoID), slog.Any("error", err))
		}
	}
	return &out, nil
}
