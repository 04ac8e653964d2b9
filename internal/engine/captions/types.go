// Package captions extracts plain-text transcripts from YouTube videos.
//
// Extraction runs three stages in order and stops at the first one producing
// text: the caption track the player already knows about, the InnerTube
// transcript panel, and the legacy timedtext endpoint.
package captions

import (
	"context"
	"errors"

	"github.com/anatolykoptev/go_captions/internal/bridge"
)

// Track kinds.
const (
	KindStandard = ""
	KindASR      = "asr"
)

// Result sources.
const (
	SourceTrack  = "track"
	SourcePanel  = "panel"
	SourceLegacy = "legacy"
)

var (
	// ErrNoVideo means the video identifier could not be determined.
	ErrNoVideo = errors.New("no video detected")
	// ErrNoCaptions means every extraction stage came back empty.
	ErrNoCaptions = errors.New("no captions available")
)

// CaptionTrack is one entry of playerCaptionsTracklistRenderer.captionTracks.
type CaptionTrack struct {
	LanguageCode              string `json:"languageCode"`
	Kind                      string `json:"kind,omitempty"`
	VssID                     string `json:"vssId,omitempty"`
	BaseURL                   string `json:"baseUrl"`
	TranslationTargetLanguage string `json:"translationTargetLanguage,omitempty"` // set for machine-translated views
}

// IsASR reports whether the track is auto-generated.
func (t CaptionTrack) IsASR() bool { return t.Kind == KindASR }

// IsTranslation reports whether the track is a machine-translated view, either
// by its TranslationTargetLanguage or by a tlang parameter on its BaseURL.
func (t CaptionTrack) IsTranslation() bool {
	return t.TranslationTargetLanguage != "" || TranslationTarget(t.BaseURL) != ""
}

// TrackHint describes the track the player UI currently shows.
type TrackHint struct {
	LanguageCode              string `json:"languageCode,omitempty"`
	VssID                     string `json:"vssId,omitempty"`
	Kind                      string `json:"kind,omitempty"`
	TranslationTargetLanguage string `json:"translationLanguage,omitempty"`
}

// IsTranslation reports whether the hint is a machine-translated view.
func (h *TrackHint) IsTranslation() bool {
	return h != nil && h.TranslationTargetLanguage != ""
}

// VideoInfo identifies the video being extracted.
type VideoInfo struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
}

// Result is a successful extraction: newline-delimited text plus a best-effort
// language tag ("und" when unknown).
type Result struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
	Source       string `json:"source"`
}

// Transport performs credentialed requests. *bridge.Client and *bridge.Page
// both satisfy it.
type Transport interface {
	Fetch(ctx context.Context, url string) bridge.FetchResult
	PostAPI(ctx context.Context, endpoint string, payload map[string]any, ov bridge.Overrides) bridge.APIResult
}

// PageState exposes the player's caption state.
type PageState interface {
	CaptionTracks() []CaptionTrack
	SelectedTrack() *TrackHint
}

// StaticPage is a fixed PageState.
type StaticPage struct {
	Tracks []CaptionTrack
	Hint   *TrackHint
}

// CaptionTracks implements PageState.
func (s StaticPage) CaptionTracks() []CaptionTrack { return s.Tracks }

// SelectedTrack implements PageState.
func (s StaticPage) SelectedTrack() *TrackHint { return s.Hint }
